package lsag

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput marks structurally invalid verification input. It is
	// never folded into a false verification result.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyRing indicates a ring without members
	ErrEmptyRing = fmt.Errorf("%w: ring is empty", ErrMalformedInput)

	// ErrRingSizeMismatch indicates len(s) != len(ring)
	ErrRingSizeMismatch = fmt.Errorf("%w: response count does not match ring size", ErrMalformedInput)

	// ErrSearchExhausted indicates MapToCurve hit its iteration cap. It points
	// at a broken curve configuration, not at an invalid signature.
	ErrSearchExhausted = errors.New("map to curve: iteration cap exceeded")
)
