// Package transcript serializes Fiat-Shamir transcripts for hashing.
//
// A transcript is an ordered list of elements, each one an integer, a byte
// string, a curve point or a nested list. Two encodings are provided:
//
//   - Concat: integers as decimal digits, points as decimal x immediately
//     followed by decimal y, byte strings verbatim and lists flattened, with
//     no separators at all. This is the format deployed ring signers hash, so
//     it is kept bit for bit. Structurally different transcripts can encode
//     identically: ("12") and ("1", "2") both give "12".
//
//   - Framed: every element is written as tag || uint32 length || payload.
//     Distinct transcripts always produce distinct encodings.
//
// Both encodings are deterministic: the same structure always yields the same
// bytes.
package transcript

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
)

// Kind identifies the variant held by an Element.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindBytes
	KindPoint
	KindList
)

// Frame tags for the Framed encoding.
const (
	tagInt   = 'i'
	tagBytes = 'b'
	tagPoint = 'p'
	tagList  = 'l'
)

// ErrUnencodable is returned for elements with no canonical encoding: nil
// integers, nil or identity points and zero-value elements.
var ErrUnencodable = errors.New("transcript: element cannot be encoded")

// Element is one transcript entry. The zero value is not encodable.
type Element struct {
	kind  Kind
	num   *big.Int
	raw   []byte
	point curve.Point
	items []Element
}

// Int wraps an integer.
func Int(v *big.Int) Element {
	if v == nil {
		return Element{kind: KindInt}
	}
	return Element{kind: KindInt, num: new(big.Int).Set(v)}
}

// Int64 wraps a small integer.
func Int64(v int64) Element {
	return Element{kind: KindInt, num: big.NewInt(v)}
}

// Bytes wraps a byte string. The slice is copied.
func Bytes(b []byte) Element {
	return Element{kind: KindBytes, raw: append([]byte{}, b...)}
}

// String wraps a character string, encoded as its UTF-8 bytes.
func String(s string) Element {
	return Element{kind: KindBytes, raw: []byte(s)}
}

// Point wraps a curve point.
func Point(p curve.Point) Element {
	return Element{kind: KindPoint, point: p}
}

// List nests elements.
func List(items ...Element) Element {
	return Element{kind: KindList, items: append([]Element{}, items...)}
}

// Points nests a sequence of points, e.g. a ring of public keys.
func Points(ps []curve.Point) Element {
	items := make([]Element, len(ps))
	for i, p := range ps {
		items[i] = Point(p)
	}
	return Element{kind: KindList, items: items}
}

// Kind returns the element variant.
func (e Element) Kind() Kind {
	return e.kind
}

// Encoding selects a transcript serialization.
type Encoding uint8

const (
	// Framed writes tag || length || payload for every element.
	Framed Encoding = iota
	// Concat writes bare decimal/byte concatenations.
	Concat
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case Framed:
		return "framed"
	case Concat:
		return "concat"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// ParseEncoding maps a name back to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "framed":
		return Framed, nil
	case "concat", "legacy":
		return Concat, nil
	default:
		return 0, fmt.Errorf("unknown transcript encoding: %s", name)
	}
}

// Encode serializes elems in order.
func (e Encoding) Encode(elems ...Element) ([]byte, error) {
	return e.AppendEncode(nil, elems...)
}

// AppendEncode appends the serialization of elems to dst.
func (e Encoding) AppendEncode(dst []byte, elems ...Element) ([]byte, error) {
	var err error
	for i := range elems {
		switch e {
		case Framed:
			dst, err = appendFramed(dst, elems[i])
		case Concat:
			dst, err = appendConcat(dst, elems[i])
		default:
			return nil, fmt.Errorf("unknown transcript encoding %d", uint8(e))
		}
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendConcat(dst []byte, el Element) ([]byte, error) {
	switch el.kind {
	case KindInt:
		if el.num == nil {
			return nil, fmt.Errorf("%w: nil integer", ErrUnencodable)
		}
		return el.num.Append(dst, 10), nil

	case KindBytes:
		return append(dst, el.raw...), nil

	case KindPoint:
		if el.point == nil || el.point.IsIdentity() {
			return nil, fmt.Errorf("%w: identity point", ErrUnencodable)
		}
		dst = el.point.X().Append(dst, 10)
		return el.point.Y().Append(dst, 10), nil

	case KindList:
		var err error
		for i := range el.items {
			if dst, err = appendConcat(dst, el.items[i]); err != nil {
				return nil, err
			}
		}
		return dst, nil

	default:
		return nil, fmt.Errorf("%w: zero element", ErrUnencodable)
	}
}

func appendFramed(dst []byte, el Element) ([]byte, error) {
	var (
		tag     byte
		payload []byte
		err     error
	)

	switch el.kind {
	case KindInt:
		if el.num == nil {
			return nil, fmt.Errorf("%w: nil integer", ErrUnencodable)
		}
		tag, payload = tagInt, el.num.Append(nil, 10)

	case KindBytes:
		tag, payload = tagBytes, el.raw

	case KindPoint:
		if el.point == nil || el.point.IsIdentity() {
			return nil, fmt.Errorf("%w: identity point", ErrUnencodable)
		}
		tag = tagPoint
		payload, err = appendFramed(nil, Int(el.point.X()))
		if err == nil {
			payload, err = appendFramed(payload, Int(el.point.Y()))
		}

	case KindList:
		tag = tagList
		for i := range el.items {
			if payload, err = appendFramed(payload, el.items[i]); err != nil {
				break
			}
		}

	default:
		return nil, fmt.Errorf("%w: zero element", ErrUnencodable)
	}
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: element longer than 4 GiB", ErrUnencodable)
	}

	dst = append(dst, tag)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}
