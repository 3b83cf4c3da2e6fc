// Package records reads and writes the JSON files exchanged with ring
// signers: key lists, signature records and curve parameter files.
package records

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/lsag"
)

// KeyPrefixLen is the length of the type marker in front of a hex key, e.g.
// the "02"/"03" of a compressed public key.
const KeyPrefixLen = 2

// Int is a big integer carried as a decimal JSON string. Bare JSON numbers
// and 0x-prefixed hex strings are accepted on input.
type Int struct {
	*big.Int
}

// NewInt wraps v.
func NewInt(v *big.Int) Int {
	return Int{Int: v}
}

// MarshalJSON writes the integer as a quoted decimal string.
func (i Int) MarshalJSON() ([]byte, error) {
	if i.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(i.Int.String())
}

// UnmarshalJSON parses a quoted or bare integer.
func (i *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		i.Int = nil
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := parseInt(s)
	if err != nil {
		return err
	}
	i.Int = v
	return nil
}

func parseInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: invalid integer %q", lsag.ErrMalformedInput, s)
	}
	return v, nil
}

// ParseKeyIDs decodes a JSON array of prefixed hex keys into integers.
func ParseKeyIDs(data []byte) ([]*big.Int, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: key list: %v", lsag.ErrMalformedInput, err)
	}
	return KeyIDs(raw)
}

// KeyIDs drops the type marker of each key and parses the rest as base 16.
func KeyIDs(keys []string) ([]*big.Int, error) {
	if len(keys) == 0 {
		return nil, lsag.ErrEmptyRing
	}
	ids := make([]*big.Int, len(keys))
	for i, k := range keys {
		if len(k) <= KeyPrefixLen {
			return nil, fmt.Errorf("%w: key %d too short", lsag.ErrMalformedInput, i)
		}
		v, ok := new(big.Int).SetString(k[KeyPrefixLen:], 16)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: key %d is not hex", lsag.ErrMalformedInput, i)
		}
		ids[i] = v
	}
	return ids, nil
}

// RingFromIDs maps every key integer onto the curve with MapToCurve, without
// hashing it first.
func RingFromIDs(h *lsag.Hasher, ids []*big.Int) (lsag.Ring, error) {
	ring := make(lsag.Ring, len(ids))
	for i, id := range ids {
		p, err := h.MapToCurve(id)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		ring[i] = p
	}
	return ring, nil
}

// RingFromKeys combines KeyIDs and RingFromIDs.
func RingFromKeys(h *lsag.Hasher, keys []string) (lsag.Ring, error) {
	ids, err := KeyIDs(keys)
	if err != nil {
		return nil, err
	}
	return RingFromIDs(h, ids)
}

// LoadRing reads a key list file.
func LoadRing(path string, h *lsag.Hasher) (lsag.Ring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	ids, err := ParseKeyIDs(data)
	if err != nil {
		return nil, err
	}
	return RingFromIDs(h, ids)
}

// KeyID formats a point the way signers list keys: a compressed-point
// prefix followed by the hex x coordinate.
func KeyID(p curve.Point, size int) string {
	prefix := "02"
	if p.Y().Bit(0) == 1 {
		prefix = "03"
	}
	return prefix + fmt.Sprintf("%0*x", 2*size, p.X())
}

// Coords is an affine point written as [x, y].
type Coords []Int

// NewCoords returns the coordinates of p.
func NewCoords(p curve.Point) Coords {
	return Coords{NewInt(p.X()), NewInt(p.Y())}
}

// Point validates the coordinates against crv.
func (c Coords) Point(crv curve.Curve) (curve.Point, error) {
	if len(c) != 2 || c[0].Int == nil || c[1].Int == nil {
		return nil, fmt.Errorf("%w: point needs two coordinates", lsag.ErrMalformedInput)
	}
	p, err := crv.NewPoint(c[0].Int, c[1].Int)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lsag.ErrMalformedInput, err)
	}
	return p, nil
}

// RingFromCoords validates explicit ring member coordinates.
func RingFromCoords(crv curve.Curve, points []Coords) (lsag.Ring, error) {
	if len(points) == 0 {
		return nil, lsag.ErrEmptyRing
	}
	ring := make(lsag.Ring, len(points))
	for i, c := range points {
		p, err := c.Point(crv)
		if err != nil {
			return nil, fmt.Errorf("ring member %d: %w", i, err)
		}
		ring[i] = p
	}
	return ring, nil
}

// SignatureRecord is the on-disk signature format.
type SignatureRecord struct {
	C0 Int    `json:"c_0"`
	Y  Coords `json:"Y"`
	S  []Int  `json:"s"`
}

// NewSignatureRecord converts sig for serialization.
func NewSignatureRecord(sig *lsag.Signature) *SignatureRecord {
	rec := &SignatureRecord{
		C0: NewInt(sig.C0),
		Y:  NewCoords(sig.Y),
		S:  make([]Int, len(sig.S)),
	}
	for i, s := range sig.S {
		rec.S[i] = NewInt(s)
	}
	return rec
}

// Signature validates the record against crv.
func (r *SignatureRecord) Signature(crv curve.Curve) (*lsag.Signature, error) {
	if r.C0.Int == nil {
		return nil, fmt.Errorf("%w: missing c_0", lsag.ErrMalformedInput)
	}
	y, err := r.Y.Point(crv)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	sig := &lsag.Signature{C0: r.C0.Int, Y: y, S: make([]*big.Int, len(r.S))}
	for i, s := range r.S {
		if s.Int == nil {
			return nil, fmt.Errorf("%w: missing s[%d]", lsag.ErrMalformedInput, i)
		}
		sig.S[i] = s.Int
	}
	return sig, nil
}

// ParseSignature decodes a signature record.
func ParseSignature(data []byte, crv curve.Curve) (*lsag.Signature, error) {
	var rec SignatureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: signature: %v", lsag.ErrMalformedInput, err)
	}
	return rec.Signature(crv)
}

// LoadSignature reads a signature record file.
func LoadSignature(path string, crv curve.Curve) (*lsag.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature: %w", err)
	}
	return ParseSignature(data, crv)
}

// CurveRecord is a curve parameter file.
type CurveRecord struct {
	Name string `json:"name"`
	P    Int    `json:"p"`
	A    Int    `json:"a"`
	B    Int    `json:"b"`
	Gx   Int    `json:"gx"`
	Gy   Int    `json:"gy"`
	N    Int    `json:"n"`
}

// Params converts the record. Missing constants are left nil and rejected by
// the curve constructor.
func (r *CurveRecord) Params() curve.Params {
	return curve.Params{Name: r.Name, P: r.P.Int, A: r.A.Int, B: r.B.Int, Gx: r.Gx.Int, Gy: r.Gy.Int, N: r.N.Int}
}

// ParseCurve decodes a curve parameter file and builds the curve.
func ParseCurve(data []byte) (curve.Curve, error) {
	var rec CurveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", curve.ErrInvalidParams, err)
	}
	return curve.FromParams(rec.Params())
}

// LoadCurve reads a curve parameter file.
func LoadCurve(path string) (curve.Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curve parameters: %w", err)
	}
	return ParseCurve(data)
}

// WriteJSON writes v to path, indented.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
