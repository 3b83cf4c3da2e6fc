package curve

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

var secp256k1Params = func() *Params {
	p := btcec.S256().Params()
	return &Params{
		Name: "secp256k1",
		P:    new(big.Int).Set(p.P),
		A:    new(big.Int),
		B:    new(big.Int).Set(p.B),
		Gx:   new(big.Int).Set(p.Gx),
		Gy:   new(big.Int).Set(p.Gy),
		N:    new(big.Int).Set(p.N),
	}
}()

// Secp256k1Curve implements the Curve interface for secp256k1
type Secp256k1Curve struct {
	g Point
}

// NewSecp256k1 creates a new secp256k1 curve instance
func NewSecp256k1() Curve {
	return &Secp256k1Curve{
		g: newAffine(secp256k1Params.Gx, secp256k1Params.Gy, 32),
	}
}

// Name returns the curve name
func (c *Secp256k1Curve) Name() string {
	return secp256k1Params.Name
}

// Params returns the secp256k1 constants
func (c *Secp256k1Curve) Params() *Params {
	return secp256k1Params
}

// Generator returns G
func (c *Secp256k1Curve) Generator() Point {
	return c.g
}

// NewPoint validates (x, y) and returns it as a point
func (c *Secp256k1Curve) NewPoint(x, y *big.Int) (Point, error) {
	if err := checkPoint(c, x, y); err != nil {
		return nil, err
	}
	return newAffine(x, y, 32), nil
}

// ParsePoint parses a point from bytes (33-byte compressed or 65-byte uncompressed)
func (c *Secp256k1Curve) ParsePoint(b []byte) (Point, error) {
	if len(b) == 0 {
		return nil, ErrInvalidPoint
	}

	pubKey, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}

	return c.NewPoint(pubKey.X(), pubKey.Y())
}

// ScalarBaseMult computes k * G
func (c *Secp256k1Curve) ScalarBaseMult(k *big.Int) Point {
	k = reduceScalar(k, secp256k1Params.N)
	if k.Sign() == 0 {
		return identity
	}

	rx, ry := btcec.S256().ScalarBaseMult(k.Bytes())
	return c.fromCoords(rx, ry)
}

// ScalarMult computes k * P
func (c *Secp256k1Curve) ScalarMult(p Point, k *big.Int) Point {
	px, py, ok := coords(p)
	if !ok {
		return identity
	}
	k = reduceScalar(k, secp256k1Params.N)
	if k.Sign() == 0 {
		return identity
	}

	rx, ry := btcec.S256().ScalarMult(px, py, k.Bytes())
	return c.fromCoords(rx, ry)
}

// Add adds two points: P + Q
func (c *Secp256k1Curve) Add(p, q Point) Point {
	px, py, pok := coords(p)
	qx, qy, qok := coords(q)
	switch {
	case !pok && !qok:
		return identity
	case !pok:
		return q
	case !qok:
		return p
	}

	rx, ry := btcec.S256().Add(px, py, qx, qy)
	return c.fromCoords(rx, ry)
}

// Sqrt extracts a square root in the secp256k1 base field
func (c *Secp256k1Curve) Sqrt(alpha *big.Int) (*big.Int, bool) {
	a := new(big.Int).Mod(alpha, secp256k1Params.P)

	var val, root btcec.FieldVal
	val.SetByteSlice(a.FillBytes(make([]byte, 32)))
	if !root.SquareRootVal(&val) {
		return nil, false
	}
	root.Normalize()

	b := root.Bytes()
	return new(big.Int).SetBytes(b[:]), true
}

// IsOnCurve reports whether (x, y) is on secp256k1
func (c *Secp256k1Curve) IsOnCurve(x, y *big.Int) bool {
	return btcec.S256().IsOnCurve(x, y)
}

// Order returns the order of the secp256k1 curve
func (c *Secp256k1Curve) Order() *big.Int {
	return secp256k1Params.N
}

// GenerateScalar generates a cryptographically secure random scalar
func (c *Secp256k1Curve) GenerateScalar() (*big.Int, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate scalar: %w", err)
	}

	return new(big.Int).SetBytes(privKey.Serialize()), nil
}

// ValidatePoint validates that a point is on the curve and not the identity
func (c *Secp256k1Curve) ValidatePoint(p Point) error {
	return validate(c, p)
}

// fromCoords wraps btcec output; btcec reports the point at infinity as (0, 0).
func (c *Secp256k1Curve) fromCoords(x, y *big.Int) Point {
	if x.Sign() == 0 && y.Sign() == 0 {
		return identity
	}
	return newAffine(x, y, 32)
}
