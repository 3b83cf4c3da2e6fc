// Package curve provides the elliptic curve group used by the ring signature
// verifier.
//
// # Supported Curves
//
// Every curve is a short Weierstrass curve over a prime field:
//
//	y² = x³ + a·x + b (mod p)
//
// with a generator G of prime order n. Two backends implement the Curve
// interface:
//
//   - secp256k1: The curve used by Bitcoin and Ethereum (a = 0, b = 7). Backed
//     by btcec, which provides constant-time field arithmetic and square roots.
//
//   - Weierstrass: A generic math/big backend for arbitrary parameters. It is
//     used for operator supplied curves and for small test curves where the
//     whole group can be enumerated.
//
// # Points and Scalars
//
// Points are immutable affine (x, y) pairs or the point at infinity. They are
// produced by curve operations, by NewPoint (which validates coordinates) or
// by hash-to-curve; callers never build them from raw coordinates otherwise.
//
// Scalars are plain integers. Ring signature responses and challenges are not
// required to be reduced, so every multiplication reduces its scalar modulo
// the group order first (Euclidean, so negative scalars are accepted).
package curve

import (
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Point represents a point on an elliptic curve.
//
// A point is an (x, y) coordinate pair satisfying the curve equation, or the
// special "identity" point (point at infinity).
type Point interface {
	// Bytes returns the SEC1 uncompressed encoding 0x04 || x || y, with both
	// coordinates padded to the field size. The identity encodes as nil.
	Bytes() []byte

	// Equal checks if two points are equal.
	Equal(other Point) bool

	// IsIdentity checks if this is the identity point (point at infinity).
	IsIdentity() bool

	// X returns a copy of the affine x coordinate (nil for the identity).
	X() *big.Int

	// Y returns a copy of the affine y coordinate (nil for the identity).
	Y() *big.Int
}

// Params holds the constants of a short Weierstrass curve. A Params value is
// built once and must be treated as read-only afterwards.
type Params struct {
	Name string
	P    *big.Int // field modulus
	A    *big.Int // x coefficient
	B    *big.Int // constant coefficient
	Gx   *big.Int // generator x
	Gy   *big.Int // generator y
	N    *big.Int // order of G
}

// ByteSize is the length in bytes of one field element.
func (p *Params) ByteSize() int {
	return (p.P.BitLen() + 7) / 8
}

// Curve abstracts the elliptic curve operations needed to verify ring
// signatures.
//
// All implementations must reject coordinates outside [0, p) and points that
// do not satisfy the curve equation.
type Curve interface {
	// Name returns the curve identifier (e.g., "secp256k1").
	Name() string

	// Params returns the curve constants. The result must not be modified.
	Params() *Params

	// Generator returns the base point G.
	Generator() Point

	// NewPoint builds a point from affine coordinates, validating that both
	// are field elements and that the point lies on the curve.
	NewPoint(x, y *big.Int) (Point, error)

	// ParsePoint deserializes a SEC1 point (compressed or uncompressed).
	ParsePoint(b []byte) (Point, error)

	// ScalarBaseMult computes k * G.
	ScalarBaseMult(k *big.Int) Point

	// ScalarMult computes k * P.
	ScalarMult(p Point, k *big.Int) Point

	// Add computes P + Q.
	Add(p, q Point) Point

	// Sqrt returns a square root of alpha modulo p and true, or false when
	// alpha is a quadratic non-residue.
	Sqrt(alpha *big.Int) (*big.Int, bool)

	// IsOnCurve reports whether (x, y) satisfies the curve equation.
	IsOnCurve(x, y *big.Int) bool

	// Order returns n, the order of the generator.
	Order() *big.Int

	// GenerateScalar creates a uniformly random scalar in [1, n-1].
	GenerateScalar() (*big.Int, error)

	// ValidatePoint checks that a point is usable: on the curve, coordinates
	// in range and not the identity.
	ValidatePoint(p Point) error
}

var (
	// ErrInvalidPoint indicates an invalid point
	ErrInvalidPoint = fmt.Errorf("invalid point")

	// ErrIdentityPoint indicates the point is the identity point
	ErrIdentityPoint = fmt.Errorf("point is identity")

	// ErrPointNotOnCurve indicates the point is not on the curve
	ErrPointNotOnCurve = fmt.Errorf("point is not on curve")

	// ErrCoordinateRange indicates a coordinate outside [0, p)
	ErrCoordinateRange = fmt.Errorf("coordinate out of range")

	// ErrInvalidParams indicates unusable curve parameters
	ErrInvalidParams = fmt.Errorf("invalid curve parameters")
)

// affinePoint is the Point implementation shared by every backend.
type affinePoint struct {
	x, y *big.Int
	size int
}

var identity = &affinePoint{}

// Identity returns the point at infinity.
func Identity() Point {
	return identity
}

func newAffine(x, y *big.Int, size int) *affinePoint {
	return &affinePoint{x: new(big.Int).Set(x), y: new(big.Int).Set(y), size: size}
}

func (p *affinePoint) Bytes() []byte {
	if p.IsIdentity() {
		return nil
	}
	out := make([]byte, 1+2*p.size)
	out[0] = 0x04
	p.x.FillBytes(out[1 : 1+p.size])
	p.y.FillBytes(out[1+p.size:])
	return out
}

func (p *affinePoint) Equal(other Point) bool {
	if other == nil {
		return false
	}
	if p.IsIdentity() || other.IsIdentity() {
		return p.IsIdentity() && other.IsIdentity()
	}
	return subtle.ConstantTimeCompare(p.Bytes(), other.Bytes()) == 1
}

func (p *affinePoint) IsIdentity() bool {
	return p.x == nil
}

func (p *affinePoint) X() *big.Int {
	if p.x == nil {
		return nil
	}
	return new(big.Int).Set(p.x)
}

func (p *affinePoint) Y() *big.Int {
	if p.y == nil {
		return nil
	}
	return new(big.Int).Set(p.y)
}

func (p *affinePoint) String() string {
	if p.IsIdentity() {
		return "(inf)"
	}
	return fmt.Sprintf("(%s, %s)", p.x, p.y)
}

// coords unpacks a point into raw coordinates. ok is false for the identity
// or a nil point.
func coords(p Point) (x, y *big.Int, ok bool) {
	if p == nil || p.IsIdentity() {
		return nil, nil, false
	}
	if ap, isAffine := p.(*affinePoint); isAffine {
		return ap.x, ap.y, true
	}
	return p.X(), p.Y(), true
}

// reduceScalar maps an arbitrary integer into [0, n).
func reduceScalar(k, n *big.Int) *big.Int {
	if k == nil {
		return new(big.Int)
	}
	return new(big.Int).Mod(k, n)
}

// inField reports whether 0 <= v < p.
func inField(v, p *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(p) < 0
}

// RHS evaluates x³ + a·x + b mod p.
func (p *Params) RHS(x *big.Int) *big.Int {
	rhs := new(big.Int).Exp(x, big.NewInt(3), p.P)
	ax := new(big.Int).Mul(p.A, x)
	rhs.Add(rhs, ax)
	rhs.Add(rhs, p.B)
	return rhs.Mod(rhs, p.P)
}

// checkPoint validates raw coordinates against params.
func checkPoint(c Curve, x, y *big.Int) error {
	params := c.Params()
	if !inField(x, params.P) || !inField(y, params.P) {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrCoordinateRange)
	}
	if !c.IsOnCurve(x, y) {
		return ErrPointNotOnCurve
	}
	return nil
}

// validate is the ValidatePoint implementation shared by the backends.
func validate(c Curve, p Point) error {
	if p == nil {
		return ErrInvalidPoint
	}
	if p.IsIdentity() {
		return ErrIdentityPoint
	}
	x, y, _ := coords(p)
	return checkPoint(c, x, y)
}

// parseSEC1 decodes compressed (0x02/0x03) and uncompressed (0x04) points
// using only the generic Curve operations.
func parseSEC1(c Curve, b []byte) (Point, error) {
	size := c.Params().ByteSize()
	if len(b) == 0 {
		return nil, ErrInvalidPoint
	}

	switch {
	case b[0] == 0x04 && len(b) == 1+2*size:
		x := new(big.Int).SetBytes(b[1 : 1+size])
		y := new(big.Int).SetBytes(b[1+size:])
		return c.NewPoint(x, y)

	case (b[0] == 0x02 || b[0] == 0x03) && len(b) == 1+size:
		x := new(big.Int).SetBytes(b[1:])
		if !inField(x, c.Params().P) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPoint, ErrCoordinateRange)
		}
		y, ok := c.Sqrt(c.Params().RHS(x))
		if !ok {
			return nil, ErrPointNotOnCurve
		}
		if y.Bit(0) != uint(b[0]&1) {
			y.Sub(c.Params().P, y)
		}
		return c.NewPoint(x, y)

	default:
		return nil, fmt.Errorf("%w: unexpected encoding length %d", ErrInvalidPoint, len(b))
	}
}
