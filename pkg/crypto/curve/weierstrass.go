package curve

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// WeierstrassCurve implements Curve for arbitrary short Weierstrass
// parameters using math/big affine arithmetic.
//
// It is not constant time and is meant for verification only (public data),
// custom deployments and small test groups.
type WeierstrassCurve struct {
	params *Params
	size   int
	g      Point
}

// NewWeierstrass validates params and returns a curve for them.
//
// The field modulus must be an odd prime, the curve non-singular, G a point
// on the curve and n·G the identity.
func NewWeierstrass(params Params) (*WeierstrassCurve, error) {
	if params.P == nil || params.A == nil || params.B == nil ||
		params.Gx == nil || params.Gy == nil || params.N == nil {
		return nil, fmt.Errorf("%w: missing constant", ErrInvalidParams)
	}
	if params.P.Cmp(three) < 0 || !params.P.ProbablyPrime(20) {
		return nil, fmt.Errorf("%w: modulus is not an odd prime", ErrInvalidParams)
	}
	if params.N.Sign() <= 0 {
		return nil, fmt.Errorf("%w: order must be positive", ErrInvalidParams)
	}

	p := &Params{
		Name: params.Name,
		P:    new(big.Int).Set(params.P),
		A:    new(big.Int).Mod(params.A, params.P),
		B:    new(big.Int).Mod(params.B, params.P),
		Gx:   new(big.Int).Set(params.Gx),
		Gy:   new(big.Int).Set(params.Gy),
		N:    new(big.Int).Set(params.N),
	}
	if p.Name == "" {
		p.Name = "weierstrass"
	}

	// 4a³ + 27b² != 0 (mod p)
	disc := new(big.Int).Exp(p.A, three, p.P)
	disc.Mul(disc, big.NewInt(4))
	b2 := new(big.Int).Mul(p.B, p.B)
	b2.Mul(b2, big.NewInt(27))
	disc.Add(disc, b2).Mod(disc, p.P)
	if disc.Sign() == 0 {
		return nil, fmt.Errorf("%w: singular curve", ErrInvalidParams)
	}

	c := &WeierstrassCurve{params: p, size: p.ByteSize()}
	g, err := c.NewPoint(p.Gx, p.Gy)
	if err != nil {
		return nil, fmt.Errorf("%w: generator: %v", ErrInvalidParams, err)
	}
	c.g = g

	if !c.mul(g, p.N).IsIdentity() {
		return nil, fmt.Errorf("%w: generator order is not n", ErrInvalidParams)
	}
	return c, nil
}

// Name returns the configured curve name
func (c *WeierstrassCurve) Name() string {
	return c.params.Name
}

// Params returns the curve constants
func (c *WeierstrassCurve) Params() *Params {
	return c.params
}

// Generator returns G
func (c *WeierstrassCurve) Generator() Point {
	return c.g
}

// NewPoint validates (x, y) and returns it as a point
func (c *WeierstrassCurve) NewPoint(x, y *big.Int) (Point, error) {
	if err := checkPoint(c, x, y); err != nil {
		return nil, err
	}
	return newAffine(x, y, c.size), nil
}

// ParsePoint decodes a SEC1 point
func (c *WeierstrassCurve) ParsePoint(b []byte) (Point, error) {
	return parseSEC1(c, b)
}

// ScalarBaseMult computes k * G
func (c *WeierstrassCurve) ScalarBaseMult(k *big.Int) Point {
	return c.ScalarMult(c.g, k)
}

// ScalarMult computes k * P with k reduced mod n
func (c *WeierstrassCurve) ScalarMult(p Point, k *big.Int) Point {
	return c.mul(p, reduceScalar(k, c.params.N))
}

// mul is plain double-and-add on a non-negative scalar.
func (c *WeierstrassCurve) mul(p Point, k *big.Int) Point {
	result := Point(identity)
	if _, _, ok := coords(p); !ok || k.Sign() == 0 {
		return result
	}
	for i := k.BitLen() - 1; i >= 0; i-- {
		result = c.Add(result, result)
		if k.Bit(i) == 1 {
			result = c.Add(result, p)
		}
	}
	return result
}

// Add adds two points: P + Q
func (c *WeierstrassCurve) Add(p, q Point) Point {
	x1, y1, pok := coords(p)
	x2, y2, qok := coords(q)
	switch {
	case !pok && !qok:
		return identity
	case !pok:
		return q
	case !qok:
		return p
	}

	P := c.params.P
	var lambda *big.Int
	if x1.Cmp(x2) == 0 {
		sum := new(big.Int).Add(y1, y2)
		if sum.Mod(sum, P).Sign() == 0 {
			return identity
		}
		// λ = (3x² + a) / 2y
		num := new(big.Int).Mul(x1, x1)
		num.Mul(num, three).Add(num, c.params.A)
		den := new(big.Int).Mul(two, y1)
		lambda = num.Mul(num, new(big.Int).ModInverse(den.Mod(den, P), P))
	} else {
		// λ = (y2 - y1) / (x2 - x1)
		num := new(big.Int).Sub(y2, y1)
		den := new(big.Int).Sub(x2, x1)
		lambda = num.Mul(num, new(big.Int).ModInverse(den.Mod(den, P), P))
	}
	lambda.Mod(lambda, P)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, x1).Sub(x3, x2).Mod(x3, P)

	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, lambda).Sub(y3, y1).Mod(y3, P)

	return &affinePoint{x: x3, y: y3, size: c.size}
}

// Sqrt returns a square root of alpha mod p if one exists
func (c *WeierstrassCurve) Sqrt(alpha *big.Int) (*big.Int, bool) {
	a := new(big.Int).Mod(alpha, c.params.P)
	root := new(big.Int).ModSqrt(a, c.params.P)
	if root == nil {
		return nil, false
	}
	return root, true
}

// IsOnCurve reports whether y² = x³ + ax + b (mod p)
func (c *WeierstrassCurve) IsOnCurve(x, y *big.Int) bool {
	if !inField(x, c.params.P) || !inField(y, c.params.P) {
		return false
	}
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, c.params.P)
	return lhs.Cmp(c.params.RHS(x)) == 0
}

// Order returns n
func (c *WeierstrassCurve) Order() *big.Int {
	return c.params.N
}

// GenerateScalar returns a random scalar in [1, n-1]
func (c *WeierstrassCurve) GenerateScalar() (*big.Int, error) {
	max := new(big.Int).Sub(c.params.N, one)
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("failed to generate scalar: order too small")
	}
	k, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, fmt.Errorf("failed to generate scalar: %w", err)
	}
	return k.Add(k, one), nil
}

// ValidatePoint validates that a point is on the curve and not the identity
func (c *WeierstrassCurve) ValidatePoint(p Point) error {
	return validate(c, p)
}
