// Package lsagtest provides a reference LSAG signer and fixed fixtures for
// tests and examples. Nothing here is meant for production key handling.
package lsagtest

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/lsag"
)

// NonceSource yields the per-signature random scalars.
type NonceSource func() (*big.Int, error)

// Counter returns a deterministic NonceSource yielding start, start+1, ...
func Counter(start int64) NonceSource {
	next := big.NewInt(start)
	return func() (*big.Int, error) {
		k := new(big.Int).Set(next)
		next.Add(next, big.NewInt(1))
		return k, nil
	}
}

// Signer produces LSAG signatures the way deployed signers do.
type Signer struct {
	hasher *lsag.Hasher
	nonce  NonceSource
}

// NewSigner creates a signer. A nil nonce source draws from crypto/rand.
func NewSigner(h *lsag.Hasher, nonce NonceSource) *Signer {
	if nonce == nil {
		nonce = h.Curve().GenerateScalar
	}
	return &Signer{hasher: h, nonce: nonce}
}

// Sign signs message as ring member idx holding priv.
//
// The chain starts right after the signer: c[idx+1] = H1(ring, Y, m, u·G, u·H),
// walks the other members with random responses and closes with
// s[idx] = u - priv·c[idx] mod n.
func (s *Signer) Sign(message []byte, ring lsag.Ring, idx int, priv *big.Int) (*lsag.Signature, error) {
	n := len(ring)
	if idx < 0 || idx >= n {
		return nil, fmt.Errorf("signer index %d out of range for ring of %d", idx, n)
	}
	crv := s.hasher.Curve()
	if !crv.ScalarBaseMult(priv).Equal(ring[idx]) {
		return nil, errors.New("private key does not match ring member")
	}

	H, err := s.hasher.H2(lsag.RingTranscript(ring)...)
	if err != nil {
		return nil, err
	}
	Y := crv.ScalarMult(H, priv)

	c := make([]*big.Int, n)
	resp := make([]*big.Int, n)

	u, err := s.nonce()
	if err != nil {
		return nil, err
	}
	first := (idx + 1) % n
	c[first], err = s.hasher.H1(lsag.ChallengeTranscript(ring, Y, message, crv.ScalarBaseMult(u), crv.ScalarMult(H, u))...)
	if err != nil {
		return nil, err
	}

	for i := first; i != idx; i = (i + 1) % n {
		if resp[i], err = s.nonce(); err != nil {
			return nil, err
		}
		z1 := crv.Add(crv.ScalarBaseMult(resp[i]), crv.ScalarMult(ring[i], c[i]))
		z2 := crv.Add(crv.ScalarMult(H, resp[i]), crv.ScalarMult(Y, c[i]))
		c[(i+1)%n], err = s.hasher.H1(lsag.ChallengeTranscript(ring, Y, message, z1, z2)...)
		if err != nil {
			return nil, err
		}
	}

	last := new(big.Int).Mul(priv, c[idx])
	last.Sub(u, last).Mod(last, crv.Order())
	resp[idx] = last

	return &lsag.Signature{C0: c[0], S: resp, Y: Y}, nil
}

// KeyPair is a ring member together with its secret.
type KeyPair struct {
	Priv *big.Int
	Pub  curve.Point
}

// FixedKeys derives one key pair per secret.
func FixedKeys(crv curve.Curve, secrets ...int64) []KeyPair {
	keys := make([]KeyPair, len(secrets))
	for i, x := range secrets {
		priv := big.NewInt(x)
		keys[i] = KeyPair{Priv: priv, Pub: crv.ScalarBaseMult(priv)}
	}
	return keys
}

// GenerateKeys creates n random key pairs.
func GenerateKeys(crv curve.Curve, n int) ([]KeyPair, error) {
	keys := make([]KeyPair, n)
	for i := range keys {
		priv, err := crv.GenerateScalar()
		if err != nil {
			return nil, err
		}
		keys[i] = KeyPair{Priv: priv, Pub: crv.ScalarBaseMult(priv)}
	}
	return keys, nil
}

// RingOf returns the public half of keys in order.
func RingOf(keys []KeyPair) lsag.Ring {
	ring := make(lsag.Ring, len(keys))
	for i, k := range keys {
		ring[i] = k.Pub
	}
	return ring
}

// Toy returns the enumerable test curve.
func Toy() curve.Curve {
	crv, err := curve.NewWeierstrass(curve.ToyParams())
	if err != nil {
		panic(err)
	}
	return crv
}
