package lsag

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
)

// Ring is an ordered list of public keys. Order is part of every hashed
// transcript, so a permuted ring is a different ring.
type Ring []curve.Point

// Signature is an LSAG signature.
type Signature struct {
	C0 *big.Int    // opening challenge
	S  []*big.Int  // responses, index-aligned with the ring
	Y  curve.Point // linkability tag
}

// VerificationResult carries the outcome of Check together with the values
// derived along the way.
type VerificationResult struct {
	Valid     bool
	Closing   *big.Int    // challenge recomputed after the last member
	HashPoint curve.Point // H2(ring)
	RingID    string      // hex digest of the ring transcript
	Tag       string      // hex SEC1 encoding of Y
}

// HashPointCache memoises H2(ring). Implementations must be safe for
// concurrent use.
type HashPointCache interface {
	Get(key string) (curve.Point, bool)
	Add(key string, p curve.Point)
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHashPointCache makes the verifier look up ring hash points in c.
func WithHashPointCache(c HashPointCache) Option {
	return func(v *Verifier) {
		v.cache = c
	}
}

// Verifier checks LSAG signatures on one curve under one config.
// It is safe for concurrent use.
type Verifier struct {
	hasher *Hasher
	cache  HashPointCache
}

// NewVerifier creates a verifier for crv and cfg.
func NewVerifier(crv curve.Curve, cfg Config, opts ...Option) *Verifier {
	v := &Verifier{hasher: NewHasher(crv, cfg)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Hasher returns the verifier's H1/H2 implementation
func (v *Verifier) Hasher() *Hasher {
	return v.hasher
}

// Verify reports whether sig is a valid signature of message by some member
// of ring. Malformed input and curve failures are returned as errors, never
// as false.
func (v *Verifier) Verify(message []byte, ring Ring, sig *Signature) (bool, error) {
	res, err := v.Check(message, ring, sig)
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

// Check verifies sig and returns the closing challenge and ring hash point
// alongside the result.
func (v *Verifier) Check(message []byte, ring Ring, sig *Signature) (*VerificationResult, error) {
	cs, id, hp, err := v.walk(message, ring, sig)
	if err != nil {
		return nil, err
	}
	closing := cs[len(cs)-1]
	return &VerificationResult{
		Valid:     closing.Cmp(sig.C0) == 0,
		Closing:   closing,
		HashPoint: hp,
		RingID:    id,
		Tag:       hex.EncodeToString(sig.Y.Bytes()),
	}, nil
}

// Challenges returns c[0..n]: the opening challenge, the n-1 intermediate
// challenges and the closing challenge.
func (v *Verifier) Challenges(message []byte, ring Ring, sig *Signature) ([]*big.Int, error) {
	cs, _, _, err := v.walk(message, ring, sig)
	return cs, err
}

// RingID returns the hex digest of the ring transcript. H2(ring) is the
// curve point mapped from this digest.
func (v *Verifier) RingID(ring Ring) (string, error) {
	if len(ring) == 0 {
		return "", ErrEmptyRing
	}
	sum, err := v.hasher.Digest(RingTranscript(ring)...)
	if err != nil {
		return "", fmt.Errorf("%w: ring: %w", ErrMalformedInput, err)
	}
	return hex.EncodeToString(sum), nil
}

// HashPoint returns H2(ring), consulting the cache when one is configured.
func (v *Verifier) HashPoint(ring Ring) (curve.Point, error) {
	id, err := v.RingID(ring)
	if err != nil {
		return nil, err
	}
	return v.hashPoint(id)
}

func (v *Verifier) hashPoint(id string) (curve.Point, error) {
	key := v.cacheKey(id)
	if v.cache != nil {
		if p, ok := v.cache.Get(key); ok {
			return p, nil
		}
	}

	x, ok := new(big.Int).SetString(id, 16)
	if !ok {
		return nil, fmt.Errorf("invalid ring id %q", id)
	}
	p, err := v.hasher.MapToCurve(x)
	if err != nil {
		return nil, err
	}

	if v.cache != nil {
		v.cache.Add(key, p)
	}
	return p, nil
}

func (v *Verifier) cacheKey(id string) string {
	return v.hasher.curve.Name() + "/" + v.hasher.cfg.String() + "/" + id
}

// chain is the data shared by every step of the challenge walk.
type chain struct {
	ring      Ring
	tag       curve.Point
	message   []byte
	hashPoint curve.Point
}

// next advances the walk past one ring member:
//
//	z1 = s·G + c·member
//	z2 = s·H + c·Y
//	c' = H1(ring, Y, message, z1, z2)
func (v *Verifier) next(ch *chain, member curve.Point, s, c *big.Int) (*big.Int, error) {
	crv := v.hasher.curve
	z1 := crv.Add(crv.ScalarBaseMult(s), crv.ScalarMult(member, c))
	z2 := crv.Add(crv.ScalarMult(ch.hashPoint, s), crv.ScalarMult(ch.tag, c))
	return v.hasher.H1(ChallengeTranscript(ch.ring, ch.tag, ch.message, z1, z2)...)
}

// walk folds next over the ring starting from C0.
func (v *Verifier) walk(message []byte, ring Ring, sig *Signature) ([]*big.Int, string, curve.Point, error) {
	if err := v.validate(ring, sig); err != nil {
		return nil, "", nil, err
	}

	id, err := v.RingID(ring)
	if err != nil {
		return nil, "", nil, err
	}
	hp, err := v.hashPoint(id)
	if err != nil {
		return nil, "", nil, err
	}

	ch := &chain{ring: ring, tag: sig.Y, message: message, hashPoint: hp}
	cs := make([]*big.Int, 1, len(ring)+1)
	cs[0] = new(big.Int).Set(sig.C0)
	for i, member := range ring {
		c, err := v.next(ch, member, sig.S[i], cs[i])
		if err != nil {
			return nil, "", nil, fmt.Errorf("challenge %d: %w", i+1, err)
		}
		cs = append(cs, c)
	}
	return cs, id, hp, nil
}

func (v *Verifier) validate(ring Ring, sig *Signature) error {
	if len(ring) == 0 {
		return ErrEmptyRing
	}
	if sig == nil {
		return fmt.Errorf("%w: nil signature", ErrMalformedInput)
	}
	if len(sig.S) != len(ring) {
		return fmt.Errorf("%w: got %d responses for %d members", ErrRingSizeMismatch, len(sig.S), len(ring))
	}
	if sig.C0 == nil {
		return fmt.Errorf("%w: missing c0", ErrMalformedInput)
	}
	for i, s := range sig.S {
		if s == nil {
			return fmt.Errorf("%w: missing response %d", ErrMalformedInput, i)
		}
	}

	crv := v.hasher.curve
	if err := crv.ValidatePoint(sig.Y); err != nil {
		return fmt.Errorf("%w: tag: %w", ErrMalformedInput, err)
	}
	for i, member := range ring {
		if err := crv.ValidatePoint(member); err != nil {
			return fmt.Errorf("%w: ring member %d: %w", ErrMalformedInput, i, err)
		}
	}
	return nil
}
