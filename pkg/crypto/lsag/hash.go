package lsag

import (
	"fmt"
	"math/big"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/transcript"
)

var one = big.NewInt(1)

// Hasher implements H1 and H2 for one curve and config. It holds no mutable
// state and is safe for concurrent use.
type Hasher struct {
	curve curve.Curve
	cfg   Config
}

// NewHasher binds the hash functions to crv and cfg.
func NewHasher(crv curve.Curve, cfg Config) *Hasher {
	return &Hasher{curve: crv, cfg: cfg}
}

// Curve returns the curve points are mapped onto
func (h *Hasher) Curve() curve.Curve {
	return h.curve
}

// Config returns the hash configuration
func (h *Hasher) Config() Config {
	return h.cfg
}

// Digest returns the raw digest of the encoded transcript.
func (h *Hasher) Digest(elems ...transcript.Element) ([]byte, error) {
	buf, err := h.cfg.Encoding.Encode(elems...)
	if err != nil {
		return nil, err
	}
	d := h.cfg.Digest.New()
	d.Write(buf)
	return d.Sum(nil), nil
}

// H1 hashes a transcript to a non-negative integer: the digest of its
// canonical encoding read big-endian.
func (h *Hasher) H1(elems ...transcript.Element) (*big.Int, error) {
	sum, err := h.Digest(elems...)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(sum), nil
}

// H2 hashes a transcript to a curve point: MapToCurve(H1(elems)).
func (h *Hasher) H2(elems ...transcript.Element) (curve.Point, error) {
	x, err := h.H1(elems...)
	if err != nil {
		return nil, err
	}
	return h.MapToCurve(x)
}

// MapToCurve returns the first curve point whose x coordinate is at or after
// x mod p, using try-and-increment.
//
// Candidates with no square root, or with the root 0, are skipped. Of the two
// roots ±beta the one satisfying the configured Parity becomes y. After
// MaxMapIterations candidates the search gives up with ErrSearchExhausted.
func (h *Hasher) MapToCurve(x *big.Int) (curve.Point, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil integer", ErrMalformedInput)
	}
	params := h.curve.Params()
	cand := new(big.Int).Mod(x, params.P)

	limit := h.cfg.mapIterations()
	for i := 0; i < limit; i++ {
		beta, ok := h.curve.Sqrt(params.RHS(cand))
		if ok && beta.Sign() != 0 {
			y := beta
			if !h.cfg.Parity.accepts(cand, beta) {
				y = new(big.Int).Sub(params.P, beta)
			}
			p, err := h.curve.NewPoint(cand, y)
			if err != nil {
				return nil, fmt.Errorf("map to curve: %w", err)
			}
			return p, nil
		}

		cand.Add(cand, one)
		if cand.Cmp(params.P) == 0 {
			cand.SetInt64(0)
		}
	}
	return nil, fmt.Errorf("%w: %d candidates on %s", ErrSearchExhausted, limit, h.curve.Name())
}

// RingTranscript is the transcript hashed by H2 to derive the ring's hash
// point.
func RingTranscript(ring Ring) []transcript.Element {
	return []transcript.Element{transcript.Points(ring)}
}

// ChallengeTranscript is the transcript hashed by H1 to derive the challenge
// following a ring member: [ring, Y, message, z1, z2].
func ChallengeTranscript(ring Ring, tag curve.Point, message []byte, z1, z2 curve.Point) []transcript.Element {
	return []transcript.Element{
		transcript.Points(ring),
		transcript.Point(tag),
		transcript.Bytes(message),
		transcript.Point(z1),
		transcript.Point(z2),
	}
}
