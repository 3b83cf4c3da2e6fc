package lsag

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/allsmog/ringsig-go/pkg/crypto/transcript"
)

// DefaultMaxMapIterations bounds the MapToCurve search. Roughly half of all
// field elements are valid x coordinates, so exhausting 256 candidates has
// probability about 2^-256 on a sound curve.
const DefaultMaxMapIterations = 256

// Digest selects the 256-bit hash behind H1.
type Digest uint8

const (
	SHA256 Digest = iota
	SHA3_256
)

// New returns a fresh hash.Hash for the digest.
func (d Digest) New() hash.Hash {
	switch d {
	case SHA3_256:
		return sha3.New256()
	default:
		return sha256.New()
	}
}

func (d Digest) String() string {
	switch d {
	case SHA256:
		return "sha256"
	case SHA3_256:
		return "sha3-256"
	default:
		return fmt.Sprintf("digest(%d)", uint8(d))
	}
}

// ParseDigest maps a digest name to a Digest.
func ParseDigest(name string) (Digest, error) {
	switch strings.ToLower(name) {
	case "sha256", "sha-256":
		return SHA256, nil
	case "sha3-256", "sha3":
		return SHA3_256, nil
	default:
		return 0, fmt.Errorf("unsupported digest: %s", name)
	}
}

// Parity decides which of the two square roots MapToCurve keeps as y.
type Parity uint8

const (
	// ParityOpposite picks y with parity different from x.
	ParityOpposite Parity = iota
	// ParitySame picks y with the same parity as x, as deployed signers do.
	ParitySame
)

func (p Parity) String() string {
	if p == ParitySame {
		return "same"
	}
	return "opposite"
}

// accepts reports whether beta is the root to keep for x.
func (p Parity) accepts(x, beta *big.Int) bool {
	same := x.Bit(0) == beta.Bit(0)
	if p == ParitySame {
		return same
	}
	return !same
}

// Config fixes every choice that changes hash outputs. A signer and a
// verifier interoperate only when their configs match.
type Config struct {
	Encoding         transcript.Encoding
	Digest           Digest
	Parity           Parity
	MaxMapIterations int
}

// DefaultConfig uses length-framed transcripts, SHA-256 and opposite parity.
func DefaultConfig() Config {
	return Config{
		Encoding:         transcript.Framed,
		Digest:           SHA256,
		Parity:           ParityOpposite,
		MaxMapIterations: DefaultMaxMapIterations,
	}
}

// LegacyConfig reproduces the deployed signer and verifier
// byte for byte: bare decimal concatenation, SHA-256, same-parity roots.
func LegacyConfig() Config {
	return Config{
		Encoding:         transcript.Concat,
		Digest:           SHA256,
		Parity:           ParitySame,
		MaxMapIterations: DefaultMaxMapIterations,
	}
}

// ConfigForProfile returns the config registered under name.
func ConfigForProfile(name string) (Config, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultConfig(), nil
	case "legacy":
		return LegacyConfig(), nil
	default:
		return Config{}, fmt.Errorf("unknown profile: %s", name)
	}
}

func (c Config) mapIterations() int {
	if c.MaxMapIterations <= 0 {
		return DefaultMaxMapIterations
	}
	return c.MaxMapIterations
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Encoding, c.Digest, c.Parity)
}
