// Package lsag verifies linkable spontaneous anonymous group (LSAG) ring
// signatures.
//
// # Overview
//
// A ring signature proves that the holder of one private key out of an
// ordered list of public keys (the ring) signed a message, without revealing
// which one. The linkability tag Y = x·H2(ring) is fixed for a given key and
// ring, so two signatures carrying the same tag were made by the same key.
//
// # Hash Functions
//
//	H1(T) = int(digest(encode(T)))         // big-endian, non-negative
//	H2(T) = MapToCurve(H1(T))
//
// MapToCurve is try-and-increment: starting at x mod p it looks for the first
// x with x³ + ax + b a quadratic residue and picks one of the two roots by
// parity. The search is capped by Config.MaxMapIterations.
//
// # Verification
//
// Given c0, s[0..n-1] and Y, with H = H2(ring) computed once:
//
//	c[0]   = c0
//	z1     = s[i]·G + c[i]·ring[i]
//	z2     = s[i]·H + c[i]·Y
//	c[i+1] = H1(ring, Y, message, z1, z2)
//
// The signature is valid iff c[n] == c0. Only the real signer can close the
// chain, because only they can pick s for their own index after seeing the
// challenge.
//
// # Profiles
//
// DefaultConfig hashes length-framed transcripts. LegacyConfig hashes bare
// decimal concatenations with same-parity roots, which is what deployed
// signers produce; use it only for compatibility since its transcript
// encoding is ambiguous.
package lsag
