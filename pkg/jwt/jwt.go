// Package jwt issues and checks verification receipts: ES256 JWTs stating
// that a ring signature verified, published through a JWKS.
package jwt

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Scheme is the value of ring.scheme in every receipt
const Scheme = "lsag"

// TokenSigner defines the interface for JWT signing
type TokenSigner interface {
	// Sign creates a JWT with the given claims
	Sign(claims map[string]interface{}) (string, error)

	// JWKS returns the public keys for JWT verification
	JWKS() jwk.Set

	// Algorithm returns the signing algorithm
	Algorithm() string
}

// TokenVerifier defines the interface for receipt verification
type TokenVerifier interface {
	// Verify verifies a receipt and returns its claims
	Verify(token string, expectedAudience string) (*Claims, error)
}

var (
	// ErrMissingRingClaims indicates a token without the ring claim set
	ErrMissingRingClaims = errors.New("token carries no ring claims")

	// ErrWrongScheme indicates a ring claim for another signature scheme
	ErrWrongScheme = errors.New("unexpected signature scheme")
)

// Claims represents the claims in a verification receipt
type Claims struct {
	Issuer    string      `json:"iss"`
	Subject   string      `json:"sub"`
	Audience  string      `json:"aud"`
	IssuedAt  int64       `json:"iat"`
	ExpiresAt int64       `json:"exp"`
	ID        string      `json:"jti"`
	Ring      *RingClaims `json:"ring,omitempty"`
}

// RingClaims describes the verified signature
type RingClaims struct {
	Scheme   string `json:"scheme"`   // "lsag"
	Group    string `json:"grp"`      // curve name
	RingID   string `json:"ring_id"`  // hex digest of the ring transcript
	Tag      string `json:"tag"`      // SEC1 hex of the linkability tag
	MsgHash  string `json:"msg_hash"` // base64url SHA-256 of the message
	Encoding string `json:"enc"`      // transcript encoding (framed|concat)
	Linked   bool   `json:"linked,omitempty"`
}

// ES256Signer implements JWT signing using ECDSA P-256
type ES256Signer struct {
	privateKey *ecdsa.PrivateKey
	keyID      string
	issuer     string
	jwks       jwk.Set
}

// NewES256Signer creates a new ES256 JWT signer
func NewES256Signer(privateKey *ecdsa.PrivateKey, keyID, issuer string) (*ES256Signer, error) {
	publicJWK, err := jwk.FromRaw(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from public key: %w", err)
	}

	for k, v := range map[string]interface{}{
		jwk.KeyIDKey:     keyID,
		jwk.AlgorithmKey: "ES256",
		jwk.KeyUsageKey:  "sig",
	} {
		if err := publicJWK.Set(k, v); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(publicJWK); err != nil {
		return nil, fmt.Errorf("failed to build JWKS: %w", err)
	}

	return &ES256Signer{
		privateKey: privateKey,
		keyID:      keyID,
		issuer:     issuer,
		jwks:       jwks,
	}, nil
}

// Sign creates a JWT with the given claims
func (s *ES256Signer) Sign(claims map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(claims))
	token.Header["kid"] = s.keyID

	tokenString, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, nil
}

// JWKS returns the public keys for JWT verification
func (s *ES256Signer) JWKS() jwk.Set {
	return s.jwks
}

// Algorithm returns the signing algorithm
func (s *ES256Signer) Algorithm() string {
	return "ES256"
}

// Issuer returns the configured issuer
func (s *ES256Signer) Issuer() string {
	return s.issuer
}

// ReceiptVerifier checks receipts against an issuer JWKS
type ReceiptVerifier struct {
	issuerJWKS jwk.Set
	leeway     time.Duration
}

// NewReceiptVerifier creates a verifier for receipts signed by keys in issuerJWKS
func NewReceiptVerifier(issuerJWKS jwk.Set) *ReceiptVerifier {
	return &ReceiptVerifier{
		issuerJWKS: issuerJWKS,
		leeway:     5 * time.Second,
	}
}

// Verify verifies a receipt and returns its claims
func (v *ReceiptVerifier) Verify(tokenString string, expectedAudience string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithAudience(expectedAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}

	claims, err := parseClaimsMap(claimsMap)
	if err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Ring == nil {
		return nil, ErrMissingRingClaims
	}
	if claims.Ring.Scheme != Scheme {
		return nil, fmt.Errorf("%w: %s", ErrWrongScheme, claims.Ring.Scheme)
	}

	return claims, nil
}

func (v *ReceiptVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("missing key ID")
	}

	key, ok := v.issuerJWKS.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key not found: %s", kid)
	}

	var publicKey ecdsa.PublicKey
	if err := key.Raw(&publicKey); err != nil {
		return nil, fmt.Errorf("failed to extract public key: %w", err)
	}

	return &publicKey, nil
}

// parseClaimsMap parses JWT claims map into structured Claims
func parseClaimsMap(claimsMap jwt.MapClaims) (*Claims, error) {
	claims := &Claims{}

	claims.Issuer, _ = claimsMap["iss"].(string)
	claims.Subject, _ = claimsMap["sub"].(string)
	claims.ID, _ = claimsMap["jti"].(string)

	switch aud := claimsMap["aud"].(type) {
	case string:
		claims.Audience = aud
	case []interface{}:
		if len(aud) > 0 {
			claims.Audience, _ = aud[0].(string)
		}
	}

	if iat, err := claimsMap.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Unix()
	}
	if exp, err := claimsMap.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Unix()
	}

	ringRaw, ok := claimsMap["ring"]
	if !ok {
		return claims, nil
	}
	ring, ok := ringRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ring claim is not an object")
	}

	claims.Ring = &RingClaims{}
	claims.Ring.Scheme, _ = ring["scheme"].(string)
	claims.Ring.Group, _ = ring["grp"].(string)
	claims.Ring.RingID, _ = ring["ring_id"].(string)
	claims.Ring.Tag, _ = ring["tag"].(string)
	claims.Ring.MsgHash, _ = ring["msg_hash"].(string)
	claims.Ring.Encoding, _ = ring["enc"].(string)
	claims.Ring.Linked, _ = ring["linked"].(bool)

	return claims, nil
}

// Receipt describes a successful verification to be attested
type Receipt struct {
	Group    string
	RingID   string
	Tag      string
	Message  []byte
	Encoding string
	Linked   bool
}

// MintReceipt signs a receipt for r and returns the token and its jti
func MintReceipt(signer TokenSigner, issuer, audience string, r Receipt, ttl time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	ring := map[string]interface{}{
		"scheme":   Scheme,
		"grp":      r.Group,
		"ring_id":  r.RingID,
		"tag":      r.Tag,
		"msg_hash": MessageHash(r.Message),
		"enc":      r.Encoding,
	}
	if r.Linked {
		ring["linked"] = true
	}

	claims := map[string]interface{}{
		"iss":  issuer,
		"sub":  TagSubject(r.Tag, r.RingID),
		"aud":  audience,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  jti,
		"ring": ring,
	}

	token, err := signer.Sign(claims)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// MessageHash is the base64url SHA-256 of a message, as carried in receipts
func MessageHash(message []byte) string {
	sum := sha256.Sum256(message)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// TagSubject derives an opaque subject for a tag within a ring. The same
// signer gets the same subject under one ring and unrelated subjects across
// rings.
func TagSubject(tag, ringID string) string {
	h := sha256.New()
	h.Write([]byte("ringsig/1/sub"))
	h.Write([]byte(tag))
	h.Write([]byte(ringID))

	return hex.EncodeToString(h.Sum(nil)[:16])
}
