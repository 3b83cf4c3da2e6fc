package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/allsmog/ringsig-go/pkg/jwt"
)

// ContextKey is used for storing values in context
type ContextKey string

const (
	// ReceiptClaimsKey is the context key for verified receipt claims
	ReceiptClaimsKey ContextKey = "receipt_claims"
)

const bearerPrefix = "Bearer "

// bearerToken extracts the token from an Authorization: Bearer header
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if token == "" {
		return "", fmt.Errorf("empty bearer token")
	}
	return token, nil
}

// ReceiptMiddleware verifies a bearer verification receipt and stores its
// claims in the request context
func ReceiptMiddleware(verifier jwt.TokenVerifier, expectedAudience string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token, expectedAudience)
			if err != nil {
				http.Error(w, fmt.Sprintf("receipt verification failed: %v", err), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ReceiptClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetReceiptClaims extracts receipt claims from request context
func GetReceiptClaims(r *http.Request) (*jwt.Claims, bool) {
	claims, ok := r.Context().Value(ReceiptClaimsKey).(*jwt.Claims)
	return claims, ok
}

// RequireGroup ensures the receipt was issued for a specific curve
func RequireGroup(expectedCurve string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetReceiptClaims(r)
			if !ok {
				http.Error(w, "receipt claims required", http.StatusInternalServerError)
				return
			}

			if claims.Ring == nil {
				http.Error(w, "receipt missing ring claims", http.StatusForbidden)
				return
			}

			if claims.Ring.Group != expectedCurve {
				http.Error(w, fmt.Sprintf("invalid curve: expected %s, got %s", expectedCurve, claims.Ring.Group), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminToken guards operator routes with a static bearer token. An empty
// token disables the check.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := bearerToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid admin token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS middleware for browser clients
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
