package middleware

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ringjwt "github.com/allsmog/ringsig-go/pkg/jwt"
)

// Test helpers
func newTestSigner(t *testing.T) *ringjwt.ES256Signer {
	t.Helper()
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer, err := ringjwt.NewES256Signer(privateKey, "test-key", "https://verify.example.com")
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}

func createTestReceipt(t *testing.T, signer ringjwt.TokenSigner, audience, group string) string {
	t.Helper()
	token, _, err := ringjwt.MintReceipt(signer, "https://verify.example.com", audience, ringjwt.Receipt{
		Group:    group,
		RingID:   "ring-1",
		Tag:      "04aa",
		Message:  []byte("hello"),
		Encoding: "framed",
	}, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint receipt: %v", err)
	}
	return token
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
})

func TestReceiptMiddleware(t *testing.T) {
	signer := newTestSigner(t)
	middleware := ReceiptMiddleware(ringjwt.NewReceiptVerifier(signer.JWKS()), "test-audience")

	t.Run("ValidReceipt", func(t *testing.T) {
		token := createTestReceipt(t, signer, "test-audience", "secp256k1")

		req := httptest.NewRequest("GET", "/receipts/introspect", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetReceiptClaims(r)
			if !ok {
				t.Fatal("receipt claims should be in context")
			}
			if claims.Issuer != "https://verify.example.com" {
				t.Errorf("wrong issuer: %s", claims.Issuer)
			}
			if claims.Ring == nil || claims.Ring.Scheme != ringjwt.Scheme {
				t.Error("ring claims mismatch")
			}
			w.WriteHeader(http.StatusOK)
		})

		middleware(handler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})

	tests := []struct {
		name   string
		header string
	}{
		{"MissingAuthorization", ""},
		{"InvalidAuthorizationFormat", "Basic dXNlcjpwYXNz"},
		{"EmptyToken", "Bearer "},
		{"Garbage", "Bearer not.a.jwt"},
		{"WrongAudience", "Bearer " + createTestReceipt(t, signer, "other-audience", "secp256k1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/receipts/introspect", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			middleware(okHandler).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestRequireGroup(t *testing.T) {
	signer := newTestSigner(t)
	verify := ReceiptMiddleware(ringjwt.NewReceiptVerifier(signer.JWKS()), "test-audience")
	handler := verify(RequireGroup("secp256k1")(okHandler))

	t.Run("ValidGroup", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+createTestReceipt(t, signer, "test-audience", "secp256k1"))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("WrongGroup", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+createTestReceipt(t, signer, "test-audience", "toy"))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("NoClaims", func(t *testing.T) {
		rr := httptest.NewRecorder()

		RequireGroup("secp256k1")(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rr.Code)
		}
	})
}

func TestAdminToken(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		rr := httptest.NewRecorder()
		AdminToken("")(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/admin/stats", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"Valid", "Bearer s3cret", http.StatusOK},
		{"Missing", "", http.StatusUnauthorized},
		{"Wrong", "Bearer guess", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AdminToken("s3cret")(okHandler).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Run("Headers", func(t *testing.T) {
		rr := httptest.NewRecorder()
		CORS(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
		if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
			t.Errorf("expected CORS origin *, got %s", origin)
		}
		if methods := rr.Header().Get("Access-Control-Allow-Methods"); methods == "" {
			t.Error("expected CORS methods header")
		}
	})

	t.Run("Options", func(t *testing.T) {
		rr := httptest.NewRecorder()
		CORS(okHandler).ServeHTTP(rr, httptest.NewRequest("OPTIONS", "/test", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
		if body := rr.Body.String(); body != "" {
			t.Error("OPTIONS should not call next handler")
		}
	})
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ratelimited := RateLimit(ctx, 2, time.Minute)

	counter := 0
	baseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter++
		w.WriteHeader(http.StatusOK)
	})

	handler := ratelimited(baseHandler)

	req := httptest.NewRequest("POST", "/verify", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected request %d to succeed, got %d", i+1, rr.Code)
		}
	}

	resp3 := httptest.NewRecorder()
	handler.ServeHTTP(resp3, req)
	if resp3.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limit to trigger, got %d", resp3.Code)
	}
	if resp3.Header().Get("Retry-After") != "30" {
		t.Errorf("expected Retry-After 30, got %q", resp3.Header().Get("Retry-After"))
	}

	other := httptest.NewRequest("POST", "/verify", nil)
	other.RemoteAddr = "192.0.2.2:1234"
	resp4 := httptest.NewRecorder()
	handler.ServeHTTP(resp4, other)
	if resp4.Code != http.StatusOK {
		t.Fatalf("other clients should not be limited, got %d", resp4.Code)
	}

	if counter != 3 {
		t.Fatalf("expected handler to execute three times, ran %d times", counter)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(5, time.Minute)
	rl.getLimiter("192.0.2.1")
	rl.getLimiter("192.0.2.2")
	if rl.size() != 2 {
		t.Fatalf("expected 2 visitors, got %d", rl.size())
	}

	rl.sweep(time.Now().Add(-time.Hour))
	if rl.size() != 2 {
		t.Fatalf("recent visitors should survive, got %d", rl.size())
	}

	rl.sweep(time.Now().Add(time.Second))
	if rl.size() != 0 {
		t.Fatalf("stale visitors should be dropped, got %d", rl.size())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"RemoteAddr", "192.0.2.1:1234", "", "192.0.2.1"},
		{"NoPort", "192.0.2.1", "", "192.0.2.1"},
		{"ForwardedFor", "10.0.0.1:80", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
