package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/allsmog/ringsig-go/internal/lsagtest"
	"github.com/allsmog/ringsig-go/pkg/cache"
	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/lsag"
	jwtpkg "github.com/allsmog/ringsig-go/pkg/jwt"
	"github.com/allsmog/ringsig-go/pkg/records"
	"github.com/allsmog/ringsig-go/pkg/storage"
)

type testService struct {
	handlers *Handlers
	router   http.Handler
	store    *storage.MemoryStore
	signer   *jwtpkg.ES256Signer
	keys     []lsagtest.KeyPair
}

func setupTestService(t *testing.T, crv curve.Curve, cfg lsag.Config, rc RouterConfig) *testService {
	t.Helper()

	store := storage.NewMemoryStore(time.Hour)
	t.Cleanup(func() { store.Close() })

	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer, err := jwtpkg.NewES256Signer(privKey, "test-key", "https://verify.test.com")
	if err != nil {
		t.Fatalf("failed to create token signer: %v", err)
	}

	hashPoints := cache.NewHashPoints(16)
	verifier := lsag.NewVerifier(crv, cfg, lsag.WithHashPointCache(hashPoints))

	handlers := NewHandlers(store, verifier, signer, Config{
		Issuer:     "https://verify.test.com",
		Audience:   "test-api",
		ReceiptTTL: 5 * time.Minute,
	})
	handlers.AddStats("storage", store)
	handlers.AddStats("hash_points", hashPoints)

	if rc.ReceiptVerifier == nil {
		rc.ReceiptVerifier = jwtpkg.NewReceiptVerifier(signer.JWKS())
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &testService{
		handlers: handlers,
		router:   NewRouter(ctx, handlers, rc),
		store:    store,
		signer:   signer,
		keys:     lsagtest.FixedKeys(crv, 101, 202, 303),
	}
}

func setupToyService(t *testing.T) *testService {
	return setupTestService(t, lsagtest.Toy(), lsag.DefaultConfig(), RouterConfig{})
}

func (s *testService) do(t *testing.T, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testService) ring() lsag.Ring {
	return lsagtest.RingOf(s.keys)
}

func (s *testService) points() []records.Coords {
	ring := s.ring()
	out := make([]records.Coords, len(ring))
	for i, p := range ring {
		out[i] = records.NewCoords(p)
	}
	return out
}

// sign signs message as member idx with a deterministic nonce stream
func (s *testService) sign(t *testing.T, message string, idx int, nonce int64) *records.SignatureRecord {
	t.Helper()
	signer := lsagtest.NewSigner(s.handlers.verifier.Hasher(), lsagtest.Counter(nonce))
	sig, err := signer.Sign([]byte(message), s.ring(), idx, s.keys[idx].Priv)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return records.NewSignatureRecord(sig)
}

func (s *testService) register(t *testing.T) string {
	t.Helper()
	rr := s.do(t, "POST", "/rings", RingRequest{Points: s.points()})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp RingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode ring response: %v", err)
	}
	return resp.ID
}

func decodeVerify(t *testing.T, rr *httptest.ResponseRecorder) VerifyResponse {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp VerifyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	return resp
}

func strPtr(s string) *string {
	return &s
}

func TestHandlers_RegisterRing(t *testing.T) {
	s := setupToyService(t)

	t.Run("ValidRegistration", func(t *testing.T) {
		id := s.register(t)

		want, err := s.handlers.verifier.RingID(s.ring())
		if err != nil {
			t.Fatalf("failed to compute ring ID: %v", err)
		}
		if id != want {
			t.Errorf("expected ring ID %s, got %s", want, id)
		}

		stored, err := s.store.GetRing(id)
		if err != nil {
			t.Fatalf("ring should be stored: %v", err)
		}
		if stored.Curve != "toy" || stored.Profile != "default" || len(stored.Members) != 3 {
			t.Errorf("unexpected stored ring: %+v", stored)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		rr := s.do(t, "POST", "/rings", RingRequest{Points: s.points()})
		if rr.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rr.Code)
		}
	})

	t.Run("OrderMatters", func(t *testing.T) {
		pts := s.points()
		pts[0], pts[1] = pts[1], pts[0]
		rr := s.do(t, "POST", "/rings", RingRequest{Points: pts})
		if rr.Code != http.StatusCreated {
			t.Errorf("permuted ring is a different ring, got %d", rr.Code)
		}
	})

	t.Run("KeyIDs", func(t *testing.T) {
		keys := []string{"0201", "0202"}
		rr := s.do(t, "POST", "/rings", RingRequest{Keys: keys})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}

		ring, err := records.RingFromKeys(s.handlers.verifier.Hasher(), keys)
		if err != nil {
			t.Fatalf("failed to map keys: %v", err)
		}
		var resp RingResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Members[0] != hex.EncodeToString(ring[0].Bytes()) {
			t.Error("members should be the mapped curve points")
		}
	})

	tests := []struct {
		name string
		body interface{}
	}{
		{"InvalidJSON", "{"},
		{"EmptyRing", RingRequest{}},
		{"KeysAndPoints", RingRequest{Keys: []string{"0201"}, Points: s.points()}},
		{"ShortKey", RingRequest{Keys: []string{"02"}}},
		{"OffCurvePoint", `{"points": [["2", "5426"]]}`},
		{"CoordinateOutOfRange", `{"points": [["10009", "1"]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, "POST", "/rings", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandlers_GetRing(t *testing.T) {
	s := setupToyService(t)
	id := s.register(t)

	t.Run("Found", func(t *testing.T) {
		rr := s.do(t, "GET", "/rings/"+id, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp RingResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ID != id || resp.Size != 3 {
			t.Errorf("unexpected ring: %+v", resp)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rr := s.do(t, "GET", "/rings/deadbeef", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		rr := s.do(t, "GET", "/rings", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp struct {
			Rings []RingResponse `json:"rings"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if len(resp.Rings) != 1 {
			t.Errorf("expected 1 ring, got %d", len(resp.Rings))
		}
	})
}

func TestHandlers_Verify(t *testing.T) {
	s := setupToyService(t)
	id := s.register(t)
	verifier := jwtpkg.NewReceiptVerifier(s.signer.JWKS())

	t.Run("ValidByRingID", func(t *testing.T) {
		resp := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    id,
			Message:   strPtr("hello"),
			Signature: s.sign(t, "hello", 1, 4000),
		}))

		if !resp.Valid {
			t.Fatal("signature should verify")
		}
		if resp.RingID != id {
			t.Errorf("expected ring ID %s, got %s", id, resp.RingID)
		}
		if resp.Linked {
			t.Error("first signature should not be linked")
		}
		if resp.Receipt == "" || resp.ReceiptID == "" || resp.ExpiresIn != 300 {
			t.Fatalf("expected receipt, got %+v", resp)
		}

		claims, err := verifier.Verify(resp.Receipt, "test-api")
		if err != nil {
			t.Fatalf("receipt should verify: %v", err)
		}
		if claims.Ring.RingID != id || claims.Ring.Tag != resp.Tag || claims.Ring.Group != "toy" {
			t.Errorf("receipt claims mismatch: %+v", claims.Ring)
		}
		if claims.Ring.Encoding != "framed" {
			t.Errorf("expected framed encoding, got %s", claims.Ring.Encoding)
		}
		if claims.Ring.MsgHash != jwtpkg.MessageHash([]byte("hello")) {
			t.Error("receipt msg_hash mismatch")
		}
		if claims.ID != resp.ReceiptID {
			t.Error("receipt_id should be the jti")
		}
	})

	t.Run("InlinePoints", func(t *testing.T) {
		resp := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			Points:    s.points(),
			Message:   strPtr("hello"),
			Signature: s.sign(t, "hello", 1, 4000),
		}))
		if !resp.Valid || resp.RingID != id {
			t.Errorf("inline ring should verify under the registered ID, got %+v", resp)
		}
	})

	t.Run("MessageHex", func(t *testing.T) {
		resp := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:     id,
			MessageHex: hex.EncodeToString([]byte("hello")),
			Signature:  s.sign(t, "hello", 1, 4000),
		}))
		if !resp.Valid {
			t.Error("hex message should verify")
		}
	})

	t.Run("WrongMessage", func(t *testing.T) {
		resp := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    id,
			Message:   strPtr("iello"),
			Signature: s.sign(t, "hello", 1, 4000),
		}))
		if resp.Valid {
			t.Error("signature over another message should not verify")
		}
		if resp.Receipt != "" {
			t.Error("invalid signatures get no receipt")
		}
		if resp.Tag == "" {
			t.Error("tag should be reported for invalid signatures")
		}
	})

	t.Run("Linked", func(t *testing.T) {
		first := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    id,
			Message:   strPtr("vote: yes"),
			Signature: s.sign(t, "vote: yes", 2, 6000),
		}))
		if !first.Valid || first.Linked {
			t.Fatalf("first vote should be valid and unlinked, got %+v", first)
		}

		again := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    id,
			Message:   strPtr("vote: yes"),
			Signature: s.sign(t, "vote: yes", 2, 6100),
		}))
		if again.Linked {
			t.Error("resubmitting the same message should not be linked")
		}

		second := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    id,
			Message:   strPtr("vote: no"),
			Signature: s.sign(t, "vote: no", 2, 7000),
		}))
		if !second.Valid {
			t.Fatal("second vote should still verify")
		}
		if !second.Linked {
			t.Error("same tag on a different message should be linked")
		}
		if second.Tag != first.Tag {
			t.Error("one signer should produce one tag")
		}

		claims, err := verifier.Verify(second.Receipt, "test-api")
		if err != nil {
			t.Fatalf("receipt should verify: %v", err)
		}
		if !claims.Ring.Linked {
			t.Error("receipt should carry the linked flag")
		}
	})

	t.Run("RingNotFound", func(t *testing.T) {
		rr := s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    "deadbeef",
			Message:   strPtr("hello"),
			Signature: s.sign(t, "hello", 1, 4000),
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	tests := []struct {
		name string
		body func() interface{}
	}{
		{"InvalidJSON", func() interface{} { return "{" }},
		{"MissingMessage", func() interface{} {
			return VerifyRequest{RingID: id, Signature: s.sign(t, "hello", 1, 4000)}
		}},
		{"BothMessages", func() interface{} {
			return VerifyRequest{RingID: id, Message: strPtr("a"), MessageHex: "61", Signature: s.sign(t, "a", 1, 4000)}
		}},
		{"BadMessageHex", func() interface{} {
			return VerifyRequest{RingID: id, MessageHex: "zz", Signature: s.sign(t, "hello", 1, 4000)}
		}},
		{"MissingSignature", func() interface{} {
			return VerifyRequest{RingID: id, Message: strPtr("hello")}
		}},
		{"RingIDAndPoints", func() interface{} {
			return VerifyRequest{RingID: id, Points: s.points(), Message: strPtr("hello"), Signature: s.sign(t, "hello", 1, 4000)}
		}},
		{"NoRing", func() interface{} {
			return VerifyRequest{Message: strPtr("hello"), Signature: s.sign(t, "hello", 1, 4000)}
		}},
		{"SizeMismatch", func() interface{} {
			rec := s.sign(t, "hello", 1, 4000)
			rec.S = rec.S[:2]
			return VerifyRequest{RingID: id, Message: strPtr("hello"), Signature: rec}
		}},
		{"TagOffCurve", func() interface{} {
			return `{"ring_id": "` + id + `", "message": "hello", "signature": {"c_0": "1", "Y": ["2", "5426"], "s": ["1", "2", "3"]}}`
		}},
		{"MissingResponse", func() interface{} {
			rec := s.sign(t, "hello", 1, 4000)
			rec.S[1] = records.Int{}
			return VerifyRequest{RingID: id, Message: strPtr("hello"), Signature: rec}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, "POST", "/verify", tt.body())
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandlers_Denylist(t *testing.T) {
	s := setupToyService(t)
	id := s.register(t)

	rec := s.sign(t, "hello", 0, 8000)
	sig, err := rec.Signature(lsagtest.Toy())
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}
	tag := hex.EncodeToString(sig.Y.Bytes())
	verify := func() *httptest.ResponseRecorder {
		return s.do(t, "POST", "/verify", VerifyRequest{RingID: id, Message: strPtr("hello"), Signature: rec})
	}

	t.Run("Add", func(t *testing.T) {
		// compressed input is stored uncompressed
		y := sig.Y
		compressed := append([]byte{0x02 | byte(y.Y().Bit(0))}, y.Bytes()[1:3]...)

		rr := s.do(t, "POST", "/tags/denylist", DenylistRequest{Tag: hex.EncodeToString(compressed)})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}

		banned, _ := s.store.IsInDenylist(tag)
		if !banned {
			t.Error("tag should be denylisted")
		}
	})

	t.Run("VerifyForbidden", func(t *testing.T) {
		if rr := verify(); rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		rr := s.do(t, "GET", "/tags/denylist", nil)
		var resp struct {
			Tags []string `json:"tags"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if len(resp.Tags) != 1 || resp.Tags[0] != tag {
			t.Errorf("expected [%s], got %v", tag, resp.Tags)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		rr := s.do(t, "DELETE", "/tags/denylist/"+tag, nil)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		if rr := verify(); rr.Code != http.StatusOK {
			t.Errorf("expected 200 after removal, got %d", rr.Code)
		}
	})

	t.Run("InvalidTag", func(t *testing.T) {
		for _, bad := range []string{"", "zz", "0400000000"} {
			rr := s.do(t, "POST", "/tags/denylist", DenylistRequest{Tag: bad})
			if rr.Code != http.StatusBadRequest {
				t.Errorf("tag %q: expected 400, got %d", bad, rr.Code)
			}
		}
	})
}

func TestAdminToken(t *testing.T) {
	s := setupTestService(t, lsagtest.Toy(), lsag.DefaultConfig(), RouterConfig{AdminToken: "s3cret"})

	if rr := s.do(t, "GET", "/tags/denylist", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}
	if rr := s.do(t, "GET", "/admin/stats", nil, "Authorization", "Bearer wrong"); rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 with wrong token, got %d", rr.Code)
	}
	if rr := s.do(t, "GET", "/admin/stats", nil, "Authorization", "Bearer s3cret"); rr.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rr.Code)
	}
	if rr := s.do(t, "GET", "/health", nil); rr.Code != http.StatusOK {
		t.Errorf("health should stay public, got %d", rr.Code)
	}
}

func TestHandlers_JWKS(t *testing.T) {
	s := setupToyService(t)

	rr := s.do(t, "GET", "/.well-known/jwks.json", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc == "" {
		t.Error("expected Cache-Control header")
	}

	var jwks struct {
		Keys []map[string]interface{} `json:"keys"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &jwks); err != nil {
		t.Fatalf("failed to decode JWKS: %v", err)
	}
	if len(jwks.Keys) != 1 || jwks.Keys[0]["kid"] != "test-key" {
		t.Errorf("unexpected JWKS: %v", jwks.Keys)
	}

	t.Run("Disabled", func(t *testing.T) {
		h := NewHandlers(s.store, s.handlers.verifier, nil, Config{})
		rr := httptest.NewRecorder()
		h.JWKS(rr, httptest.NewRequest("GET", "/.well-known/jwks.json", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestHandlers_Introspect(t *testing.T) {
	s := setupToyService(t)
	id := s.register(t)

	resp := decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
		RingID:    id,
		Message:   strPtr("hello"),
		Signature: s.sign(t, "hello", 1, 4000),
	}))

	t.Run("Active", func(t *testing.T) {
		rr := s.do(t, "GET", "/receipts/introspect", nil, "Authorization", "Bearer "+resp.Receipt)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var out struct {
			Active bool          `json:"active"`
			Claims jwtpkg.Claims `json:"claims"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !out.Active || out.Claims.Ring == nil || out.Claims.Ring.RingID != id {
			t.Errorf("unexpected introspection: %+v", out)
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		if rr := s.do(t, "GET", "/receipts/introspect", nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("OtherCurve", func(t *testing.T) {
		token, _, err := jwtpkg.MintReceipt(s.signer, "https://verify.test.com", "test-api", jwtpkg.Receipt{
			Group: "secp256k1", RingID: id, Tag: resp.Tag, Message: []byte("hello"), Encoding: "framed",
		}, time.Minute)
		if err != nil {
			t.Fatalf("failed to mint receipt: %v", err)
		}
		if rr := s.do(t, "GET", "/receipts/introspect", nil, "Authorization", "Bearer "+token); rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})
}

func TestHandlers_HealthAndStats(t *testing.T) {
	s := setupToyService(t)
	id := s.register(t)

	for i := 0; i < 2; i++ {
		decodeVerify(t, s.do(t, "POST", "/verify", VerifyRequest{
			RingID:    id,
			Message:   strPtr("hello"),
			Signature: s.sign(t, "hello", 1, 4000),
		}))
	}

	rr := s.do(t, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var health map[string]string
	json.Unmarshal(rr.Body.Bytes(), &health)
	if health["status"] != "ok" || health["curve"] != "toy" {
		t.Errorf("unexpected health: %v", health)
	}

	rr = s.do(t, "GET", "/admin/stats", nil)
	var stats map[string]map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["storage"]["rings"] != 1 || stats["storage"]["tags"] != 1 {
		t.Errorf("unexpected storage stats: %v", stats["storage"])
	}
	if stats["hash_points"]["hits"] < 1 {
		t.Errorf("repeat verifications should hit the hash point cache: %v", stats["hash_points"])
	}

	t.Run("Unavailable", func(t *testing.T) {
		s.store.Close()
		if rr := s.do(t, "GET", "/health", nil); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503 after close, got %d", rr.Code)
		}
	})
}

func TestLegacyProfile(t *testing.T) {
	s := setupTestService(t, curve.NewSecp256k1(), lsag.LegacyConfig(), RouterConfig{})

	keysJSON, err := os.ReadFile(filepath.Join("..", "records", "testdata", "keys.json"))
	if err != nil {
		t.Fatalf("failed to read keys: %v", err)
	}
	sigJSON, err := os.ReadFile(filepath.Join("..", "records", "testdata", "res.json"))
	if err != nil {
		t.Fatalf("failed to read signature: %v", err)
	}

	body := `{"keys": ` + string(keysJSON) + `, "message": "hello", "signature": ` + string(sigJSON) + `}`
	resp := decodeVerify(t, s.do(t, "POST", "/verify", body))

	if !resp.Valid {
		t.Fatal("legacy signature should verify under the legacy profile")
	}
	if resp.RingID != "95aa80743a7c4031bdd4b490ac6a7aecd7672ff96d548ef8ab7dace50aa0526d" {
		t.Errorf("unexpected ring ID %s", resp.RingID)
	}

	claims, err := jwtpkg.NewReceiptVerifier(s.signer.JWKS()).Verify(resp.Receipt, "test-api")
	if err != nil {
		t.Fatalf("receipt should verify: %v", err)
	}
	if claims.Ring.Encoding != "concat" || claims.Ring.Group != "secp256k1" {
		t.Errorf("unexpected receipt claims: %+v", claims.Ring)
	}
}
