// Package api exposes ring registration, signature verification, the
// linkability tag denylist and verification receipts over HTTP.
package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/lsag"
	"github.com/allsmog/ringsig-go/pkg/crypto/transcript"
	"github.com/allsmog/ringsig-go/pkg/jwt"
	mw "github.com/allsmog/ringsig-go/pkg/middleware"
	"github.com/allsmog/ringsig-go/pkg/records"
	"github.com/allsmog/ringsig-go/pkg/storage"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// StatsSource reports counters for /admin/stats
type StatsSource interface {
	Stats() map[string]int
}

// Handlers contains all verification service handlers
type Handlers struct {
	store       storage.Store
	verifier    *lsag.Verifier
	tokenSigner jwt.TokenSigner
	config      Config
	stats       map[string]StatsSource
}

// Config contains configuration for the handlers
type Config struct {
	Profile    string        // hash profile name reported for registered rings
	Issuer     string        // receipt issuer
	Audience   string        // receipt audience
	ReceiptTTL time.Duration // receipt lifetime
}

// NewHandlers creates new handlers. tokenSigner may be nil, in which case no
// receipts are minted and the JWKS route answers 404.
func NewHandlers(
	store storage.Store,
	verifier *lsag.Verifier,
	tokenSigner jwt.TokenSigner,
	config Config,
) *Handlers {
	if config.Profile == "" {
		config.Profile = "default"
	}
	if config.ReceiptTTL <= 0 {
		config.ReceiptTTL = 5 * time.Minute
	}
	return &Handlers{
		store:       store,
		verifier:    verifier,
		tokenSigner: tokenSigner,
		config:      config,
		stats:       make(map[string]StatsSource),
	}
}

// AddStats publishes src under name in /admin/stats
func (h *Handlers) AddStats(name string, src StatsSource) {
	h.stats[name] = src
}

func (h *Handlers) curve() curve.Curve {
	return h.verifier.Hasher().Curve()
}

// RingRequest describes a ring either as hex key IDs or as explicit points
type RingRequest struct {
	Keys   []string         `json:"keys,omitempty"`   // key IDs, 2-char prefix + hex
	Points []records.Coords `json:"points,omitempty"` // [x, y] pairs
}

// RingResponse describes a registered ring
type RingResponse struct {
	ID        string    `json:"id"`
	Curve     string    `json:"curve"`
	Profile   string    `json:"profile"`
	Size      int       `json:"size"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// VerifyRequest is the body of POST /verify. Exactly one of RingID, Keys and
// Points selects the ring; exactly one of Message and MessageHex carries the
// message.
type VerifyRequest struct {
	RingID     string                   `json:"ring_id,omitempty"`
	Keys       []string                 `json:"keys,omitempty"`
	Points     []records.Coords         `json:"points,omitempty"`
	Message    *string                  `json:"message,omitempty"`
	MessageHex string                   `json:"message_hex,omitempty"`
	Signature  *records.SignatureRecord `json:"signature"`
}

// VerifyResponse is the result of POST /verify
type VerifyResponse struct {
	Valid     bool   `json:"valid"`
	RingID    string `json:"ring_id"`
	Tag       string `json:"tag"`
	Linked    bool   `json:"linked"`
	Receipt   string `json:"receipt,omitempty"`
	ReceiptID string `json:"receipt_id,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// DenylistRequest is the body of POST /tags/denylist
type DenylistRequest struct {
	Tag string `json:"tag"` // SEC1 hex, compressed or uncompressed
}

// ringFromRequest builds a ring from exactly one of keys or points
func (h *Handlers) ringFromRequest(keys []string, points []records.Coords) (lsag.Ring, error) {
	switch {
	case len(keys) > 0 && len(points) > 0:
		return nil, fmt.Errorf("%w: give keys or points, not both", lsag.ErrMalformedInput)
	case len(keys) > 0:
		return records.RingFromKeys(h.verifier.Hasher(), keys)
	case len(points) > 0:
		return records.RingFromCoords(h.curve(), points)
	default:
		return nil, lsag.ErrEmptyRing
	}
}

// ringFromStore rebuilds a registered ring
func (h *Handlers) ringFromStore(stored *storage.Ring) (lsag.Ring, error) {
	if stored.Curve != h.curve().Name() {
		return nil, fmt.Errorf("ring %s is registered on %s", stored.ID, stored.Curve)
	}
	ring := make(lsag.Ring, len(stored.Members))
	for i, m := range stored.Members {
		b, err := hex.DecodeString(m)
		if err != nil {
			return nil, fmt.Errorf("stored member %d: %w", i, err)
		}
		p, err := h.curve().ParsePoint(b)
		if err != nil {
			return nil, fmt.Errorf("stored member %d: %w", i, err)
		}
		ring[i] = p
	}
	return ring, nil
}

func ringResponse(r *storage.Ring) RingResponse {
	return RingResponse{
		ID:        r.ID,
		Curve:     r.Curve,
		Profile:   r.Profile,
		Size:      len(r.Members),
		Members:   r.Members,
		CreatedAt: r.CreatedAt,
	}
}

// RegisterRing handles POST /rings
func (h *Handlers) RegisterRing(w http.ResponseWriter, r *http.Request) {
	var req RingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	ring, err := h.ringFromRequest(req.Keys, req.Points)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid ring: %v", err), http.StatusBadRequest)
		return
	}

	id, err := h.verifier.RingID(ring)
	if err != nil {
		writeVerifyError(w, err)
		return
	}

	members := make([]string, len(ring))
	for i, p := range ring {
		members[i] = hex.EncodeToString(p.Bytes())
	}

	stored := &storage.Ring{
		ID:        id,
		Curve:     h.curve().Name(),
		Profile:   h.config.Profile,
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateRing(stored); err != nil {
		if errors.Is(err, storage.ErrRingExists) {
			http.Error(w, "ring already exists", http.StatusConflict)
		} else {
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, ringResponse(stored))
}

// GetRing handles GET /rings/{id}
func (h *Handlers) GetRing(w http.ResponseWriter, r *http.Request) {
	ring, err := h.store.GetRing(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrRingNotFound) {
			http.Error(w, "ring not found", http.StatusNotFound)
		} else {
			http.Error(w, "storage error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, ringResponse(ring))
}

// ListRings handles GET /rings
func (h *Handlers) ListRings(w http.ResponseWriter, r *http.Request) {
	rings, err := h.store.ListRings()
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	out := make([]RingResponse, len(rings))
	for i := range rings {
		out[i] = ringResponse(&rings[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rings": out})
}

// message returns the message carried by req
func (req *VerifyRequest) message() ([]byte, error) {
	switch {
	case req.Message != nil && req.MessageHex != "":
		return nil, fmt.Errorf("%w: give message or message_hex, not both", lsag.ErrMalformedInput)
	case req.Message != nil:
		return []byte(*req.Message), nil
	case req.MessageHex != "":
		b, err := hex.DecodeString(req.MessageHex)
		if err != nil {
			return nil, fmt.Errorf("%w: message_hex: %v", lsag.ErrMalformedInput, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: missing message", lsag.ErrMalformedInput)
	}
}

// resolveRing returns the ring named by req
func (h *Handlers) resolveRing(req *VerifyRequest) (lsag.Ring, error) {
	if req.RingID == "" {
		return h.ringFromRequest(req.Keys, req.Points)
	}
	if len(req.Keys) > 0 || len(req.Points) > 0 {
		return nil, fmt.Errorf("%w: give ring_id or an inline ring, not both", lsag.ErrMalformedInput)
	}
	stored, err := h.store.GetRing(req.RingID)
	if err != nil {
		return nil, err
	}
	return h.ringFromStore(stored)
}

// Verify handles POST /verify
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	message, err := req.message()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ring, err := h.resolveRing(&req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrRingNotFound):
			http.Error(w, "ring not found", http.StatusNotFound)
		case errors.Is(err, lsag.ErrMalformedInput):
			http.Error(w, fmt.Sprintf("invalid ring: %v", err), http.StatusBadRequest)
		default:
			http.Error(w, "failed to load ring", http.StatusInternalServerError)
		}
		return
	}

	if req.Signature == nil {
		http.Error(w, "missing signature", http.StatusBadRequest)
		return
	}
	sig, err := req.Signature.Signature(h.curve())
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid signature: %v", err), http.StatusBadRequest)
		return
	}

	tag := hex.EncodeToString(sig.Y.Bytes())
	banned, err := h.store.IsInDenylist(tag)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if banned {
		http.Error(w, "tag is denylisted", http.StatusForbidden)
		return
	}

	result, err := h.verifier.Check(message, ring, sig)
	if err != nil {
		writeVerifyError(w, err)
		return
	}

	response := VerifyResponse{
		Valid:  result.Valid,
		RingID: result.RingID,
		Tag:    result.Tag,
	}
	if !result.Valid {
		writeJSON(w, http.StatusOK, response)
		return
	}

	digest := sha256.Sum256(message)
	response.Linked, err = h.store.RecordSignature(result.RingID, result.Tag, hex.EncodeToString(digest[:]))
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	if h.tokenSigner != nil {
		token, jti, err := jwt.MintReceipt(h.tokenSigner, h.config.Issuer, h.config.Audience, jwt.Receipt{
			Group:    h.curve().Name(),
			RingID:   result.RingID,
			Tag:      result.Tag,
			Message:  message,
			Encoding: h.verifier.Hasher().Config().Encoding.String(),
			Linked:   response.Linked,
		}, h.config.ReceiptTTL)
		if err != nil {
			http.Error(w, "failed to mint receipt", http.StatusInternalServerError)
			return
		}
		response.Receipt = token
		response.ReceiptID = jti
		response.ExpiresIn = int64(h.config.ReceiptTTL.Seconds())
	}

	writeJSON(w, http.StatusOK, response)
}

// normalizeTag parses a SEC1 tag and returns its uncompressed hex form
func (h *Handlers) normalizeTag(tag string) (string, error) {
	b, err := hex.DecodeString(tag)
	if err != nil {
		return "", err
	}
	p, err := h.curve().ParsePoint(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(p.Bytes()), nil
}

// AddToDenylist handles POST /tags/denylist
func (h *Handlers) AddToDenylist(w http.ResponseWriter, r *http.Request) {
	var req DenylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	tag, err := h.normalizeTag(req.Tag)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid tag: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.store.AddToDenylist(tag); err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "denylisted", "tag": tag})
}

// RemoveFromDenylist handles DELETE /tags/denylist/{tag}
func (h *Handlers) RemoveFromDenylist(w http.ResponseWriter, r *http.Request) {
	tag, err := h.normalizeTag(chi.URLParam(r, "tag"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid tag: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.store.RemoveFromDenylist(tag); err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDenylist handles GET /tags/denylist
func (h *Handlers) ListDenylist(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListDenylist()
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

// JWKS returns the public keys for receipt verification
func (h *Handlers) JWKS(w http.ResponseWriter, r *http.Request) {
	if h.tokenSigner == nil {
		http.Error(w, "receipts are disabled", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, h.tokenSigner.JWKS())
}

// Introspect reports the claims of the bearer receipt. It must run behind
// middleware.ReceiptMiddleware.
func (h *Handlers) Introspect(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetReceiptClaims(r)
	if !ok {
		http.Error(w, "receipt claims required", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": true,
		"claims": claims,
	})
}

// Health reports whether the store is reachable
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ringverifyd",
		"curve":   h.curve().Name(),
		"profile": h.config.Profile,
	})
}

// Stats reports the registered counters
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]map[string]int, len(h.stats))
	for name, src := range h.stats {
		out[name] = src.Stats()
	}

	writeJSON(w, http.StatusOK, out)
}

// writeVerifyError maps verifier errors to status codes
func writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lsag.ErrMalformedInput), errors.Is(err, transcript.ErrUnencodable):
		http.Error(w, fmt.Sprintf("malformed input: %v", err), http.StatusBadRequest)
	default:
		http.Error(w, "verification error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
