package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/allsmog/ringsig-go/pkg/jwt"
	mw "github.com/allsmog/ringsig-go/pkg/middleware"
)

// RouterConfig contains the transport settings of the service
type RouterConfig struct {
	Timeout    time.Duration // wall-clock cap per request
	RateLimit  int           // requests per minute per client, 0 disables
	AdminToken string        // bearer token for operator routes, empty disables
	Logging    bool          // chi request logging

	// ReceiptVerifier checks bearer receipts on /receipts/introspect. The
	// route is not mounted when nil.
	ReceiptVerifier jwt.TokenVerifier
}

// NewRouter mounts the handlers. ctx bounds background work such as the rate
// limiter sweeper.
func NewRouter(ctx context.Context, h *Handlers, cfg RouterConfig) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.RateLimit > 0 {
		r.Use(mw.RateLimit(ctx, cfg.RateLimit, time.Minute))
	}
	r.Use(mw.CORS)

	r.Get("/health", h.Health)

	r.Route("/rings", func(r chi.Router) {
		r.Post("/", h.RegisterRing)
		r.Get("/", h.ListRings)
		r.Get("/{id}", h.GetRing)
	})

	r.Post("/verify", h.Verify)

	r.Get("/.well-known/jwks.json", h.JWKS)

	if cfg.ReceiptVerifier != nil {
		r.With(
			mw.ReceiptMiddleware(cfg.ReceiptVerifier, h.config.Audience),
			mw.RequireGroup(h.curve().Name()),
		).Get("/receipts/introspect", h.Introspect)
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.AdminToken(cfg.AdminToken))

		r.Route("/tags/denylist", func(r chi.Router) {
			r.Get("/", h.ListDenylist)
			r.Post("/", h.AddToDenylist)
			r.Delete("/{tag}", h.RemoveFromDenylist)
		})

		r.Get("/admin/stats", h.Stats)
	})

	return r
}
