package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allsmog/ringsig-go/pkg/api"
	"github.com/allsmog/ringsig-go/pkg/cache"
	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/lsag"
	"github.com/allsmog/ringsig-go/pkg/jwt"
	"github.com/allsmog/ringsig-go/pkg/records"
	"github.com/allsmog/ringsig-go/pkg/storage"
)

func main() {
	// Command line flags
	var (
		addr         = flag.String("addr", ":8080", "Server address")
		keyFile      = flag.String("key", "keys/receipt-signing.pem", "Receipt signing key file")
		configFile   = flag.String("config", "keys/receipt-config.json", "Receipt key config file")
		issuer       = flag.String("issuer", "https://ringverify.example", "Receipt issuer")
		audience     = flag.String("audience", "ringverify-api", "Receipt audience")
		receiptTTL   = flag.Duration("receipt-ttl", 5*time.Minute, "Receipt TTL")
		noReceipts   = flag.Bool("no-receipts", false, "Do not mint verification receipts")
		curveName    = flag.String("curve", "secp256k1", "Curve to use (secp256k1|toy)")
		curveParams  = flag.String("curve-params", "", "Curve parameter file; overrides -curve")
		profile      = flag.String("profile", "default", "Hash profile (default|legacy)")
		digest       = flag.String("digest", "", "Digest override (sha256|sha3-256)")
		maxIter      = flag.Int("max-map-iterations", lsag.DefaultMaxMapIterations, "MapToCurve iteration cap")
		cacheSize    = flag.Int("cache-size", cache.DefaultSize, "Ring hash point cache entries")
		tagRetention = flag.Duration("tag-retention", storage.DefaultTagRetention, "How long linkability tags are remembered")
		rateLimit    = flag.Int("rate-limit", 120, "Max requests per minute per client")
		timeout      = flag.Duration("timeout", 30*time.Second, "Per-request wall-clock cap")
		adminToken   = flag.String("admin-token", os.Getenv("RINGVERIFY_ADMIN_TOKEN"), "Bearer token for denylist and admin routes")
	)
	flag.Parse()

	log.Println("Starting ring signature verification service...")

	// Curve parameters are fixed for the life of the process
	var (
		activeCurve curve.Curve
		err         error
	)
	if *curveParams != "" {
		activeCurve, err = records.LoadCurve(*curveParams)
	} else {
		activeCurve, err = curve.FromName(*curveName)
	}
	if err != nil {
		log.Fatalf("Unsupported curve: %v", err)
	}
	log.Printf("Using curve: %s", activeCurve.Name())

	cfg, err := lsag.ConfigForProfile(*profile)
	if err != nil {
		log.Fatalf("Invalid profile: %v", err)
	}
	if *digest != "" {
		if cfg.Digest, err = lsag.ParseDigest(*digest); err != nil {
			log.Fatalf("Invalid digest: %v", err)
		}
	}
	cfg.MaxMapIterations = *maxIter
	log.Printf("Hash profile: %s (%s)", *profile, cfg)

	// Initialize storage (in-memory)
	store := storage.NewMemoryStore(*tagRetention)
	defer store.Close()
	log.Printf("Initialized in-memory storage, tag retention %v", *tagRetention)

	hashPoints := cache.NewHashPoints(*cacheSize)
	verifier := lsag.NewVerifier(activeCurve, cfg, lsag.WithHashPointCache(hashPoints))

	// Initialize receipt signer
	var (
		tokenSigner     jwt.TokenSigner
		receiptVerifier jwt.TokenVerifier
	)
	if !*noReceipts {
		signer, generated, err := jwt.LoadOrGenerateSigner(*keyFile, *configFile, "receipt-key-1", *issuer)
		if err != nil {
			log.Fatalf("Failed to create receipt signer: %v", err)
		}
		if generated {
			log.Printf("Generated new key pair: %s, %s", *keyFile, *configFile)
		}
		if signer.Issuer() != *issuer {
			log.Printf("Key config issuer %q differs from -issuer %q; using -issuer", signer.Issuer(), *issuer)
		}
		tokenSigner = signer
		receiptVerifier = jwt.NewReceiptVerifier(signer.JWKS())
		log.Printf("Loaded receipt signer with algorithm: %s", signer.Algorithm())
	} else {
		log.Println("Receipts disabled")
	}

	handlers := api.NewHandlers(store, verifier, tokenSigner, api.Config{
		Profile:    *profile,
		Issuer:     *issuer,
		Audience:   *audience,
		ReceiptTTL: *receiptTTL,
	})
	handlers.AddStats("storage", store)
	handlers.AddStats("hash_points", hashPoints)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(ctx, handlers, api.RouterConfig{
		Timeout:         *timeout,
		RateLimit:       *rateLimit,
		AdminToken:      *adminToken,
		Logging:         true,
		ReceiptVerifier: receiptVerifier,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on %s", *addr)
	log.Printf("Rate limit: %d requests/minute per client", *rateLimit)
	if *adminToken == "" {
		log.Println("Admin routes are unauthenticated")
	}
	log.Println()
	log.Println("Endpoints:")
	log.Println("  POST   /rings                    - Register a ring")
	log.Println("  GET    /rings/{id}               - Get a registered ring")
	log.Println("  POST   /verify                   - Verify a ring signature")
	log.Println("  GET    /.well-known/jwks.json    - Receipt signing keys")
	log.Println("  GET    /receipts/introspect      - Check a bearer receipt")
	log.Println("  GET    /tags/denylist            - List banned tags")
	log.Println("  POST   /tags/denylist            - Ban a tag")
	log.Println("  DELETE /tags/denylist/{tag}      - Unban a tag")
	log.Println("  GET    /health                   - Health check")
	log.Println("  GET    /admin/stats              - Storage and cache stats")
	log.Println()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
