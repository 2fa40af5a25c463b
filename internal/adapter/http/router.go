package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/finvault/vaultledger/internal/adapter/http/handler"
	"github.com/finvault/vaultledger/internal/adapter/http/middleware"
	"github.com/finvault/vaultledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	EntryHandler     *handler.EntryHandler
	VaultHandler     *handler.VaultHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Vaults
		r.Route("/vaults/{vaultID}", func(r chi.Router) {
			r.Post("/entries", cfg.EntryHandler.Append)
			r.Get("/entries", cfg.EntryHandler.ListByVault)
			r.Get("/state", cfg.VaultHandler.GetState)
			r.Get("/reconciliation", cfg.VaultHandler.Reconcile)
			r.Get("/users/{userID}/holding", cfg.VaultHandler.GetUserHolding)
			r.Get("/assets/{asset}/holding", cfg.VaultHandler.GetAssetHolding)
		})

		// Entries
		r.Route("/entries/{id}", func(r chi.Router) {
			r.Get("/", cfg.EntryHandler.Get)
			r.Post("/reverse", cfg.EntryHandler.Reverse)
			r.Put("/", cfg.EntryHandler.Reject)
			r.Delete("/", cfg.EntryHandler.Reject)
		})
	})

	return r
}
