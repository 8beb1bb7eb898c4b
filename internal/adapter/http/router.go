package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/clienttx/internal/adapter/http/handler"
	"github.com/iho/clienttx/internal/adapter/http/middleware"
	"github.com/iho/clienttx/internal/infrastructure/metrics"
	"github.com/iho/clienttx/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	ClientTransactionHandler *handler.ClientTransactionHandler
	HealthHandler            *handler.HealthHandler
	IdempotencyStore         usecase.IdempotencyStore // optional
	IdempotencyTTL           time.Duration
	RateLimiter              *middleware.RateLimiter // optional
	Logger                   zerolog.Logger
	Metrics                  *metrics.Metrics // optional
	MetricsHandler           http.Handler     // optional, served at /metrics
	CORSAllowedOrigins       []string         // empty disables CORS
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders: []string{middleware.IdempotencyReplayHeader},
			MaxAge:         300,
		}))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger, cfg.Metrics)
			r.Use(idempotencyMiddleware.Wrap)
		}

		h := cfg.ClientTransactionHandler
		r.Route("/client-transactions/{ctid}/accounts/{accountID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/instructions", h.Submit)
			r.Get("/balances", h.GetBalances)
			r.Get("/latest", h.GetLatest)
			r.Get("/effects", h.GetEffects)
		})

		r.Get("/accounts/{accountID}/client-transactions", h.ListByAccount)
	})

	return r
}
