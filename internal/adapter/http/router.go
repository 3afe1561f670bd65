package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fincasa/fincasa/internal/adapter/http/handler"
	"github.com/fincasa/fincasa/internal/adapter/http/middleware"
	"github.com/fincasa/fincasa/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	EntryHandler     *handler.EntryHandler
	SeriesHandler    *handler.SeriesHandler
	ReportHandler    *handler.ReportHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Every data operation is scoped to the caller identity.
		r.Use(middleware.CallerID)

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Entries
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.EntryHandler.Create)
			r.Get("/", cfg.EntryHandler.ListByPeriod)
			r.Get("/overdue", cfg.EntryHandler.ListOverdue)
			r.Get("/recurring", cfg.EntryHandler.ListRecurring)
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.Put("/{id}", cfg.EntryHandler.Update)
			r.Delete("/{id}", cfg.EntryHandler.Delete)
			r.Post("/{id}/pay", cfg.EntryHandler.MarkPaid)
			r.Post("/{id}/unpay", cfg.EntryHandler.MarkPending)
			r.Post("/{id}/cancel", cfg.EntryHandler.Cancel)
		})

		// Series
		r.Route("/series", func(r chi.Router) {
			r.Post("/", cfg.SeriesHandler.Create)
			r.Get("/{id}", cfg.SeriesHandler.Get)
			r.Put("/{id}", cfg.SeriesHandler.Update)
			r.Post("/{id}/occurrences", cfg.SeriesHandler.Generate)
		})

		// Scoped entry listings
		r.Get("/accounts/{id}/entries", cfg.EntryHandler.ListByAccount)
		r.Get("/categories/{id}/entries", cfg.EntryHandler.ListByCategory)

		// Reports
		r.Get("/reports/summary", cfg.ReportHandler.Summary)
	})

	return r
}
