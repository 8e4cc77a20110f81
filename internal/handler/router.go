package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snowparadise/reactor/internal/middleware"
	"github.com/snowparadise/reactor/pkg/logger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 16 << 10

// RouterConfig holds everything the HTTP surface is built from.
type RouterConfig struct {
	JWTSecret         string
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	Health   *HealthHandler
	Keywords *KeywordHandler
	Reports  *ReportHandler
	Admin    *AdminHandler
	Logger   *logger.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.JSONBody(maxBodyBytes))

		r.Post("/search-keywords", cfg.Keywords.Record)
		r.Post("/reports", cfg.Reports.Create)
		r.Post("/admin/verify", cfg.Admin.Verify)
	})

	return r
}
