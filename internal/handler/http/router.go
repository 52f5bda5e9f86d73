package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalogimporter/internal/service"
	"github.com/utafrali/catalogimporter/pkg/health"
	"github.com/utafrali/catalogimporter/pkg/middleware"
)

const serviceName = "catalog-importer"

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	MaxUploadBytes int64
	CORS           middleware.CORSConfig
	// PprofCIDRs enables /debug/pprof for the listed networks. Empty disables it.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all importer routes registered.
func NewRouter(
	importService *service.ImportService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	importHandler := NewImportHandler(importService, cfg.MaxUploadBytes, logger)

	r.Route("/api/v1/imports", func(r chi.Router) {
		r.Post("/", importHandler.StartImport)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ImportScope("id"))
			r.Get("/{id}", importHandler.GetImport)
			r.Get("/{id}/messages", importHandler.ListMessages)
			r.Post("/{id}/cancel", importHandler.CancelImport)
		})
	})

	return r
}
