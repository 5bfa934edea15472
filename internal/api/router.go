// Package api assembles the HTTP surface of the assessment service.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/api/handlers"
	"github.com/scaleneo/bilan/internal/api/middleware"
	"github.com/scaleneo/bilan/internal/config"
	"github.com/scaleneo/bilan/internal/observability/metrics"
)

// NewRouter wires middleware and routes. Every route is stateless: the
// document or record travels with each request.
func NewRouter(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	records := handlers.NewRecordHandler(m, cfg.Server.MaxUploadBytes, logger)
	timeline := handlers.NewTimelineHandler(cfg.Batch, m, cfg.Server.MaxUploadBytes, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(cfg.Service.Name))
	r.Use(middleware.Metrics(m))

	r.Get("/health", health(cfg.Service))
	r.Get("/ready", health(cfg.Service))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBytes(cfg.Server.MaxUploadBytes))
		r.Mount("/records", records.Routes())
		r.Mount("/metrics", timeline.MetricsRoutes())
		r.Mount("/timeline", timeline.Routes())
	})

	return r
}

func health(svc config.ServiceConfig) http.HandlerFunc {
	body := fmt.Sprintf(`{"status":"healthy","service":%q,"version":%q}`, svc.Name, svc.Version)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}
