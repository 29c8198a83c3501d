// internal/api/router.go
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/common/observability"
)

// NewRouter creates a chi router with all routes mounted. obs may be nil
// when otel metrics are not wanted (tests).
func NewRouter(classifier Classifier, extractor Extractor, obs *observability.Observability, log logger.Logger) chi.Router {
	h := NewHandler(classifier, extractor, obs, log)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(log))

	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/classify", h.Classify)
		r.Get("/templates/{id}/websites", h.TemplateMembers)
		r.Get("/stats", h.Statistics)
		r.Get("/export", h.Export)
	})

	return r
}
