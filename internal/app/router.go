// Package app wires HTTP routing and process-level readiness checks.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-credit-assessor/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestTimeout bounds every request; it must outlast the completion timeout.
func requestTimeout(cfg config.Config) time.Duration {
	d := 30 * time.Second
	if cfg.AITimeout+5*time.Second > d {
		d = cfg.AITimeout + 5*time.Second
	}
	return d
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(requestTimeout(cfg)))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.JSONOnly())

		// Customer-facing writes are limited per IP.
		v1.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
			}
			wr.Post("/customers", srv.RegisterCustomerHandler())
			wr.Post("/assessments", srv.SubmitAssessmentHandler())
			wr.Post("/assessments/{id}/documents", srv.UploadDocumentHandler())
			wr.Post("/questions/dynamic", srv.GenerateQuestionsHandler())
		})

		v1.Get("/customers/{id}/assessments/latest", srv.LatestAssessmentHandler())
		v1.Get("/assessments/{id}/documents", srv.ListDocumentsHandler())
		v1.Post("/assessments/{id}/messages", srv.PostMessageHandler())
		v1.Get("/assessments/{id}/messages", srv.GetMessagesHandler())

		// Bank-side review.
		v1.Group(func(rv chi.Router) {
			rv.Use(srv.ReviewerGuard())
			rv.Get("/assessments", srv.ListAssessmentsHandler())
			rv.Patch("/assessments/{id}/status", srv.UpdateStatusHandler())
			rv.Get("/assessments/{id}/status-history", srv.StatusHistoryHandler())
			rv.Post("/assessments/{id}/document-requests", srv.RequestDocumentsHandler())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/openapi.yaml", srv.OpenAPIServe())

	return httpserver.SecurityHeaders(r)
}
