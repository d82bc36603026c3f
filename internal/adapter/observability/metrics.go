package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of completion requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Completion request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
		[]string{"provider"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens exchanged with the completion provider",
		},
		[]string{"direction", "model"},
	)

	AssessmentsDecidedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_decided_total",
			Help: "Assessments stored, by automatic decision",
		},
		[]string{"status"},
	)
	AssessmentScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_score",
			Help:    "Distribution of submitted assessment scores",
			Buckets: []float64{300, 400, 500, 600, 700, 800, 900},
		},
	)
	StatusOverridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_overrides_total",
			Help: "Manual status overrides, by target status",
		},
		[]string{"to"},
	)
	DocumentRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "document_requests_total",
			Help: "Document-request messages posted by reviewers",
		},
	)
	DocumentsUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Documents stored",
		},
	)
	QuestionsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_generated_total",
			Help: "Dynamic question generations, by outcome",
		},
		[]string{"outcome"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Assessment events handed to the broker, by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AITokensTotal,
			AssessmentsDecidedTotal,
			AssessmentScore,
			StatusOverridesTotal,
			DocumentRequestsTotal,
			DocumentsUploadedTotal,
			QuestionsGeneratedTotal,
			EventsPublishedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveCompletion records one provider call.
func ObserveCompletion(provider, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordAITokens adds estimated prompt or completion tokens.
func RecordAITokens(direction, model string, tokens int) {
	if tokens > 0 {
		AITokensTotal.WithLabelValues(direction, model).Add(float64(tokens))
	}
}

// ObserveDecision records a stored assessment and its automatic status.
func ObserveDecision(status string, score int) {
	AssessmentsDecidedTotal.WithLabelValues(status).Inc()
	AssessmentScore.Observe(float64(score))
}

// RecordStatusOverride counts a reviewer override.
func RecordStatusOverride(to string) {
	StatusOverridesTotal.WithLabelValues(to).Inc()
}

// RecordDocumentRequest counts a document-request message.
func RecordDocumentRequest() { DocumentRequestsTotal.Inc() }

// RecordDocumentUpload counts a stored document.
func RecordDocumentUpload() { DocumentsUploadedTotal.Inc() }

// RecordQuestionGeneration counts a generation attempt by outcome (ok, rate_limited or an error code).
func RecordQuestionGeneration(outcome string) {
	QuestionsGeneratedTotal.WithLabelValues(outcome).Inc()
}

// RecordEventPublish counts an event handed to the broker.
func RecordEventPublish(eventType string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, outcome).Inc()
}
