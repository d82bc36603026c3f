// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the assessment, follow-up and question generation
// operations as a JSON API. Handlers translate requests into usecase
// calls and map domain error kinds onto HTTP status codes.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps a domain error code onto an HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeMalformedUpstream, domain.CodeUpstreamFormat, domain.CodeUpstreamRateLimit:
		return http.StatusBadGateway
	case domain.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		obsctx.LoggerFromContext(r.Context()).Error("request failed",
			slog.String("kind", kind),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		if status == http.StatusInternalServerError {
			// the cause stays in the logs; request_id links the two
			msg = http.StatusText(status)
			if details == nil {
				if rid := obsctx.RequestIDFromContext(r.Context()); rid != "" {
					details = map[string]string{"request_id": rid}
				}
			}
		}
	}
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: kind, Message: msg, Details: details}})
}
