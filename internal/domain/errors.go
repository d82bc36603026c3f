package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamRateLimit   = errors.New("upstream rate limit")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamFormat      = errors.New("upstream format error")
	ErrStorage             = errors.New("storage failure")
	ErrInternal            = errors.New("internal error")

	// ErrMalformedUpstream is raised by the sanitizer. It wraps ErrUpstreamFormat so
	// callers can branch on either.
	ErrMalformedUpstream = fmt.Errorf("malformed upstream response: %w", ErrUpstreamFormat)
)

// Stable machine-readable error codes.
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeMalformedUpstream   = "MALFORMED_UPSTREAM_RESPONSE"
	CodeUpstreamFormat      = "UPSTREAM_FORMAT_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamRateLimit   = "UPSTREAM_RATE_LIMIT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeStorage             = "STORAGE_FAILURE"
	CodeInternal            = "INTERNAL"
)

// KindOf maps an error to its stable code. Order matters: the more specific
// sentinel is checked before the one it wraps.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrMalformedUpstream):
		return CodeMalformedUpstream
	case errors.Is(err, ErrUpstreamFormat):
		return CodeUpstreamFormat
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrUpstreamRateLimit):
		return CodeUpstreamRateLimit
	case errors.Is(err, ErrUpstreamTimeout):
		return CodeUpstreamTimeout
	case errors.Is(err, ErrUpstreamUnavailable):
		return CodeUpstreamUnavailable
	case errors.Is(err, ErrStorage):
		return CodeStorage
	default:
		return CodeInternal
	}
}

// RateLimitError is a local quota denial carrying the wait before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
