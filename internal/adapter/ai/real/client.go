// Package real implements the completion client against an OpenAI-compatible
// chat completions endpoint (OpenRouter by default).
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

const (
	provider        = "openrouter"
	systemPrompt    = "You generate behavioral finance questionnaires. Reply with a JSON array only."
	maxSnippetBytes = 512
)

// Client implements domain.CompletionClient. It never retries; every failure is
// returned to the caller classified by kind.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a Client. The per-call deadline comes from cfg.AITimeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as the user message and returns the first choice's content.
func (c *Client) Complete(ctx domain.Context, prompt, language string) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	if c.cfg.AIAPIKey == "" {
		lg.Error("completion api key missing", slog.String("provider", provider))
		return "", fmt.Errorf("op=ai.complete: %w: AI_API_KEY missing", domain.ErrUpstreamUnavailable)
	}

	promptTokens := tokencount.DefaultCounter.Estimate(systemPrompt+prompt, c.cfg.AIModel)
	observability.RecordAITokens("prompt", c.cfg.AIModel, promptTokens)

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.AIModel,
		Temperature: 0.4,
		MaxTokens:   c.cfg.AIMaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("op=ai.complete: %w: %v", domain.ErrInternal, err)
	}

	if c.cfg.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AITimeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(c.cfg.AIBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=ai.complete: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AIReferer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.AIReferer)
	}
	if c.cfg.AITitle != "" {
		req.Header.Set("X-Title", c.cfg.AITitle)
	}
	if rid := obsctx.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	lg.Debug("calling completion provider",
		slog.String("provider", provider),
		slog.String("model", c.cfg.AIModel),
		slog.String("language", language),
		slog.Int("prompt_tokens", promptTokens))

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		observability.ObserveCompletion(provider, outcomeOf(classified), time.Since(start))
		lg.Warn("completion request failed", slog.String("provider", provider), slog.Any("error", err))
		return "", classified
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		observability.ObserveCompletion(provider, outcomeOf(classified), time.Since(start))
		return "", classified
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		classified := classifyStatus(resp.StatusCode)
		observability.ObserveCompletion(provider, outcomeOf(classified), time.Since(start))
		lg.Warn("completion provider non-2xx",
			slog.String("provider", provider),
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.cfg.AIModel),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(raw)))
		return "", classified
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.ObserveCompletion(provider, "malformed", time.Since(start))
		return "", fmt.Errorf("op=ai.complete: %w: decode envelope: %v", domain.ErrMalformedUpstream, err)
	}
	if len(out.Choices) == 0 {
		observability.ObserveCompletion(provider, "malformed", time.Since(start))
		return "", fmt.Errorf("op=ai.complete: %w: empty choices", domain.ErrMalformedUpstream)
	}
	observability.ObserveCompletion(provider, "ok", time.Since(start))

	content := out.Choices[0].Message.Content
	observability.RecordAITokens("completion", c.cfg.AIModel, tokencount.DefaultCounter.Estimate(content, c.cfg.AIModel))
	if out.Model != "" && out.Model != c.cfg.AIModel {
		lg.Info("provider substituted model", slog.String("requested_model", c.cfg.AIModel), slog.String("actual_model", out.Model))
	}
	lg.Info("completion succeeded",
		slog.String("provider", provider),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		slog.Int("content_len", len(content)))
	return content, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("op=ai.complete: %w: %v", domain.ErrUpstreamTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("op=ai.complete: %w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("op=ai.complete: %w: %v", domain.ErrUpstreamUnavailable, err)
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired:
		return fmt.Errorf("op=ai.complete: %w: status %d", domain.ErrUpstreamRateLimit, code)
	case code == http.StatusGatewayTimeout || code == http.StatusRequestTimeout:
		return fmt.Errorf("op=ai.complete: %w: status %d", domain.ErrUpstreamTimeout, code)
	default:
		return fmt.Errorf("op=ai.complete: %w: status %d", domain.ErrUpstreamUnavailable, code)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return "rate_limited"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	default:
		return "unavailable"
	}
}

func snippet(b []byte) string {
	if len(b) > maxSnippetBytes {
		b = b[:maxSnippetBytes]
	}
	return string(b)
}
