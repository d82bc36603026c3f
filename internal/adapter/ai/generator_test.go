package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

type completionStub struct {
	out      string
	err      error
	calls    int
	prompt   string
	language string
}

func (s *completionStub) Complete(_ context.Context, prompt, language string) (string, error) {
	s.calls++
	s.prompt = prompt
	s.language = language
	return s.out, s.err
}

func newTestGenerator(c domain.CompletionClient) *QuestionGenerator {
	g := NewQuestionGenerator(c, config.DefaultQuestionPolicy())
	g.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return g
}

func TestQuestionGenerator_Success(t *testing.T) {
	t.Parallel()

	stub := &completionStub{out: "```json\n" + questionJSON(7) + "\n```"}
	qs, err := newTestGenerator(stub).Generate(context.Background(), []string{"emi_discipline"}, "hi")
	require.NoError(t, err)
	require.Len(t, qs, 7)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "hi", stub.language)
	assert.Contains(t, stub.prompt, "Hindi")
	assert.Contains(t, stub.prompt, "paying loan EMIs on time")
	for _, q := range qs {
		assert.Equal(t, "hi", q.Language)
		assert.Equal(t, 2024, q.CreatedAt.Year())
	}
}

func TestQuestionGenerator_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	stub := &completionStub{out: questionJSON(7)}
	qs, err := newTestGenerator(stub).Generate(context.Background(), nil, "xx")
	require.NoError(t, err)
	assert.Equal(t, "en", stub.language)
	assert.Equal(t, "en", qs[0].Language)
}

func TestQuestionGenerator_ShapeErrors(t *testing.T) {
	t.Parallel()

	threeOptions := `[{"question":"q","options":[{"text":"a","value":1},{"text":"b","value":0.7},{"text":"c","value":0.4}]}]`
	tests := []struct {
		name string
		out  string
	}{
		{name: "six_items", out: questionJSON(6)},
		{name: "eight_items", out: questionJSON(8)},
		{name: "empty_array", out: `[]`},
		{name: "three_options", out: threeOptions},
		{name: "all_mid_weights", out: regexp.MustCompile(`"value":[0-9.]+`).ReplaceAllString(questionJSON(7), `"value":0.55`)},
		{name: "one_weight_off", out: strings.Replace(questionJSON(7), `"value":0.4`, `"value":0.5`, 1)},
		{name: "above_one", out: strings.Replace(questionJSON(7), `"value":1.0`, `"value":1.3`, 1)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestGenerator(&completionStub{out: tt.out}).Generate(context.Background(), nil, "en")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUpstreamFormat))
		})
	}
}

func TestQuestionGenerator_ScaleToleratesFloatNoise(t *testing.T) {
	t.Parallel()

	out := strings.Replace(questionJSON(7), `"value":0.7`, `"value":0.7000000001`, 1)
	qs, err := newTestGenerator(&completionStub{out: out}).Generate(context.Background(), nil, "en")
	require.NoError(t, err)
	require.Len(t, qs, 7)
}

func TestQuestionGenerator_RejectionLogsCarryRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With(slog.String("request_id", "req-42"))
	ctx := obsctx.ContextWithLogger(context.Background(), logger)

	bad := regexp.MustCompile(`"value":[0-9.]+`).ReplaceAllString(questionJSON(7), `"value":0.55`)
	_, err := newTestGenerator(&completionStub{out: bad}).Generate(ctx, nil, "en")
	require.ErrorIs(t, err, domain.ErrUpstreamFormat)
	assert.Contains(t, buf.String(), "question output failed shape check")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	_, err = newTestGenerator(&completionStub{out: "no array here"}).Generate(ctx, nil, "en")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "unparseable question output")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestQuestionGenerator_MalformedOutput(t *testing.T) {
	t.Parallel()

	_, err := newTestGenerator(&completionStub{out: "Sorry, I can't do that."}).Generate(context.Background(), nil, "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedUpstream))
}

func TestQuestionGenerator_CompletionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		kind string
	}{
		{name: "rate_limit_kept", err: fmt.Errorf("x: %w", domain.ErrUpstreamRateLimit), kind: domain.CodeUpstreamRateLimit},
		{name: "deadline", err: context.DeadlineExceeded, kind: domain.CodeUpstreamTimeout},
		{name: "other", err: errors.New("connection reset"), kind: domain.CodeUpstreamUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stub := &completionStub{err: tt.err}
			_, err := newTestGenerator(stub).Generate(context.Background(), nil, "en")
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, 1, stub.calls)
		})
	}
}
