package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// QuestionGenerator implements domain.QuestionGenerator on top of a completion client.
// It makes exactly one completion call per Generate.
type QuestionGenerator struct {
	client domain.CompletionClient
	policy config.QuestionPolicy
	now    func() time.Time
}

// NewQuestionGenerator constructs a QuestionGenerator.
func NewQuestionGenerator(client domain.CompletionClient, policy config.QuestionPolicy) *QuestionGenerator {
	return &QuestionGenerator{client: client, policy: policy, now: time.Now}
}

// Generate prompts for a fresh questionnaire and returns it normalized.
func (g *QuestionGenerator) Generate(ctx context.Context, excludedTopicIDs []string, language string) ([]domain.DynamicQuestion, error) {
	tracer := otel.Tracer("ai.generator")
	ctx, span := tracer.Start(ctx, "ai.Generate")
	defer span.End()

	code, name := g.policy.ResolveLanguage(language)
	span.SetAttributes(attribute.String("question.language", code), attribute.Int("question.excluded", len(excludedTopicIDs)))

	prompt := BuildQuestionPrompt(g.policy, name, excludedTopicIDs)
	raw, err := g.client.Complete(ctx, prompt, code)
	if err != nil {
		span.RecordError(err)
		return nil, classifyCompletionError(err)
	}

	qs, err := ParseQuestions(raw)
	if err != nil {
		span.RecordError(err)
		obsctx.LoggerFromContext(ctx).Warn("unparseable question output", slog.String("language", code), slog.Int("raw_len", len(raw)), slog.Any("error", err))
		return nil, err
	}
	if err := validateShape(qs); err != nil {
		span.RecordError(err)
		obsctx.LoggerFromContext(ctx).Warn("question output failed shape check", slog.String("language", code), slog.Any("error", err))
		return nil, err
	}

	createdAt := g.now().UTC()
	for i := range qs {
		qs[i].Language = code
		qs[i].CreatedAt = createdAt
	}
	return qs, nil
}

// classifyCompletionError keeps upstream kinds and folds anything else into ErrUpstreamUnavailable.
func classifyCompletionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUpstreamRateLimit),
		errors.Is(err, domain.ErrUpstreamTimeout),
		errors.Is(err, domain.ErrUpstreamUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("op=ai.generate: %w: %v", domain.ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("op=ai.generate: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
}

func validateShape(qs []domain.DynamicQuestion) error {
	if len(qs) != QuestionCount {
		return fmt.Errorf("op=ai.validate: %w: expected %d questions, got %d", domain.ErrUpstreamFormat, QuestionCount, len(qs))
	}
	for i, q := range qs {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("op=ai.validate: %w: question %d is empty", domain.ErrUpstreamFormat, i+1)
		}
		if len(q.Options) != OptionsPerQuestion {
			return fmt.Errorf("op=ai.validate: %w: question %d has %d options", domain.ErrUpstreamFormat, i+1, len(q.Options))
		}
		for j, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				return fmt.Errorf("op=ai.validate: %w: question %d option %d is empty", domain.ErrUpstreamFormat, i+1, j+1)
			}
			if !onResponsibilityScale(o.Value) {
				return fmt.Errorf("op=ai.validate: %w: question %d option %d value %v not on scale %v", domain.ErrUpstreamFormat, i+1, j+1, o.Value, ResponsibilityScale)
			}
		}
	}
	return nil
}

// scaleEpsilon absorbs float noise such as 0.7000000001 in model output.
const scaleEpsilon = 1e-6

func onResponsibilityScale(v float64) bool {
	for _, w := range ResponsibilityScale {
		if math.Abs(v-w) <= scaleEpsilon {
			return true
		}
	}
	return false
}
