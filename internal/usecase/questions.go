package usecase

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// QuestionScope prefixes limiter keys for question generation.
const QuestionScope = "questions"

// QuestionService guards and delegates dynamic question generation.
type QuestionService struct {
	Generator domain.QuestionGenerator
	Limiter   domain.Limiter
	// Store is nil unless generated questions are persisted.
	Store domain.DynamicQuestionRepository
}

// NewQuestionService constructs a QuestionService. limiter and store may be nil.
func NewQuestionService(g domain.QuestionGenerator, limiter domain.Limiter, store domain.DynamicQuestionRepository) QuestionService {
	return QuestionService{Generator: g, Limiter: limiter, Store: store}
}

// Generate returns a fresh question set for clientKey. A denied quota yields a
// *domain.RateLimitError before the provider is contacted.
func (s QuestionService) Generate(ctx domain.Context, clientKey string, excludedTopicIDs []string, language string) ([]domain.DynamicQuestion, error) {
	lg := obsctx.LoggerFromContext(ctx)
	if s.Limiter != nil {
		key := QuestionScope + ":" + strings.TrimSpace(clientKey)
		allowed, retryAfter, err := s.Limiter.Allow(ctx, key, 1)
		switch {
		case err != nil:
			lg.Warn("question quota check failed, allowing", slog.String("key", key), slog.Any("error", err))
		case !allowed:
			observability.RecordQuestionGeneration("rate_limited")
			return nil, &domain.RateLimitError{RetryAfter: retryAfter}
		}
	}
	qs, err := s.Generator.Generate(ctx, normalizeTopics(excludedTopicIDs), language)
	if err != nil {
		observability.RecordQuestionGeneration(strings.ToLower(domain.KindOf(err)))
		lg.Warn("question generation failed", slog.String("kind", domain.KindOf(err)), slog.Any("error", err))
		return nil, err
	}
	if s.Store != nil {
		if err := s.Store.SaveBatch(ctx, qs); err != nil {
			lg.Warn("generated questions not persisted", slog.Int("count", len(qs)), slog.Any("error", err))
		}
	}
	observability.RecordQuestionGeneration("ok")
	return qs, nil
}

func normalizeTopics(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
