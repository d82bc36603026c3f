package usecase

import (
	"log/slog"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// publish hands e to p after a committed write. Failures are logged, never returned.
func publish(ctx domain.Context, p domain.EventPublisher, e domain.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("event publish failed",
			slog.String("event_type", e.Type),
			slog.Int64("assessment_id", e.AssessmentID),
			slog.Any("error", err))
	}
}
