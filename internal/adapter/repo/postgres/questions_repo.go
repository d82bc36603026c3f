package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// QuestionRepo archives generated dynamic questions.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// SaveBatch stores a generated batch atomically.
func (r *QuestionRepo) SaveBatch(ctx domain.Context, qs []domain.DynamicQuestion) error {
	if len(qs) == 0 {
		return nil
	}
	ctx, span := startSpan(ctx, "dynamic_questions", "INSERT", "questions.SaveBatch")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapErr("question.save_batch", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO dynamic_questions (question_key, question, language, options, created_at) VALUES ($1,$2,$3,$4,$5)`
	for _, dq := range qs {
		opts, err := json.Marshal(dq.Options)
		if err != nil {
			return fmt.Errorf("op=question.save_batch: %w: %v", domain.ErrInternal, err)
		}
		if _, err := tx.Exec(ctx, q, dq.ID, dq.Question, dq.Language, opts, dq.CreatedAt); err != nil {
			span.RecordError(err)
			return wrapErr("question.save_batch", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("question.commit", err)
	}
	return nil
}
