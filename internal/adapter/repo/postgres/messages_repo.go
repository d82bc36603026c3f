package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// MessageRepo persists thread messages.
type MessageRepo struct{ Pool PgxPool }

// NewMessageRepo constructs a MessageRepo with the given pool.
func NewMessageRepo(p PgxPool) *MessageRepo { return &MessageRepo{Pool: p} }

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	insertMessageSQL = `INSERT INTO messages (assessment_id, sender, text, kind, created_at) VALUES ($1,$2,$3,$4,$5) RETURNING id`
	listMessagesSQL  = `SELECT id, assessment_id, sender, text, kind, created_at FROM messages WHERE assessment_id=$1 ORDER BY created_at ASC, id ASC`
)

func insertMessage(ctx context.Context, q rowQuerier, m domain.Message) (domain.Message, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Kind == "" {
		m.Kind = domain.MessageKindText
	}
	if !m.Kind.Valid() {
		return domain.Message{}, fmt.Errorf("%w: unknown message kind %q", domain.ErrInvalidArgument, m.Kind)
	}
	if err := q.QueryRow(ctx, insertMessageSQL, m.AssessmentID, m.Sender, m.Text, string(m.Kind), m.CreatedAt).Scan(&m.ID); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func listMessages(ctx context.Context, q querier, assessmentID int64) ([]domain.Message, error) {
	rows, err := q.Query(ctx, listMessagesSQL, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Message, 0)
	for rows.Next() {
		var (
			m    domain.Message
			kind string
		)
		if err := rows.Scan(&m.ID, &m.AssessmentID, &m.Sender, &m.Text, &kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = domain.MessageKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create appends a message. A missing assessment yields ErrNotFound.
func (r *MessageRepo) Create(ctx domain.Context, m domain.Message) (domain.Message, error) {
	ctx, span := startSpan(ctx, "messages", "INSERT", "messages.Create")
	defer span.End()

	out, err := insertMessage(ctx, r.Pool, m)
	if err != nil {
		span.RecordError(err)
		return domain.Message{}, wrapErr("message.create", err)
	}
	return out, nil
}

// ListByAssessment returns the thread oldest first; empty when there is none.
func (r *MessageRepo) ListByAssessment(ctx domain.Context, assessmentID int64) ([]domain.Message, error) {
	ctx, span := startSpan(ctx, "messages", "SELECT", "messages.ListByAssessment")
	defer span.End()

	out, err := listMessages(ctx, r.Pool, assessmentID)
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr("message.list", err)
	}
	return out, nil
}
