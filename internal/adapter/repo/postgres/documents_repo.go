package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// DocumentRepo persists upload records.
type DocumentRepo struct{ Pool PgxPool }

// NewDocumentRepo constructs a DocumentRepo with the given pool.
func NewDocumentRepo(p PgxPool) *DocumentRepo { return &DocumentRepo{Pool: p} }

const listDocumentsSQL = `SELECT id, assessment_id, stored_name, original_name, storage_path, doc_type, uploaded_at
FROM documents WHERE assessment_id=$1 ORDER BY uploaded_at ASC, id ASC`

func listDocuments(ctx context.Context, q querier, assessmentID int64) ([]domain.Document, error) {
	rows, err := q.Query(ctx, listDocumentsSQL, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Document, 0)
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.AssessmentID, &d.StoredName, &d.OriginalName, &d.StoragePath, &d.DocType, &d.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateWithMessage inserts the document and its announcing message in one transaction.
func (r *DocumentRepo) CreateWithMessage(ctx domain.Context, d domain.Document, m domain.Message) (domain.Document, domain.Message, error) {
	ctx, span := startSpan(ctx, "documents", "INSERT", "documents.CreateWithMessage")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Document{}, domain.Message{}, wrapErr("document.create", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	d.UploadedAt = now
	q := `INSERT INTO documents (assessment_id, stored_name, original_name, storage_path, doc_type, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`
	if err := tx.QueryRow(ctx, q, d.AssessmentID, d.StoredName, d.OriginalName, d.StoragePath, d.DocType, d.UploadedAt).Scan(&d.ID); err != nil {
		span.RecordError(err)
		return domain.Document{}, domain.Message{}, wrapErr("document.create", err)
	}
	m.AssessmentID = d.AssessmentID
	m.CreatedAt = now
	m, err = insertMessage(ctx, tx, m)
	if err != nil {
		span.RecordError(err)
		return domain.Document{}, domain.Message{}, wrapErr("document.create_message", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Document{}, domain.Message{}, wrapErr("document.commit", err)
	}
	return d, m, nil
}

// ListByAssessment returns documents oldest first.
func (r *DocumentRepo) ListByAssessment(ctx domain.Context, assessmentID int64) ([]domain.Document, error) {
	ctx, span := startSpan(ctx, "documents", "SELECT", "documents.ListByAssessment")
	defer span.End()

	out, err := listDocuments(ctx, r.Pool, assessmentID)
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr("document.list", err)
	}
	return out, nil
}
