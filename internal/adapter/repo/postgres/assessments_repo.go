package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// AssessmentRepo persists assessments and their status audit trail.
type AssessmentRepo struct{ Pool PgxPool }

// NewAssessmentRepo constructs an AssessmentRepo with the given pool.
func NewAssessmentRepo(p PgxPool) *AssessmentRepo { return &AssessmentRepo{Pool: p} }

const (
	assessmentColumns = `id, customer_id, score, status, answers, breakdown, language, created_at`

	defaultListLimit = 50
	maxListLimit     = 200
)

type assessmentRow struct {
	a         domain.Assessment
	status    string
	answers   []byte
	breakdown []byte
}

func (r *assessmentRow) dest() []any {
	return []any{&r.a.ID, &r.a.CustomerID, &r.a.Score, &r.status, &r.answers, &r.breakdown, &r.a.Language, &r.a.CreatedAt}
}

func (r *assessmentRow) decode() (domain.Assessment, error) {
	a := r.a
	a.Status = domain.Status(r.status)
	if len(r.answers) > 0 {
		if err := json.Unmarshal(r.answers, &a.Answers); err != nil {
			return domain.Assessment{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(r.breakdown) > 0 && string(r.breakdown) != "null" {
		var b domain.Breakdown
		if err := json.Unmarshal(r.breakdown, &b); err != nil {
			return domain.Assessment{}, fmt.Errorf("decode breakdown: %w", err)
		}
		a.Breakdown = &b
	}
	return a, nil
}

// touchCustomerSQL stamps last_accessed from the database clock; the value is
// strictly greater than the previous one.
const touchCustomerSQL = `UPDATE customers
SET last_accessed = GREATEST(clock_timestamp(), COALESCE(last_accessed, '-infinity'::timestamptz) + interval '1 microsecond')
WHERE id=$1 RETURNING last_accessed`

// CreateAndTouch inserts a and stamps the owner's last_accessed in one transaction.
// A missing customer yields ErrNotFound and nothing is written.
func (r *AssessmentRepo) CreateAndTouch(ctx domain.Context, a domain.Assessment) (domain.Assessment, error) {
	ctx, span := startSpan(ctx, "assessments", "INSERT", "assessments.CreateAndTouch")
	defer span.End()

	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("op=assessment.create: %w: %v", domain.ErrInvalidArgument, err)
	}
	var breakdown []byte
	if a.Breakdown != nil {
		if breakdown, err = json.Marshal(a.Breakdown); err != nil {
			return domain.Assessment{}, fmt.Errorf("op=assessment.create: %w: %v", domain.ErrInvalidArgument, err)
		}
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Assessment{}, wrapErr("assessment.create", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a.CreatedAt = time.Now().UTC()
	q := `INSERT INTO assessments (customer_id, score, status, answers, breakdown, language, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`
	if err := tx.QueryRow(ctx, q, a.CustomerID, a.Score, string(a.Status), answers, breakdown, a.Language, a.CreatedAt).Scan(&a.ID); err != nil {
		span.RecordError(err)
		return domain.Assessment{}, wrapErr("assessment.create", err)
	}
	var touched time.Time
	if err := tx.QueryRow(ctx, touchCustomerSQL, a.CustomerID).Scan(&touched); err != nil {
		span.RecordError(err)
		return domain.Assessment{}, wrapErr("assessment.touch_customer", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Assessment{}, wrapErr("assessment.commit", err)
	}
	return a, nil
}

// Latest returns the newest assessment of a customer with its messages and
// documents, read from one snapshot.
func (r *AssessmentRepo) Latest(ctx domain.Context, customerID int64) (domain.Assessment, error) {
	ctx, span := startSpan(ctx, "assessments", "SELECT", "assessments.Latest")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Assessment{}, wrapErr("assessment.latest", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE customer_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`
	var row assessmentRow
	if err := tx.QueryRow(ctx, q, customerID).Scan(row.dest()...); err != nil {
		return domain.Assessment{}, wrapErr("assessment.latest", err)
	}
	a, err := row.decode()
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("op=assessment.latest: %w: %v", domain.ErrStorage, err)
	}
	if a.Messages, err = listMessages(ctx, tx, a.ID); err != nil {
		return domain.Assessment{}, wrapErr("assessment.latest_messages", err)
	}
	if a.Documents, err = listDocuments(ctx, tx, a.ID); err != nil {
		return domain.Assessment{}, wrapErr("assessment.latest_documents", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Assessment{}, wrapErr("assessment.latest", err)
	}
	return a, nil
}

// Get loads one assessment without its thread.
func (r *AssessmentRepo) Get(ctx domain.Context, id int64) (domain.Assessment, error) {
	ctx, span := startSpan(ctx, "assessments", "SELECT", "assessments.Get")
	defer span.End()

	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id=$1`
	var row assessmentRow
	if err := r.Pool.QueryRow(ctx, q, id).Scan(row.dest()...); err != nil {
		return domain.Assessment{}, wrapErr("assessment.get", err)
	}
	a, err := row.decode()
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("op=assessment.get: %w: %v", domain.ErrStorage, err)
	}
	return a, nil
}

// List returns assessments newest first with the owner's display name.
func (r *AssessmentRepo) List(ctx domain.Context, f domain.ListFilter) ([]domain.AssessmentSummary, error) {
	ctx, span := startSpan(ctx, "assessments", "SELECT", "assessments.List")
	defer span.End()

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	q := `SELECT a.id, a.customer_id, a.score, a.status, a.answers, a.breakdown, a.language, a.created_at, c.name, c.email
FROM assessments a JOIN customers c ON c.id = a.customer_id
WHERE ($1 = '' OR a.status = $1) AND ($2 = 0 OR a.customer_id = $2)
ORDER BY a.created_at DESC, a.id DESC
LIMIT $3 OFFSET $4`
	rows, err := r.Pool.Query(ctx, q, string(f.Status), f.CustomerID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr("assessment.list", err)
	}
	defer rows.Close()

	out := make([]domain.AssessmentSummary, 0)
	for rows.Next() {
		var row assessmentRow
		var c domain.Customer
		if err := rows.Scan(append(row.dest(), &c.Name, &c.Email)...); err != nil {
			return nil, wrapErr("assessment.list", err)
		}
		a, err := row.decode()
		if err != nil {
			return nil, fmt.Errorf("op=assessment.list: %w: %v", domain.ErrStorage, err)
		}
		out = append(out, domain.AssessmentSummary{Assessment: a, CustomerName: c.DisplayName()})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("assessment.list", err)
	}
	return out, nil
}

// UpdateStatus overwrites the status and records the change in one transaction.
func (r *AssessmentRepo) UpdateStatus(ctx domain.Context, id int64, status domain.Status, changedBy string) (domain.Assessment, domain.StatusChange, error) {
	ctx, span := startSpan(ctx, "assessments", "UPDATE", "assessments.UpdateStatus")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Assessment{}, domain.StatusChange{}, wrapErr("assessment.update_status", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id=$1 FOR UPDATE`
	var row assessmentRow
	if err := tx.QueryRow(ctx, q, id).Scan(row.dest()...); err != nil {
		return domain.Assessment{}, domain.StatusChange{}, wrapErr("assessment.update_status", err)
	}
	a, err := row.decode()
	if err != nil {
		return domain.Assessment{}, domain.StatusChange{}, fmt.Errorf("op=assessment.update_status: %w: %v", domain.ErrStorage, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE assessments SET status=$2 WHERE id=$1`, id, string(status)); err != nil {
		span.RecordError(err)
		return domain.Assessment{}, domain.StatusChange{}, wrapErr("assessment.update_status", err)
	}
	change := domain.StatusChange{
		AssessmentID: id,
		From:         a.Status,
		To:           status,
		ChangedBy:    changedBy,
		CreatedAt:    time.Now().UTC(),
	}
	ins := `INSERT INTO assessment_status_changes (assessment_id, from_status, to_status, changed_by, created_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`
	if err := tx.QueryRow(ctx, ins, id, string(change.From), string(change.To), change.ChangedBy, change.CreatedAt).Scan(&change.ID); err != nil {
		span.RecordError(err)
		return domain.Assessment{}, domain.StatusChange{}, wrapErr("assessment.record_status_change", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Assessment{}, domain.StatusChange{}, wrapErr("assessment.commit", err)
	}
	a.Status = status
	return a, change, nil
}

// StatusHistory returns the overrides of an assessment, oldest first.
func (r *AssessmentRepo) StatusHistory(ctx domain.Context, id int64) ([]domain.StatusChange, error) {
	ctx, span := startSpan(ctx, "assessment_status_changes", "SELECT", "assessments.StatusHistory")
	defer span.End()

	q := `SELECT id, assessment_id, from_status, to_status, changed_by, created_at
FROM assessment_status_changes WHERE assessment_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, wrapErr("assessment.status_history", err)
	}
	defer rows.Close()
	out := make([]domain.StatusChange, 0)
	for rows.Next() {
		var c domain.StatusChange
		var from, to string
		if err := rows.Scan(&c.ID, &c.AssessmentID, &from, &to, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, wrapErr("assessment.status_history", err)
		}
		c.From, c.To = domain.Status(from), domain.Status(to)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("assessment.status_history", err)
	}
	return out, nil
}
