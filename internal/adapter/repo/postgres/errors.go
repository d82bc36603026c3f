package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// SQLSTATE codes mapped onto the domain taxonomy.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

// wrapErr classifies a pgx error under op.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidArgument) {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("op=%s: %w: %s", op, domain.ErrConflict, pgErr.ConstraintName)
		case sqlStateForeignKeyViolation:
			return fmt.Errorf("op=%s: %w: %s", op, domain.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("op=%s: %w: %v", op, domain.ErrStorage, err)
}
