package postgres

import (
	"time"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// BankUserRepo loads reviewer identities.
type BankUserRepo struct{ Pool PgxPool }

// NewBankUserRepo constructs a BankUserRepo with the given pool.
func NewBankUserRepo(p PgxPool) *BankUserRepo { return &BankUserRepo{Pool: p} }

// GetByUsername returns the reviewer or ErrNotFound.
func (r *BankUserRepo) GetByUsername(ctx domain.Context, username string) (domain.BankUser, error) {
	ctx, span := startSpan(ctx, "bank_users", "SELECT", "bank_users.GetByUsername")
	defer span.End()

	var u domain.BankUser
	q := `SELECT id, username, password_hash, created_at FROM bank_users WHERE username=$1`
	if err := r.Pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.BankUser{}, wrapErr("bank_user.get", err)
	}
	return u, nil
}

// Upsert creates or updates a reviewer's password hash. Used by the seed command.
func (r *BankUserRepo) Upsert(ctx domain.Context, username, passwordHash string) (domain.BankUser, error) {
	ctx, span := startSpan(ctx, "bank_users", "UPSERT", "bank_users.Upsert")
	defer span.End()

	u := domain.BankUser{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	q := `INSERT INTO bank_users (username, password_hash, created_at) VALUES ($1,$2,$3)
ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
RETURNING id, created_at`
	if err := r.Pool.QueryRow(ctx, q, u.Username, u.PasswordHash, u.CreatedAt).Scan(&u.ID, &u.CreatedAt); err != nil {
		return domain.BankUser{}, wrapErr("bank_user.upsert", err)
	}
	return u, nil
}
