package postgres

import (
	"context"
	_ "embed"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schemaSQL string

// schemaStatements splits the embedded schema on statement terminators.
func schemaStatements() []string {
	parts := strings.Split(schemaSQL, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate applies the idempotent schema in one transaction.
func Migrate(ctx context.Context, pool PgxPool) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapErr("postgres.Migrate", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, stmt := range schemaStatements() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return wrapErr("postgres.Migrate", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("postgres.Migrate", err)
	}
	return nil
}
