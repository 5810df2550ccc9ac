package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id         uuid PRIMARY KEY,
    applied    integer NOT NULL,
    rejected   integer NOT NULL,
    created_at timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS account_snapshots (
    run_id    uuid NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    client    integer NOT NULL,
    available numeric NOT NULL,
    held      numeric NOT NULL,
    total     numeric NOT NULL,
    locked    boolean NOT NULL,
    PRIMARY KEY (run_id, client)
);`

var snapshotColumns = []string{"run_id", "client", "available", "held", "total", "locked"}

// PostgresArchiver writes run reports to PostgreSQL.
type PostgresArchiver struct {
	db *pgxpool.Pool
}

// NewPostgresArchiver constructs a Postgres-backed archiver.
func NewPostgresArchiver(db *pgxpool.Pool) *PostgresArchiver {
	return &PostgresArchiver{db: db}
}

// EnsureSchema creates the archive tables when missing.
func (a *PostgresArchiver) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Save stores the run and its account table in one transaction.
func (a *PostgresArchiver) Save(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := a.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO runs (id, applied, rejected, created_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Applied, run.Rejected, run.CreatedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"account_snapshots"}, snapshotColumns, pgx.CopyFromSlice(len(run.Accounts), func(i int) ([]any, error) {
		s := run.Accounts[i]
		return []any{run.ID, int32(s.Client), numeric(s.Available), numeric(s.Held), numeric(s.Total), s.Locked}, nil
	})); err != nil {
		return fmt.Errorf("copy account snapshots: %w", err)
	}

	return tx.Commit(ctx)
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
