// Package postgres records gate executions in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upsertExecution = `
	INSERT INTO executions (id, block_number, direction, notional, predicted_net, gas_limit, gas_price,
		contract, tx_hash, gas_used, status, error, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		tx_hash = EXCLUDED.tx_hash,
		gas_used = EXCLUDED.gas_used,
		status = EXCLUDED.status,
		error = EXCLUDED.error,
		finished_at = EXCLUDED.finished_at`

// Execer is the subset of *pgxpool.Pool the journal writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ app.Journal = (*Journal)(nil)

// Journal upserts one row per execution; a row is written when the
// transaction is sent and updated once the outcome is known.
type Journal struct {
	db Execer
}

func NewJournal(db Execer) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Record(ctx context.Context, e *domain.Execution) error {
	_, err := j.db.Exec(ctx, upsertExecution, executionArgs(e)...)
	if err != nil {
		return apperror.New(apperror.CodeJournalFailed, apperror.WithCause(err), apperror.WithContext(e.ID.String()))
	}
	return nil
}

func executionArgs(e *domain.Execution) []any {
	var (
		txHash     *string
		gasUsed    *int64
		errText    *string
		finishedAt *time.Time
	)
	if e.TxHash != (common.Hash{}) {
		s := e.TxHash.Hex()
		txHash = &s
	}
	if e.GasUsed > 0 {
		n := int64(e.GasUsed)
		gasUsed = &n
	}
	if e.Error != "" {
		errText = &e.Error
	}
	if !e.FinishedAt.IsZero() {
		finishedAt = &e.FinishedAt
	}

	gasPrice := "0"
	if e.Gas.GasPrice != nil {
		gasPrice = e.Gas.GasPrice.String()
	}
	predicted := "0"
	if e.PredictedNet != nil {
		predicted = e.PredictedNet.String()
	}

	return []any{
		e.ID,
		int64(e.BlockNumber),
		int16(e.Direction),
		e.Notional.Raw().String(),
		predicted,
		int64(e.Gas.GasLimit),
		gasPrice,
		e.Contract.Hex(),
		txHash,
		gasUsed,
		string(e.Status),
		errText,
		e.StartedAt,
		finishedAt,
	}
}

// Migrate applies embedded migrations in name order, tracking them in schema_migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("postgres: create schema_migrations table: %w", err)
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		var exists bool
		err := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)", name,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("postgres: check migration %s: %w", name, err)
		}
		if exists {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", name, err)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("postgres: begin tx for %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("postgres: commit migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: read migrations dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
