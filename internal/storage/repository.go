// Package storage persists transactions and the user profile in SQLite.
// Schema changes go through embedded golang-migrate migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kharcha/internal/core"
)

// ErrNotFound is returned when a delete or lookup targets a missing row.
var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction implements ingest.Store.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	err := r.queries.CreateTransaction(ctx, createTransactionParams{
		ID:                 tx.ID.String(),
		Amount:             tx.Amount,
		TransactionDate:    tx.TransactionDate.Unix(),
		Merchant:           nullString(tx.Merchant),
		MerchantNormalized: nullString(tx.MerchantNormalized),
		Source:             string(tx.Source),
		CreatedAt:          tx.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"amount", tx.Amount,
		"source", tx.Source)
	return nil
}

// FindMatches implements ingest.Store. The BETWEEN bounds are inclusive,
// matching the dedup window contract.
func (r *SQLiteRepository) FindMatches(ctx context.Context, amount float64, start, end time.Time, merchantKey string) ([]core.Transaction, error) {
	rows, err := r.queries.FindMatchingTransactions(ctx, amount, start.Unix(), end.Unix(), merchantKey)
	if err != nil {
		return nil, fmt.Errorf("find matching transactions: %w", err)
	}
	return rowsToTransactions(rows)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rowsToTransactions(rows)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	affected, err := r.queries.DeleteTransaction(ctx, id.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// GetPendingExportTransactions returns transactions not yet appended to the
// export spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingExportTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.GetPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending export transactions: %w", err)
	}
	return rowsToTransactions(rows)
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkTransactionExported(ctx, id.String()); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkTransactionExportError(ctx, id.String()); err != nil {
		return fmt.Errorf("mark transaction export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

// GetProfile returns the profile record, or nil when none has been created.
func (r *SQLiteRepository) GetProfile(ctx context.Context) (*core.UserProfile, error) {
	row, err := r.queries.GetProfile(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &core.UserProfile{
		Name:             row.Name,
		MonthlyAllowance: row.MonthlyAllowance,
	}, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.UserProfile) error {
	if err := r.queries.UpsertProfile(ctx, p.Name, p.MonthlyAllowance); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile saved", "name", p.Name, "monthly_allowance", p.MonthlyAllowance)
	return nil
}

func rowsToTransactions(rows []transactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("parse transaction id %q: %w", row.ID, err)
		}
		tx := core.Transaction{
			ID:              id,
			Amount:          row.Amount,
			TransactionDate: time.Unix(row.TransactionDate, 0).UTC(),
			Source:          core.SourceTag(row.Source),
			CreatedAt:       row.CreatedAt,
		}
		if row.Merchant.Valid {
			tx.Merchant = &row.Merchant.String
		}
		if row.MerchantNormalized.Valid {
			tx.MerchantNormalized = &row.MerchantNormalized.String
		}
		out = append(out, tx)
	}
	return out, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
