package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// transactionRow mirrors the transactions table.
type transactionRow struct {
	ID                 string
	Amount             float64
	TransactionDate    int64
	Merchant           sql.NullString
	MerchantNormalized sql.NullString
	Source             string
	CreatedAt          time.Time
	Exported           int64
	ExportError        int64
}

const createTransaction = `
INSERT INTO transactions (id, amount, transaction_date, merchant, merchant_normalized, source, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type createTransactionParams struct {
	ID                 string
	Amount             float64
	TransactionDate    int64
	Merchant           sql.NullString
	MerchantNormalized sql.NullString
	Source             string
	CreatedAt          time.Time
}

func (q *Queries) CreateTransaction(ctx context.Context, arg createTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.Amount,
		arg.TransactionDate,
		arg.Merchant,
		arg.MerchantNormalized,
		arg.Source,
		arg.CreatedAt,
	)
	return err
}

const findMatchingTransactions = `
SELECT id, amount, transaction_date, merchant, merchant_normalized, source, created_at, exported, export_error
FROM transactions
WHERE amount = ?
  AND transaction_date BETWEEN ? AND ?
  AND merchant_normalized = ?
`

func (q *Queries) FindMatchingTransactions(ctx context.Context, amount float64, start, end int64, merchantKey string) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, findMatchingTransactions, amount, start, end, merchantKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

const listTransactions = `
SELECT id, amount, transaction_date, merchant, merchant_normalized, source, created_at, exported, export_error
FROM transactions
ORDER BY transaction_date DESC
`

func (q *Queries) ListTransactions(ctx context.Context) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPendingExport = `
SELECT id, amount, transaction_date, merchant, merchant_normalized, source, created_at, exported, export_error
FROM transactions
WHERE exported = 0
ORDER BY created_at ASC
LIMIT ?
`

func (q *Queries) GetPendingExport(ctx context.Context, limit int64) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingExport, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

const markTransactionExported = `
UPDATE transactions SET exported = 1, export_error = 0 WHERE id = ?
`

func (q *Queries) MarkTransactionExported(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markTransactionExported, id)
	return err
}

const markTransactionExportError = `
UPDATE transactions SET export_error = export_error + 1 WHERE id = ?
`

func (q *Queries) MarkTransactionExportError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markTransactionExportError, id)
	return err
}

const getProfile = `
SELECT name, monthly_allowance FROM user_profile WHERE id = 1
`

type profileRow struct {
	Name             string
	MonthlyAllowance float64
}

func (q *Queries) GetProfile(ctx context.Context) (profileRow, error) {
	var row profileRow
	err := q.db.QueryRowContext(ctx, getProfile).Scan(&row.Name, &row.MonthlyAllowance)
	return row, err
}

const upsertProfile = `
INSERT INTO user_profile (id, name, monthly_allowance, updated_at)
VALUES (1, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    monthly_allowance = excluded.monthly_allowance,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertProfile(ctx context.Context, name string, monthlyAllowance float64) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, name, monthlyAllowance)
	return err
}

func scanTransactionRows(rows *sql.Rows) ([]transactionRow, error) {
	var out []transactionRow
	for rows.Next() {
		var row transactionRow
		if err := rows.Scan(
			&row.ID,
			&row.Amount,
			&row.TransactionDate,
			&row.Merchant,
			&row.MerchantNormalized,
			&row.Source,
			&row.CreatedAt,
			&row.Exported,
			&row.ExportError,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
