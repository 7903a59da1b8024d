package ingest

import (
	"context"
	"time"

	"kharcha/internal/core"
)

// Store is the slice of the storage layer the ingestion pipeline depends on.
// Handles are passed in explicitly; no component reads ambient state.
type Store interface {
	// InsertTransaction persists the transaction and flushes it.
	InsertTransaction(ctx context.Context, tx core.Transaction) error

	// FindMatches returns transactions with exactly the given amount and
	// merchant key whose transaction date falls inside [start, end], both
	// ends inclusive.
	FindMatches(ctx context.Context, amount float64, start, end time.Time, merchantKey string) ([]core.Transaction, error)
}
