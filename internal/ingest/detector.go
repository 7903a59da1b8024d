package ingest

import (
	"context"
	"log/slog"
	"time"

	"kharcha/internal/core"
)

// Per-source dedup windows. OCR timestamps are the least precise, so they
// get the widest window; bank feeds carry exact timestamps.
const (
	windowOCR    = 10 * time.Minute
	windowManual = 3 * time.Minute
	windowBank   = 1 * time.Minute
)

// DedupWindow returns the half-width of the duplicate-match interval for a
// source.
func DedupWindow(source core.SourceTag) time.Duration {
	switch source {
	case core.SourceOCR:
		return windowOCR
	case core.SourceManual:
		return windowManual
	case core.SourceBank:
		return windowBank
	}
	return windowManual
}

// DuplicateDetector decides whether a candidate matches a transaction
// already in the store.
type DuplicateDetector struct {
	store Store
}

func NewDuplicateDetector(store Store) *DuplicateDetector {
	return &DuplicateDetector{store: store}
}

// IsDuplicate reports whether the store already holds a transaction with the
// same amount, the same merchant key, and a transaction date within the
// source's window of the candidate's (boundaries inclusive).
//
// A candidate without a merchant key is never a duplicate: there is nothing
// to match on. Query failures are treated as "not a duplicate" — losing one
// dedup check is better than losing the transaction.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, candidate core.Transaction) bool {
	if candidate.MerchantNormalized == nil {
		slog.DebugContext(ctx, "No merchant key, skipping dedup",
			"amount", candidate.Amount,
			"source", candidate.Source)
		return false
	}

	window := DedupWindow(candidate.Source)
	start := candidate.TransactionDate.Add(-window)
	end := candidate.TransactionDate.Add(window)

	matches, err := d.store.FindMatches(ctx, candidate.Amount, start, end, *candidate.MerchantNormalized)
	if err != nil {
		slog.ErrorContext(ctx, "Duplicate query failed, treating as not duplicate",
			"error", err,
			"merchant_key", *candidate.MerchantNormalized,
			"amount", candidate.Amount)
		return false
	}

	if len(matches) > 0 {
		slog.InfoContext(ctx, "Duplicate candidate detected",
			"merchant_key", *candidate.MerchantNormalized,
			"amount", candidate.Amount,
			"matches", len(matches),
			"window", window.String())
		return true
	}
	return false
}
