// Package ingest is the transaction ingestion pipeline: it normalizes raw
// observations into transaction candidates, checks them against history for
// duplicates, and writes the survivors to storage.
package ingest

import (
	"context"
	"log/slog"

	"kharcha/internal/core"
)

// Result is the tri-state outcome of an ingestion attempt.
type Result string

const (
	ResultSuccess   Result = "success"
	ResultDuplicate Result = "duplicate"
	ResultInvalid   Result = "invalid"
)

// Service orchestrates normalization, duplicate detection and the storage
// write. It is stateless per call; the persisted store is the only state.
//
// The read-check-write sequence is not transactionally isolated: two
// concurrent ingestions of the same candidate can both pass the duplicate
// check before either writes. Accepted for a single-user tracker; see
// DESIGN.md.
type Service struct {
	store    Store
	detector *DuplicateDetector
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		detector: NewDuplicateDetector(store),
	}
}

// Ingest runs the full pipeline on one observation.
//
// It requires amount and date to be present, but unlike Normalize it does
// not reject a non-positive amount before the duplicate check. The original
// system had exactly this asymmetry and callers rely on manual entry going
// through Normalize first, so it is kept rather than silently fixed.
func (s *Service) Ingest(ctx context.Context, raw core.RawObservation) Result {
	if raw.Amount == nil || raw.Date == nil {
		slog.InfoContext(ctx, "Rejected incomplete observation",
			"has_amount", raw.Amount != nil,
			"has_date", raw.Date != nil,
			"source", raw.Source)
		return ResultInvalid
	}

	candidate := core.NewTransaction(*raw.Amount, *raw.Date, raw.Description, raw.Source)

	if s.detector.IsDuplicate(ctx, candidate) {
		return ResultDuplicate
	}

	return s.write(ctx, candidate)
}

// ForceIngest writes the observation unconditionally, bypassing the
// duplicate check. This is the "add anyway" path a caller takes after
// confirming a reported duplicate really is a separate purchase.
func (s *Service) ForceIngest(ctx context.Context, raw core.RawObservation) Result {
	if raw.Amount == nil || raw.Date == nil {
		return ResultInvalid
	}

	candidate := core.NewTransaction(*raw.Amount, *raw.Date, raw.Description, raw.Source)
	return s.write(ctx, candidate)
}

func (s *Service) write(ctx context.Context, candidate core.Transaction) Result {
	if err := s.store.InsertTransaction(ctx, candidate); err != nil {
		slog.ErrorContext(ctx, "Failed to persist transaction",
			"error", err,
			"id", candidate.ID,
			"amount", candidate.Amount,
			"source", candidate.Source)
		return ResultInvalid
	}

	slog.InfoContext(ctx, "Transaction ingested",
		"id", candidate.ID,
		"amount", candidate.Amount,
		"date", candidate.TransactionDate,
		"source", candidate.Source)
	return ResultSuccess
}
