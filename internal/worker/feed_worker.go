// Package worker runs the background sides of the pipeline: consuming the
// bank feed into ingestion, and draining the spreadsheet-export backlog.
package worker

import (
	"context"
	"log/slog"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/ingest"
)

// FeedWorker turns bank-feed messages into ingested transactions.
type FeedWorker struct {
	ingester *ingest.Service
}

func NewFeedWorker(ingester *ingest.Service) *FeedWorker {
	return &FeedWorker{ingester: ingester}
}

// HandleBankMessage ingests one feed message with the bank source tag.
// Duplicates are a normal outcome here — feeds redeliver — so they are
// logged and acked, never returned as errors. Only an invalid result is an
// error, which requeues the delivery for a later attempt.
func (w *FeedWorker) HandleBankMessage(ctx context.Context, msg *amqp.BankFeedMessage) error {
	raw := core.RawObservation{
		Amount:      &msg.Amount,
		Date:        &msg.Date,
		Description: msg.Description,
		Source:      core.SourceBank,
	}

	switch result := w.ingester.Ingest(ctx, raw); result {
	case ingest.ResultSuccess:
		slog.InfoContext(ctx, "Bank transaction ingested",
			"amount", msg.Amount,
			"date", msg.Date,
			"reference", msg.Reference)
		return nil
	case ingest.ResultDuplicate:
		slog.InfoContext(ctx, "Bank transaction already recorded, skipping",
			"amount", msg.Amount,
			"date", msg.Date,
			"reference", msg.Reference)
		return nil
	default:
		return &IngestFailedError{Reference: msg.Reference}
	}
}

// IngestFailedError marks a feed message that could not be written; the
// delivery is requeued.
type IngestFailedError struct {
	Reference string
}

func (e *IngestFailedError) Error() string {
	return "ingest bank transaction failed: " + e.Reference
}
