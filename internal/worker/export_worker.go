package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kharcha/internal/core"
)

// ExportStore is the slice of storage the export worker needs.
type ExportStore interface {
	GetPendingExportTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id uuid.UUID) error
	MarkExportError(ctx context.Context, id uuid.UUID) error
}

// RowAppender appends transactions to the external spreadsheet.
type RowAppender interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) error
}

// ExportWorker drains the pending-export backlog into a spreadsheet. Export
// is best-effort bookkeeping: a failed row is marked and retried on the next
// cycle, and never affects ingestion.
type ExportWorker struct {
	store     ExportStore
	appender  RowAppender
	batchSize int
}

func NewExportWorker(store ExportStore, appender RowAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// ProcessPending exports one batch of unexported transactions. Individual
// row failures are recorded and skipped; the batch keeps going.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingExportTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending export transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting pending transactions", "count", len(pending))

	exported := 0
	for _, tx := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.appender.AppendTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"error", err,
				"id", tx.ID)
			if markErr := w.store.MarkExportError(ctx, tx.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to record export error", "error", markErr, "id", tx.ID)
			}
			continue
		}

		if err := w.store.MarkExported(ctx, tx.ID); err != nil {
			// Row landed in the sheet but the flag write failed; the next
			// cycle will append it again. Duplicated rows in the export are
			// preferable to lost ones.
			slog.ErrorContext(ctx, "Failed to mark transaction exported", "error", err, "id", tx.ID)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Export cycle completed",
		"exported", exported,
		"failed", len(pending)-exported)
	return nil
}
