// Package export appends ingested transactions to a Google Sheet so the
// dataset stays inspectable outside the app. Export is asynchronous and
// best-effort; the SQLite store remains the source of truth.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kharcha/internal/core"
)

type SheetsAppender struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv builds a Sheets appender from environment configuration.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or application
// default credentials.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string) (*SheetsAppender, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsAppender{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	switch {
	case serviceAccountJSON != "":
		return gsheet.NewService(ctx, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		return gsheet.NewService(ctx, goption.WithCredentialsFile(serviceAccountFile))
	default:
		// Fall back to application default credentials.
		return gsheet.NewService(ctx)
	}
}

// AppendTransaction implements worker.RowAppender. Rate-limited appends are
// retried with a delay; anything else fails immediately and the row stays in
// the backlog.
func (a *SheetsAppender) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	merchant := ""
	if tx.Merchant != nil {
		merchant = *tx.Merchant
	}

	row := &gsheet.ValueRange{
		Values: [][]any{{
			tx.ID.String(),
			tx.TransactionDate.Format("2006-01-02"),
			merchant,
			tx.Amount,
			tx.Source.DisplayName(),
			tx.CreatedAt.Format(time.RFC3339),
		}},
	}
	writeRange := fmt.Sprintf("%s!A2:F2", a.sheetName)

	err := retry.Do(
		func() error {
			_, err := a.svc.Spreadsheets.Values.Append(a.spreadsheetID, writeRange, row).
				ValueInputOption("USER_ENTERED").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
		}),
		retry.Attempts(3),
		retry.Delay(10*time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("append transaction row: %w", err)
	}
	return nil
}
