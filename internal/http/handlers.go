package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/core"
	"kharcha/internal/ingest"
	"kharcha/internal/ocr"
	"kharcha/internal/report"
	"kharcha/internal/storage"
)

type transactionRequest struct {
	Amount   *float64 `json:"amount"`
	Date     *string  `json:"date"`
	Merchant *string  `json:"merchant"`
}

type transactionResponse struct {
	ID              string    `json:"id"`
	Amount          float64   `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
	Merchant        *string   `json:"merchant,omitempty"`
	Source          string    `json:"source"`
	SourceDisplay   string    `json:"source_display"`
	CreatedAt       time.Time `json:"created_at"`
}

type ingestResponse struct {
	Result string               `json:"result"`
	Parsed *parsedReceiptFields `json:"parsed,omitempty"`
}

type parsedReceiptFields struct {
	Amount   *float64   `json:"amount"`
	Date     *time.Time `json:"date"`
	Merchant *string    `json:"merchant"`
}

// toObservation builds the manual-entry observation, reporting a bad date
// string as an error while absent fields simply stay nil.
func (req transactionRequest) toObservation() (core.RawObservation, error) {
	obs := core.RawObservation{
		Description: req.Merchant,
		Source:      core.SourceManual,
	}
	obs.Amount = req.Amount
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return obs, err
		}
		obs.Date = &date
	}
	return obs, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obs, err := req.toObservation()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Manual entry goes through the strict validation first: the user is
	// right there to fix a zero or negative amount.
	if _, err := ingest.Normalize(obs); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondWithResult(w, r, s.ingester.Ingest(r.Context(), obs), nil)
}

func (s *Server) handleForceCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obs, err := req.toObservation()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondWithResult(w, r, s.ingester.ForceIngest(r.Context(), obs), nil)
}

type receiptRequest struct {
	Text *string `json:"text"`
}

// handleScanReceipt runs OCR text through the parser and straight into
// ingestion. The parsed fields always come back so the caller can prompt the
// user to complete whatever the heuristics missed.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == nil {
		// Absent text is a capture failure; empty text is a successful
		// recognition of a blank image and parses to an all-nil observation.
		writeError(w, http.StatusBadRequest, "missing 'text' field")
		return
	}

	obs := ocr.Parse(*req.Text)
	parsed := &parsedReceiptFields{
		Amount:   obs.Amount,
		Date:     obs.Date,
		Merchant: obs.Description,
	}

	s.respondWithResult(w, r, s.ingester.Ingest(r.Context(), obs), parsed)
}

func (s *Server) respondWithResult(w http.ResponseWriter, r *http.Request, result ingest.Result, parsed *parsedReceiptFields) {
	resp := ingestResponse{Result: string(result), Parsed: parsed}

	switch result {
	case ingest.ResultSuccess:
		s.overviewCache.Purge()
		writeJSON(w, http.StatusCreated, resp)
	case ingest.ResultDuplicate:
		writeJSON(w, http.StatusConflict, resp)
	default:
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txns))
	for _, tx := range txns {
		out = append(out, transactionResponse{
			ID:              tx.ID.String(),
			Amount:          tx.Amount,
			TransactionDate: tx.TransactionDate,
			Merchant:        tx.Merchant,
			Source:          string(tx.Source),
			SourceDisplay:   tx.Source.DisplayName(),
			CreatedAt:       tx.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	s.overviewCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

type overviewResponse struct {
	Profile           *profileResponse    `json:"profile"`
	CurrentMonthTotal float64             `json:"current_month_total"`
	Remaining         *float64            `json:"remaining,omitempty"`
	Progress          *float64            `json:"progress,omitempty"`
	TrailingMonths    []core.MonthlySpend `json:"trailing_months"`
}

type profileResponse struct {
	Name             string  `json:"name"`
	MonthlyAllowance float64 `json:"monthly_allowance"`
}

const overviewCacheKey = "overview"

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.overviewCache.Get(overviewCacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load transactions for overview", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute overview")
		return
	}

	now := s.now()
	resp := overviewResponse{
		CurrentMonthTotal: report.CurrentMonthTotal(txns, now),
		TrailingMonths:    report.TrailingMonths(txns, now, 3),
	}

	profile, err := s.store.GetProfile(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load profile for overview", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute overview")
		return
	}
	if profile != nil {
		resp.Profile = &profileResponse{
			Name:             profile.Name,
			MonthlyAllowance: profile.MonthlyAllowance,
		}
		remaining := profile.MonthlyAllowance - resp.CurrentMonthTotal
		resp.Remaining = &remaining
		if profile.MonthlyAllowance > 0 {
			progress := resp.CurrentMonthTotal / profile.MonthlyAllowance
			if progress > 1 {
				progress = 1
			}
			resp.Progress = &progress
		}
	}

	s.overviewCache.Set(overviewCacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "no profile created yet")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Name:             profile.Name,
		MonthlyAllowance: profile.MonthlyAllowance,
	})
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileResponse
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile := core.UserProfile{
		Name:             req.Name,
		MonthlyAllowance: req.MonthlyAllowance,
	}
	if err := profile.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.SaveProfile(r.Context(), profile); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	s.overviewCache.Purge()
	writeJSON(w, http.StatusOK, req)
}
