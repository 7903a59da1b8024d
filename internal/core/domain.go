package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SourceManual SourceTag = "manual"
	SourceOCR    SourceTag = "ocr"
	SourceBank   SourceTag = "bank"
)

type (
	// SourceTag records where an observation came from. It controls the
	// duplicate-detection window and how provenance is displayed.
	SourceTag string

	// RawObservation is an unvalidated candidate transaction, fresh from
	// manual entry, the receipt parser, or a bank feed. Missing fields are
	// nil pointers. Never persisted as-is.
	RawObservation struct {
		Amount      *float64
		Date        *time.Time
		Description *string
		Source      SourceTag
	}

	// Transaction is the canonical persisted record.
	Transaction struct {
		ID              uuid.UUID
		Amount          float64
		TransactionDate time.Time
		Merchant        *string
		// MerchantNormalized is always the trimmed, lowercased form of
		// Merchant, or nil iff Merchant is nil. Used as the dedup key.
		MerchantNormalized *string
		Source             SourceTag
		CreatedAt          time.Time
	}

	// UserProfile is the single profile record for the dataset.
	UserProfile struct {
		Name             string
		MonthlyAllowance float64
	}

	// MonthlySpend is one point of the trailing-months series. Computed,
	// never persisted.
	MonthlySpend struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingDate      = errors.New("missing transaction date")
	ErrInvalidSource    = errors.New("invalid source tag")
	ErrInvalidAllowance = errors.New("invalid monthly allowance")
)

// DisplayName returns the human-readable form of the source tag.
func (s SourceTag) DisplayName() string {
	switch s {
	case SourceManual:
		return "Manual"
	case SourceOCR:
		return "OCR"
	case SourceBank:
		return "Bank"
	}
	return string(s)
}

func (s SourceTag) Validate() error {
	switch s {
	case SourceManual, SourceOCR, SourceBank:
		return nil
	}
	return ErrInvalidSource
}

// NewTransaction builds a transaction with a fresh ID and the merchant key
// derived from the merchant name. This is the only place the key is computed,
// which keeps the MerchantNormalized invariant in one spot.
func NewTransaction(amount float64, date time.Time, merchant *string, source SourceTag) Transaction {
	return Transaction{
		ID:                 uuid.New(),
		Amount:             amount,
		TransactionDate:    date,
		Merchant:           merchant,
		MerchantNormalized: NormalizeMerchant(merchant),
		Source:             source,
		CreatedAt:          time.Now(),
	}
}

// NormalizeMerchant derives the dedup key: trimmed of surrounding whitespace
// and newlines, lowercased. Nil in, nil out.
func NormalizeMerchant(merchant *string) *string {
	if merchant == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(*merchant))
	return &key
}

func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.TransactionDate.IsZero() {
		return ErrMissingDate
	}
	return t.Source.Validate()
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("empty profile name")
	}
	if p.MonthlyAllowance < 0 {
		return ErrInvalidAllowance
	}
	return nil
}

// Ptr returns a pointer to v. Convenience for building observations.
func Ptr[T any](v T) *T {
	return &v
}
