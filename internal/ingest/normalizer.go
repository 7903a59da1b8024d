package ingest

import (
	"kharcha/internal/core"
)

// Normalize validates a raw observation into a transaction candidate.
// It rejects a missing or non-positive amount and a missing date; the
// merchant is optional and its dedup key is derived by the constructor.
//
// Note the ingestion path in service.go deliberately applies a weaker check
// (presence only, not amount > 0).
func Normalize(raw core.RawObservation) (*core.Transaction, error) {
	if raw.Amount == nil || *raw.Amount <= 0 {
		return nil, core.ErrInvalidAmount
	}
	if raw.Date == nil {
		return nil, core.ErrMissingDate
	}

	tx := core.NewTransaction(*raw.Amount, *raw.Date, raw.Description, raw.Source)
	return &tx, nil
}
