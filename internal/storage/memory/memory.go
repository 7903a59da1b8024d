// Package memory is an in-memory transaction store. It backs the server when
// no SQLite path is configured and doubles as the store fake in tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"time"

	"github.com/google/uuid"

	"kharcha/internal/core"
	"kharcha/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	items   []core.Transaction
	profile *core.UserProfile

	// FailWrites and FailQueries force errors, for exercising the
	// fail-open and write-failure paths in tests.
	FailWrites  bool
	FailQueries bool
}

func New() *Store {
	return &Store{}
}

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errors.New("write failed")
	}
	s.items = append(s.items, tx)
	return nil
}

func (s *Store) FindMatches(_ context.Context, amount float64, start, end time.Time, merchantKey string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQueries {
		return nil, errors.New("query failed")
	}
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.Amount != amount {
			continue
		}
		if tx.MerchantNormalized == nil || *tx.MerchantNormalized != merchantKey {
			continue
		}
		if tx.TransactionDate.Before(start) || tx.TransactionDate.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQueries {
		return nil, errors.New("query failed")
	}
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) GetProfile(_ context.Context) (*core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, nil
	}
	p := *s.profile
	return &p, nil
}

func (s *Store) SaveProfile(_ context.Context, p core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &p
	return nil
}

// Len reports the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
