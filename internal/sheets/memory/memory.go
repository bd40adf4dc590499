// Package memory is an in-process ledger mirror used when no spreadsheet is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"wealthplanner/internal/core"
	ports "wealthplanner/internal/sheets"
)

var (
	_ ports.LedgerWriter = (*Store)(nil)
	_ ports.LedgerReader = (*Store)(nil)
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]core.Transaction
}

func New() *Store {
	return &Store{rows: map[int64]core.Transaction{}}
}

func (s *Store) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[txID]; ok && row.UserID == userID {
		delete(s.rows, txID)
	}
	return nil
}

func (s *Store) ReplaceUser(_ context.Context, userID int64, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.UserID == userID {
			delete(s.rows, id)
		}
	}
	for _, tx := range txs {
		tx.UserID = userID
		s.rows[tx.ID] = tx
	}
	return nil
}

// ListUserRows returns the user's rows ordered by id.
func (s *Store) ListUserRows(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
