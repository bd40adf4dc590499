// Package memory keeps users, transactions and codes in process memory. It
// backs DATA_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wealthplanner/internal/core"
	"wealthplanner/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64

	users []core.Profile
	txs   []core.Transaction
	otps  map[string]core.OTP
}

func New() *Store {
	return &Store{now: time.Now, otps: map[string]core.OTP{}}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) findUser(match func(core.Profile) bool) (int, bool) {
	for i, u := range s.users {
		if match(u) {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) GetProfile(_ context.Context, id int64) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findUser(func(p core.Profile) bool { return p.ID == id })
	if !ok {
		return core.Profile{}, fmt.Errorf("get profile %d: %w", id, storage.ErrNotFound)
	}
	return s.users[i], nil
}

func (s *Store) GetProfileByPhone(_ context.Context, phone string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findUser(func(p core.Profile) bool { return p.Phone == phone })
	if !ok {
		return core.Profile{}, fmt.Errorf("get profile by phone: %w", storage.ErrNotFound)
	}
	return s.users[i], nil
}

func (s *Store) CreateProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.findUser(func(u core.Profile) bool { return u.Phone == p.Phone }); exists {
		return core.Profile{}, fmt.Errorf("create profile: phone %s already registered", p.Phone)
	}
	p.ID = s.id()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.users = append(s.users, p)
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(p)
}

func (s *Store) updateLocked(p core.Profile) error {
	i, ok := s.findUser(func(u core.Profile) bool { return u.ID == p.ID })
	if !ok {
		return fmt.Errorf("update profile %d: %w", p.ID, storage.ErrNotFound)
	}
	p.Phone = s.users[i].Phone
	p.CreatedAt = s.users[i].CreatedAt
	p.UpdatedAt = s.now()
	s.users[i] = p
	return nil
}

func (s *Store) collect(match func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.txs {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(t core.Transaction) bool { return t.UserID == userID }), nil
}

func (s *Store) ListTransactionsBetween(_ context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(t core.Transaction) bool {
		return t.UserID == userID && !t.Date.Before(from.Time) && !t.Date.After(to.Time)
	}), nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, storage.ErrNotFound)
}

func (s *Store) insertLocked(t core.Transaction) core.Transaction {
	t.ID = s.id()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.txs = append(s.txs, t)
	return t
}

func sameMonth(a, b core.Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (s *Store) InsertAtTop(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].UserID == t.UserID && sameMonth(s.txs[i].Date, t.Date) {
			s.txs[i].Order++
		}
	}
	t.Order = 0
	return s.insertLocked(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == t.ID && s.txs[i].UserID == t.UserID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, storage.ErrNotFound)
	}
	if !sameMonth(s.txs[idx].Date, t.Date) {
		for i := range s.txs {
			if s.txs[i].UserID == t.UserID && sameMonth(s.txs[i].Date, t.Date) {
				s.txs[i].Order++
			}
		}
		s.txs[idx].Order = 0
	}
	cur := &s.txs[idx]
	cur.Description = t.Description
	cur.Amount = t.Amount
	cur.Category = t.Category
	cur.Date = t.Date
	cur.UpdatedAt = s.now()
	return *cur, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id && t.UserID == userID {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete transaction %d: %w", id, storage.ErrNotFound)
}

func (s *Store) Reorder(_ context.Context, userID int64, positions map[int64]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for i := range s.txs {
		if pos, ok := positions[s.txs[i].ID]; ok && s.txs[i].UserID == userID {
			s.txs[i].Order = pos
			s.txs[i].UpdatedAt = now
		}
	}
	return nil
}

func (s *Store) EnsureMonthEndSavings(_ context.Context, t core.Transaction) (core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.txs {
		if cur.UserID == t.UserID && cur.IsMonthEndSavings(t.Date) {
			return t, false, nil
		}
	}
	return s.insertLocked(t), true, nil
}

func (s *Store) ReplaceAll(_ context.Context, p core.Profile, txs []core.Transaction) error {
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("replace ledger: insert #%d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateLocked(p); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	kept := s.txs[:0]
	for _, t := range s.txs {
		if t.UserID != p.ID {
			kept = append(kept, t)
		}
	}
	s.txs = kept
	for _, t := range txs {
		t.UserID = p.ID
		s.insertLocked(t)
	}
	return nil
}

func (s *Store) Reset(ctx context.Context, p core.Profile) error {
	return s.ReplaceAll(ctx, p, nil)
}

func (s *Store) SaveOTP(_ context.Context, o core.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[o.Phone] = o
	return nil
}

func (s *Store) LatestOTP(_ context.Context, phone string) (core.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[phone]
	if !ok {
		return core.OTP{}, fmt.Errorf("latest otp: %w", storage.ErrNotFound)
	}
	return o, nil
}

func (s *Store) MarkOTPVerified(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[phone]
	if !ok || o.Code != code || o.Verified {
		return fmt.Errorf("verify otp: %w", storage.ErrNotFound)
	}
	o.Verified = true
	s.otps[phone] = o
	return nil
}

func (s *Store) PurgeOTPs(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for phone, o := range s.otps {
		if o.Verified || o.CreatedAt.Before(cutoff) {
			delete(s.otps, phone)
			n++
		}
	}
	return n, nil
}
