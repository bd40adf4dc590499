package services

import (
	"sort"
	"sync"

	"wealthplanner/internal/finance"
)

type monthKey struct {
	userID int64
	period string
}

// monthLocks serializes read-check-write sequences on one user's month.
// Entries are never evicted; there is one small mutex per active user-month.
type monthLocks struct {
	mu    sync.Mutex
	locks map[monthKey]*sync.Mutex
}

func newMonthLocks() *monthLocks {
	return &monthLocks{locks: map[monthKey]*sync.Mutex{}}
}

func (l *monthLocks) get(k monthKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[k]
	if !ok {
		m = &sync.Mutex{}
		l.locks[k] = m
	}
	return m
}

// lock acquires every distinct period for the user in key order and returns the release func.
func (l *monthLocks) lock(userID int64, periods ...finance.Period) func() {
	keys := make([]string, 0, len(periods))
	seen := map[string]bool{}
	for _, p := range periods {
		if k := p.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m := l.get(monthKey{userID: userID, period: k})
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
