package finance

import (
	"sort"
	"strings"

	"wealthplanner/internal/core"
)

// PageSize is the number of transactions shown per dashboard page.
const PageSize = 5

type SortMode string

const (
	SortManual     SortMode = "date"
	SortAmountHigh SortMode = "amount_high"
	SortAmountLow  SortMode = "amount_low"
)

// ParseSortMode falls back to the manual order for unknown values.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.TrimSpace(s)) {
	case SortAmountHigh:
		return SortAmountHigh
	case SortAmountLow:
		return SortAmountLow
	}
	return SortManual
}

// displayLess orders by manual position, then newest date, newest creation and highest id.
func displayLess(a, b core.Transaction) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.Date.Equal(b.Date.Time) {
		return a.Date.After(b.Date.Time)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortForDisplay sorts txs in place into the default display order.
func SortForDisplay(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return displayLess(txs[i], txs[j]) })
}

// Sort applies mode in place. Amount ties keep the display order.
func Sort(txs []core.Transaction, mode SortMode) {
	SortForDisplay(txs)
	switch mode {
	case SortAmountHigh:
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Amount.Cents > txs[j].Amount.Cents })
	case SortAmountLow:
		sort.SliceStable(txs, func(i, j int) bool { return txs[i].Amount.Cents < txs[j].Amount.Cents })
	}
}

// Filter narrows a transaction list. A zero Filter keeps everything.
type Filter struct {
	Category core.Category
	Search   string
}

// NewFilter reads the raw query values. "all", empty and unknown categories mean no category filter.
func NewFilter(category, search string) Filter {
	f := Filter{Search: strings.TrimSpace(search)}
	if c, err := core.ParseCategory(category); err == nil {
		f.Category = c
	}
	return f
}

func (f Filter) Active() bool {
	return f.Category != "" || f.Search != ""
}

func (f Filter) Match(tx core.Transaction) bool {
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func (f Filter) Apply(txs []core.Transaction) []core.Transaction {
	if !f.Active() {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// ReorderPositions maps each id to its index in ids. A repeated id keeps its last index.
func ReorderPositions(ids []int64) map[int64]int {
	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	return pos
}

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
	TotalItems int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }
func (p Page[T]) Prev() int     { return p.Number - 1 }
func (p Page[T]) Next() int     { return p.Number + 1 }

// Paginate returns page number (1-based) of items. Out-of-range pages are
// clamped to the nearest valid page; an empty list has a single empty page.
func Paginate[T any](items []T, number, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = PageSize
	}
	total := (len(items) + perPage - 1) / perPage
	if total == 0 {
		total = 1
	}
	if number < 1 {
		number = 1
	}
	if number > total {
		number = total
	}
	start := (number - 1) * perPage
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{Items: items[start:end], Number: number, TotalPages: total, TotalItems: len(items)}
}
