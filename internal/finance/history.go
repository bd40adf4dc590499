package finance

import (
	"sort"

	"wealthplanner/internal/core"
)

// DashboardHistoryMonths caps the history table on the dashboard.
const DashboardHistoryMonths = 12

const (
	StatusSaved = "Saved"
	StatusOver  = "Over"
)

// HistoryEntry is one month of the history table.
type HistoryEntry struct {
	Period Period
	Income core.Money // base plus extra income
	Spent  core.Money
	Saved  core.Money
	Status string
}

func (h HistoryEntry) Name() string { return h.Period.Label() }

// History groups txs by month, most recent first. Only months with at least
// one transaction appear. limit <= 0 returns every month.
func History(b Budget, txs []core.Transaction, limit int) []HistoryEntry {
	byMonth := map[Period][]core.Transaction{}
	for _, tx := range txs {
		p := PeriodOf(tx.Date.Time)
		byMonth[p] = append(byMonth[p], tx)
	}
	out := make([]HistoryEntry, 0, len(byMonth))
	for p, monthTxs := range byMonth {
		t := Compute(b.BaseIncome, monthTxs)
		status := StatusSaved
		if t.Balance.IsNegative() {
			status = StatusOver
		}
		out = append(out, HistoryEntry{
			Period: p,
			Income: t.TotalIncome,
			Spent:  t.TotalSpent,
			Saved:  t.Balance,
			Status: status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Period.Before(out[i].Period) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// YearTotal sums the history entries of one calendar year.
type YearTotal struct {
	Year   int
	Months int
	Income core.Money
	Spent  core.Money
	Saved  core.Money
}

// YearTotals folds history entries into per-year totals, most recent year first.
func YearTotals(entries []HistoryEntry) []YearTotal {
	idx := map[int]int{}
	var out []YearTotal
	for _, e := range entries {
		i, ok := idx[e.Period.Year]
		if !ok {
			i = len(out)
			idx[e.Period.Year] = i
			out = append(out, YearTotal{Year: e.Period.Year})
		}
		out[i].Months++
		out[i].Income = out[i].Income.Add(e.Income)
		out[i].Spent = out[i].Spent.Add(e.Spent)
		out[i].Saved = out[i].Saved.Add(e.Saved)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
