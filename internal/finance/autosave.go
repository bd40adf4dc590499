package finance

import (
	"time"

	"wealthplanner/internal/core"
)

// PlanMonthEndSavings decides whether the unspent balance of the month before
// today should be moved into savings. txs must cover at least that month. The
// returned transaction is dated on the last day of the previous month; ok is
// false when a carry-over already exists there or the balance is not positive.
func PlanMonthEndSavings(b Budget, today time.Time, txs []core.Transaction) (core.Transaction, bool) {
	prev := PeriodOf(today).Prev()
	last := prev.Last()
	monthTxs := InPeriod(prev, txs)
	for _, tx := range monthTxs {
		if tx.IsMonthEndSavings(last) {
			return core.Transaction{}, false
		}
	}
	balance := Compute(b.BaseIncome, monthTxs).Balance
	if !balance.IsPositive() {
		return core.Transaction{}, false
	}
	return core.Transaction{
		Description: core.MonthEndSavingsDescription,
		Amount:      balance,
		Category:    core.Savings,
		Date:        last,
		Order:       core.MonthEndSavingsOrder,
	}, true
}
