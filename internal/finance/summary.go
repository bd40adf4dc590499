package finance

import (
	"github.com/shopspring/decimal"

	"wealthplanner/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Budget is the slice of a profile the aggregator needs.
type Budget struct {
	BaseIncome core.Money
	Rules      core.BudgetRules
	Currency   string
}

func BudgetOf(p core.Profile) Budget {
	currency := p.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return Budget{BaseIncome: p.Income, Rules: p.Rules, Currency: currency}
}

// Totals are the money sums of one month.
type Totals struct {
	ExtraIncome core.Money
	TotalIncome core.Money
	TotalSpent  core.Money
	Balance     core.Money
	Needs       core.Money
	Wants       core.Money
	Savings     core.Money
}

// Category returns the spending total for c, zero for income.
func (t Totals) Category(c core.Category) core.Money {
	switch c {
	case core.Needs:
		return t.Needs
	case core.Wants:
		return t.Wants
	case core.Savings:
		return t.Savings
	}
	return core.Money{}
}

// Limits are the per-category budget ceilings. They keep full decimal
// precision so that they add up to total income exactly.
type Limits struct {
	Needs   decimal.Decimal
	Wants   decimal.Decimal
	Savings decimal.Decimal
}

func (l Limits) Category(c core.Category) decimal.Decimal {
	switch c {
	case core.Needs:
		return l.Needs
	case core.Wants:
		return l.Wants
	case core.Savings:
		return l.Savings
	}
	return decimal.Zero
}

func (l Limits) Sum() decimal.Decimal {
	return l.Needs.Add(l.Wants).Add(l.Savings)
}

// Summary is the full monthly picture shown on the dashboard.
type Summary struct {
	Period Period
	Totals
	Limits Limits
	Advice []Advice
}

// Compute sums txs against the base income. Every transaction passed in counts;
// callers filter to a month first.
func Compute(base core.Money, txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Category {
		case core.Income:
			t.ExtraIncome = t.ExtraIncome.Add(tx.Amount)
			continue
		case core.Needs:
			t.Needs = t.Needs.Add(tx.Amount)
		case core.Wants:
			t.Wants = t.Wants.Add(tx.Amount)
		case core.Savings:
			t.Savings = t.Savings.Add(tx.Amount)
		}
		t.TotalSpent = t.TotalSpent.Add(tx.Amount)
	}
	t.TotalIncome = base.Add(t.ExtraIncome)
	t.Balance = t.TotalIncome.Sub(t.TotalSpent)
	return t
}

// MonthlyBalance is the balance of period p: base + extra income - spent.
func MonthlyBalance(b Budget, p Period, txs []core.Transaction) core.Money {
	return Compute(b.BaseIncome, InPeriod(p, txs)).Balance
}

// ComputeLimits applies the rule percentages to total income.
func ComputeLimits(totalIncome core.Money, rules core.BudgetRules) Limits {
	income := totalIncome.Decimal()
	pct := func(rule int) decimal.Decimal {
		return income.Mul(decimal.NewFromInt(int64(rule))).Div(hundred)
	}
	return Limits{
		Needs:   pct(rules.Needs),
		Wants:   pct(rules.Wants),
		Savings: pct(rules.Savings),
	}
}

// Summarize builds the month summary for p, ignoring transactions outside it.
func Summarize(b Budget, p Period, txs []core.Transaction) Summary {
	totals := Compute(b.BaseIncome, InPeriod(p, txs))
	return Summary{
		Period: p,
		Totals: totals,
		Limits: ComputeLimits(totals.TotalIncome, b.Rules),
		Advice: Advise(b, totals),
	}
}

// UsagePercent is how much of limit the spent amount uses, capped at 100 for progress bars.
func UsagePercent(spent core.Money, limit decimal.Decimal) int {
	if !limit.IsPositive() {
		if spent.IsPositive() {
			return 100
		}
		return 0
	}
	pct := spent.Decimal().Mul(hundred).Div(limit).Round(0).IntPart()
	if pct > 100 {
		return 100
	}
	return int(pct)
}
