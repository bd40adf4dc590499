package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wealthplanner/internal/core"
)

const recentSavingsLimit = 10

// MonthLabels are the chart labels of the savings report.
var MonthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// SavingsReport is the yearly savings analytics page.
type SavingsReport struct {
	Year     int
	PrevYear int
	NextYear int // 0 when Year is the current year or later

	TotalAllTime core.Money
	TotalYear    core.Money
	Monthly      [12]core.Money

	MonthlyGoal decimal.Decimal
	YearlyGoal  decimal.Decimal

	SavingsRate   decimal.Decimal
	AvgMonthly    decimal.Decimal
	ProjectedYear decimal.Decimal

	BestMonthName  string
	BestMonthValue core.Money

	Recent []core.Transaction
}

// HasNext reports whether a later year can be browsed.
func (r SavingsReport) HasNext() bool { return r.NextYear != 0 }

// GoalPercent is the share of the yearly goal reached so far.
func (r SavingsReport) GoalPercent() decimal.Decimal {
	if !r.YearlyGoal.IsPositive() {
		return decimal.Zero
	}
	return r.TotalYear.Decimal().Mul(hundred).Div(r.YearlyGoal)
}

// GoalStatus describes goal progress. It is empty when no goal is set.
func (r SavingsReport) GoalStatus() string {
	if !r.YearlyGoal.IsPositive() {
		return ""
	}
	pct := r.GoalPercent()
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return "Outstanding! Goal met."
	case pct.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return "On track, over 50%!"
	}
	return "Keep pushing!"
}

// ChartValues returns the monthly totals in chart units.
func (r SavingsReport) ChartValues() []float64 {
	out := make([]float64, len(r.Monthly))
	for i, m := range r.Monthly {
		out[i] = m.Units()
	}
	return out
}

// Savings builds the report for year from every transaction of the user.
func Savings(b Budget, txs []core.Transaction, year int, today time.Time) SavingsReport {
	r := SavingsReport{Year: year, PrevYear: year - 1}
	if year < today.Year() {
		r.NextYear = year + 1
	}

	var yearIncome core.Money
	var recent []core.Transaction
	for _, tx := range txs {
		switch tx.Category {
		case core.Savings:
			r.TotalAllTime = r.TotalAllTime.Add(tx.Amount)
			if tx.Date.Year() == year {
				r.TotalYear = r.TotalYear.Add(tx.Amount)
				r.Monthly[tx.Date.Month()-1] = r.Monthly[tx.Date.Month()-1].Add(tx.Amount)
			}
			recent = append(recent, tx)
		case core.Income:
			if tx.Date.Year() == year {
				yearIncome = yearIncome.Add(tx.Amount)
			}
		}
	}

	r.MonthlyGoal = ComputeLimits(b.BaseIncome, b.Rules).Savings
	r.YearlyGoal = r.MonthlyGoal.Mul(decimal.NewFromInt(12))

	yearIncomeTotal := b.BaseIncome.Decimal().Mul(decimal.NewFromInt(12)).Add(yearIncome.Decimal())
	if yearIncomeTotal.IsPositive() {
		r.SavingsRate = r.TotalYear.Decimal().Mul(hundred).Div(yearIncomeTotal)
	} else {
		r.SavingsRate = decimal.Zero
	}

	elapsed := int64(12)
	if year == today.Year() {
		elapsed = int64(today.Month())
	}
	r.AvgMonthly = r.TotalYear.Decimal().Div(decimal.NewFromInt(elapsed))
	r.ProjectedYear = r.TotalYear.Decimal().Mul(decimal.NewFromInt(12)).Div(decimal.NewFromInt(elapsed))

	r.BestMonthName = "N/A"
	best := -1
	for i, m := range r.Monthly {
		if best < 0 || m.Cents > r.Monthly[best].Cents {
			best = i
		}
	}
	if best >= 0 && r.Monthly[best].IsPositive() {
		r.BestMonthName = time.Month(best + 1).String()
		r.BestMonthValue = r.Monthly[best]
	}

	sort.SliceStable(recent, func(i, j int) bool {
		a, b := recent[i], recent[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if len(recent) > recentSavingsLimit {
		recent = recent[:recentSavingsLimit]
	}
	r.Recent = recent
	return r
}
