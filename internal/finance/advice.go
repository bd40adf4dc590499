package finance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"wealthplanner/internal/core"
)

type AdviceKind string

const (
	AdviceWarning AdviceKind = "warning"
	AdviceGood    AdviceKind = "good"
	AdviceInfo    AdviceKind = "info"
)

// goodStatusBelow is the spending percentage under which the month counts as healthy.
// Between it and 100 no status message is produced.
const goodStatusBelow = 85

type Advice struct {
	Kind    AdviceKind `json:"type"`
	Title   string     `json:"title"`
	Message string     `json:"msg"`
}

// Advise derives the advice messages for a month. With no base income the
// setup reminder is the only message.
func Advise(b Budget, t Totals) []Advice {
	if b.BaseIncome.IsZero() {
		return []Advice{{
			Kind:    AdviceWarning,
			Title:   "⚠️ Setup Required",
			Message: "Please go to Settings and set your Monthly Income.",
		}}
	}

	// Comparisons run on cents so that band edges are exact.
	baseCents := t.TotalIncome.Cents
	if baseCents <= 0 {
		baseCents = 100
	}
	spent := t.TotalSpent.Cents
	pct := SpentPercent(t)

	var out []Advice
	switch {
	case spent > baseCents:
		out = append(out, Advice{
			Kind:    AdviceWarning,
			Title:   "🚨 Over Budget",
			Message: fmt.Sprintf("You are spending %s%% of your income!", pct.StringFixed(1)),
		})
	case spent*100 < goodStatusBelow*baseCents:
		out = append(out, Advice{
			Kind:    AdviceGood,
			Title:   "✅ Good Status",
			Message: fmt.Sprintf("You are under budget (%s%%).", pct.StringFixed(1)),
		})
	}

	if t.Wants.Cents*100 > int64(b.Rules.Wants)*baseCents {
		out = append(out, Advice{
			Kind:    AdviceWarning,
			Title:   "⚠️ Wants Alert",
			Message: `You exceeded your "Wants" limit.`,
		})
	}

	if t.Savings.IsZero() && t.TotalSpent.IsPositive() {
		out = append(out, Advice{
			Kind:    AdviceInfo,
			Title:   "💡 Savings Tip",
			Message: "No money allocated to Savings yet.",
		})
	}
	return out
}

// SpentPercent is total spent as a percentage of total income. A non-positive
// income is treated as one unit.
func SpentPercent(t Totals) decimal.Decimal {
	base := t.TotalIncome.Decimal()
	if !base.IsPositive() {
		base = decimal.NewFromInt(1)
	}
	return t.TotalSpent.Decimal().Mul(hundred).Div(base)
}

// categoryIcon maps a category to the emoji shown next to its totals.
var categoryIcon = map[core.Category]string{
	core.Needs:   "🏠",
	core.Wants:   "🎉",
	core.Savings: "💰",
	core.Income:  "💵",
}

func Icon(c core.Category) string {
	return categoryIcon[c]
}
