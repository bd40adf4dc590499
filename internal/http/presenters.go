package http

import (
	"time"

	"github.com/shopspring/decimal"

	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
	"wealthplanner/internal/services"
)

// JSON shapes of the mobile API.

type userJSON struct {
	ID          int64      `json:"id"`
	Phone       string     `json:"phone"`
	Name        string     `json:"name"`
	Income      core.Money `json:"income"`
	Currency    string     `json:"currency"`
	Theme       core.Theme `json:"theme"`
	RuleNeeds   int        `json:"rule_needs"`
	RuleWants   int        `json:"rule_wants"`
	RuleSavings int        `json:"rule_savings"`
	CreatedAt   time.Time  `json:"created_at"`
}

func presentUser(p core.Profile) userJSON {
	return userJSON{
		ID:          p.ID,
		Phone:       p.Phone,
		Name:        p.Name,
		Income:      p.Income,
		Currency:    p.Currency,
		Theme:       p.Theme,
		RuleNeeds:   p.Rules.Needs,
		RuleWants:   p.Rules.Wants,
		RuleSavings: p.Rules.Savings,
		CreatedAt:   p.CreatedAt,
	}
}

type transactionJSON struct {
	ID          int64         `json:"id"`
	Description string        `json:"description"`
	Amount      core.Money    `json:"amount"`
	Category    core.Category `json:"category"`
	Date        string        `json:"date"`
	Order       int           `json:"order"`
	CreatedAt   time.Time     `json:"created_at"`
}

func presentTransaction(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Order:       tx.Order,
		CreatedAt:   tx.CreatedAt,
	}
}

func presentTransactions(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, presentTransaction(tx))
	}
	return out
}

// float rounds d to cents for JSON.
func float(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type categoryTotalsJSON struct {
	Needs   core.Money `json:"needs"`
	Wants   core.Money `json:"wants"`
	Savings core.Money `json:"savings"`
}

type limitsJSON struct {
	Needs   float64 `json:"needs"`
	Wants   float64 `json:"wants"`
	Savings float64 `json:"savings"`
}

type periodJSON struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func presentPeriod(p finance.Period) periodJSON {
	return periodJSON{Year: p.Year, Month: int(p.Month)}
}

type historyJSON struct {
	Month       string     `json:"month"`
	Year        int        `json:"year"`
	MonthNum    int        `json:"month_num"`
	TotalIncome core.Money `json:"total_income"`
	Spent       core.Money `json:"spent"`
	Saved       core.Money `json:"saved"`
	Status      string     `json:"status"`
}

func presentHistory(entries []finance.HistoryEntry) []historyJSON {
	out := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyJSON{
			Month:       e.Period.Month.String(),
			Year:        e.Period.Year,
			MonthNum:    int(e.Period.Month),
			TotalIncome: e.Income,
			Spent:       e.Spent,
			Saved:       e.Saved,
			Status:      e.Status,
		})
	}
	return out
}

type dashboardJSON struct {
	User         userJSON           `json:"user"`
	CurrentDate  periodJSON         `json:"current_date"`
	Transactions []transactionJSON  `json:"transactions"`
	TotalIncome  core.Money         `json:"total_income"`
	ExtraIncome  core.Money         `json:"extra_income"`
	TotalSpent   core.Money         `json:"total_spent"`
	Balance      core.Money         `json:"balance"`
	Categories   categoryTotalsJSON `json:"categories"`
	Limits       limitsJSON         `json:"limits"`
	Advice       []finance.Advice   `json:"advice"`
	History      []historyJSON      `json:"history"`
	PrevMonth    periodJSON         `json:"prev_month"`
	NextMonth    periodJSON         `json:"next_month"`
	Page         int                `json:"page"`
	TotalPages   int                `json:"total_pages"`
}

func presentDashboard(d services.Dashboard) dashboardJSON {
	sum := d.Summary
	advice := sum.Advice
	if advice == nil {
		advice = []finance.Advice{}
	}
	return dashboardJSON{
		User:         presentUser(d.Profile),
		CurrentDate:  presentPeriod(sum.Period),
		Transactions: presentTransactions(d.Transactions.Items),
		TotalIncome:  sum.TotalIncome,
		ExtraIncome:  sum.ExtraIncome,
		TotalSpent:   sum.TotalSpent,
		Balance:      sum.Balance,
		Categories:   categoryTotalsJSON{Needs: sum.Needs, Wants: sum.Wants, Savings: sum.Savings},
		Limits: limitsJSON{
			Needs:   float(sum.Limits.Needs),
			Wants:   float(sum.Limits.Wants),
			Savings: float(sum.Limits.Savings),
		},
		Advice:     advice,
		History:    presentHistory(d.History),
		PrevMonth:  presentPeriod(sum.Period.Prev()),
		NextMonth:  presentPeriod(sum.Period.Next()),
		Page:       d.Transactions.Number,
		TotalPages: d.Transactions.TotalPages,
	}
}

type savingsJSON struct {
	CurrentYear       int               `json:"current_year"`
	YearPrev          int               `json:"year_prev"`
	YearNext          *int              `json:"year_next"`
	TotalSavedAllTime core.Money        `json:"total_saved_all_time"`
	TotalSavedYear    core.Money        `json:"total_saved_year"`
	MonthlyGoal       float64           `json:"monthly_goal"`
	YearlyGoal        float64           `json:"yearly_goal"`
	GoalPercent       float64           `json:"goal_percent"`
	ChartLabels       []string          `json:"chart_labels"`
	ChartValues       []float64         `json:"chart_values"`
	RecentSavings     []transactionJSON `json:"recent_savings"`
	AvgMonthly        float64           `json:"avg_monthly"`
	SavingsRate       float64           `json:"savings_rate"`
	ProjectedYear     float64           `json:"projected_year"`
	BestMonthName     string            `json:"best_month_name"`
	BestMonthValue    core.Money        `json:"best_month_val"`
	User              userJSON          `json:"user"`
}

func presentSavings(v services.SavingsView) savingsJSON {
	r := v.Report
	out := savingsJSON{
		CurrentYear:       r.Year,
		YearPrev:          r.PrevYear,
		TotalSavedAllTime: r.TotalAllTime,
		TotalSavedYear:    r.TotalYear,
		MonthlyGoal:       float(r.MonthlyGoal),
		YearlyGoal:        float(r.YearlyGoal),
		GoalPercent:       float(r.GoalPercent()),
		ChartLabels:       finance.MonthLabels[:],
		ChartValues:       r.ChartValues(),
		RecentSavings:     presentTransactions(r.Recent),
		AvgMonthly:        float(r.AvgMonthly),
		SavingsRate:       float(r.SavingsRate),
		ProjectedYear:     float(r.ProjectedYear),
		BestMonthName:     r.BestMonthName,
		BestMonthValue:    r.BestMonthValue,
		User:              presentUser(v.Profile),
	}
	if r.HasNext() {
		next := r.NextYear
		out.YearNext = &next
	}
	return out
}

type yearJSON struct {
	Year   int        `json:"year"`
	Months int        `json:"months"`
	Income core.Money `json:"total_income"`
	Spent  core.Money `json:"spent"`
	Saved  core.Money `json:"saved"`
}

type historyPageJSON struct {
	History []historyJSON `json:"history"`
	Years   []yearJSON    `json:"years"`
	User    userJSON      `json:"user"`
}

func presentHistoryView(h services.HistoryView) historyPageJSON {
	years := make([]yearJSON, 0, len(h.Years))
	for _, y := range h.Years {
		years = append(years, yearJSON{Year: y.Year, Months: y.Months, Income: y.Income, Spent: y.Spent, Saved: y.Saved})
	}
	return historyPageJSON{History: presentHistory(h.Entries), Years: years, User: presentUser(h.Profile)}
}
