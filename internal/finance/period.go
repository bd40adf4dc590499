// Package finance aggregates a user's transactions into monthly summaries,
// budget limits, advice, history and savings analytics.
//
// Everything here is pure: callers load profiles and transactions and pass
// them in, so the HTML pages and the JSON API share one implementation.
package finance

import (
	"errors"
	"fmt"
	"time"

	"wealthplanner/internal/core"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod validates year (1..9999) and month (1..12).
func NewPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: %d-%d", ErrInvalidPeriod, year, month)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// First returns the first day of the month.
func (p Period) First() core.Date {
	return core.NewDate(p.Year, int(p.Month), 1)
}

// Last returns the last day of the month.
func (p Period) Last() core.Date {
	return core.Date{Time: p.First().AddDate(0, 1, -1)}
}

func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Contains reports whether d falls inside the month.
func (p Period) Contains(d core.Date) bool {
	return d.Year() == p.Year && d.Time.Month() == p.Month
}

// Key is the sortable YYYY-MM form.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Label renders "January 2006".
func (p Period) Label() string {
	return p.First().Format("January 2006")
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// DateFor picks the date a new entry for this month gets: today when the month
// is the current one, otherwise the first of the month.
func (p Period) DateFor(today time.Time) core.Date {
	if PeriodOf(today) == p {
		return core.DateOf(today)
	}
	return p.First()
}

// InPeriod keeps the transactions dated inside p.
func InPeriod(p Period, txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if p.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}
