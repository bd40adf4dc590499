package services

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"wealthplanner/internal/core"
)

// BackupFileName is the download name of an export.
const BackupFileName = "wealth_planner_backup.json"

type (
	// Backup is the portable export document.
	Backup struct {
		Income   core.Money    `json:"income"`
		Currency string        `json:"currency"`
		Theme    string        `json:"theme"`
		Rules    BackupRules   `json:"rules"`
		Txs      []BackupEntry `json:"txs"`
	}

	BackupRules struct {
		Needs   int `json:"needs"`
		Wants   int `json:"wants"`
		Savings int `json:"savings"`
	}

	BackupEntry struct {
		Desc  string     `json:"desc"`
		Amt   core.Money `json:"amt"`
		Cat   string     `json:"cat"`
		Date  string     `json:"date"`
		Order int        `json:"order"`
	}
)

// NewBackup exports p's settings and txs in storage order.
func NewBackup(p core.Profile, txs []core.Transaction) Backup {
	b := Backup{
		Income:   p.Income,
		Currency: p.Currency,
		Theme:    string(p.Theme),
		Rules:    BackupRules{Needs: p.Rules.Needs, Wants: p.Rules.Wants, Savings: p.Rules.Savings},
		Txs:      make([]BackupEntry, 0, len(txs)),
	}
	for _, tx := range txs {
		b.Txs = append(b.Txs, BackupEntry{
			Desc:  tx.Description,
			Amt:   tx.Amount,
			Cat:   string(tx.Category),
			Date:  tx.Date.String(),
			Order: tx.Order,
		})
	}
	return b
}

// DecodeBackup reads a backup document. Missing settings take their defaults.
func DecodeBackup(r io.Reader) (Backup, error) {
	b := Backup{
		Currency: core.DefaultCurrency,
		Theme:    string(core.ThemeLight),
		Rules:    BackupRules{Needs: core.DefaultRules.Needs, Wants: core.DefaultRules.Wants, Savings: core.DefaultRules.Savings},
	}
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return b, nil
}

// Apply validates the document against p and returns the profile and ledger
// to store. Entries without a category are needs, without a date are dated today.
func (b Backup) Apply(p core.Profile, now time.Time) (core.Profile, []core.Transaction, error) {
	p.Income = b.Income
	p.Currency = strings.TrimSpace(b.Currency)
	if p.Currency == "" {
		p.Currency = core.DefaultCurrency
	}
	p.Theme = core.ThemeLight
	if strings.TrimSpace(b.Theme) != "" {
		theme, err := core.ParseTheme(b.Theme)
		if err != nil {
			return core.Profile{}, nil, err
		}
		p.Theme = theme
	}
	p.Rules = core.BudgetRules{Needs: b.Rules.Needs, Wants: b.Rules.Wants, Savings: b.Rules.Savings}
	if err := p.Validate(); err != nil {
		return core.Profile{}, nil, err
	}

	today := core.DateOf(now)
	txs := make([]core.Transaction, 0, len(b.Txs))
	for i, e := range b.Txs {
		tx := core.Transaction{
			UserID:      p.ID,
			Description: e.Desc,
			Amount:      e.Amt,
			Category:    core.Needs,
			Date:        today,
			Order:       e.Order,
		}
		if strings.TrimSpace(e.Cat) != "" {
			cat, err := core.ParseCategory(e.Cat)
			if err != nil {
				return core.Profile{}, nil, fmt.Errorf("transaction #%d: %w", i+1, err)
			}
			tx.Category = cat
		}
		if strings.TrimSpace(e.Date) != "" {
			d, err := core.ParseDate(e.Date)
			if err != nil {
				return core.Profile{}, nil, fmt.Errorf("transaction #%d: %w", i+1, err)
			}
			tx.Date = d
		}
		if err := tx.Validate(); err != nil {
			return core.Profile{}, nil, fmt.Errorf("transaction #%d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return p, txs, nil
}
