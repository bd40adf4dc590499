package finance

import (
	"errors"
	"fmt"

	"wealthplanner/internal/core"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// InsufficientBalanceError reports the balance an expense would have overdrawn.
type InsufficientBalanceError struct {
	Available core.Money
	Currency  string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient balance! Available: %s%s", e.Currency, e.Available.String())
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// CheckBalance decides whether an expense of amount in category fits in
// period p. Income is always accepted. When replacing is set, that stored
// transaction is being edited and its effect on the period is undone first.
func CheckBalance(b Budget, p Period, txs []core.Transaction, amount core.Money, category core.Category, replacing *core.Transaction) error {
	if !category.IsExpense() {
		return nil
	}
	monthTxs := InPeriod(p, txs)
	if replacing != nil {
		// Drop the old version so its amount is not counted twice.
		kept := monthTxs[:0:0]
		for _, tx := range monthTxs {
			if tx.ID != replacing.ID {
				kept = append(kept, tx)
			}
		}
		monthTxs = kept
	}
	balance := Compute(b.BaseIncome, monthTxs).Balance
	if balance.Sub(amount).IsNegative() {
		return &InsufficientBalanceError{Available: balance, Currency: b.Currency}
	}
	return nil
}
