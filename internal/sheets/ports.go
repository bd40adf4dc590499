// Package sheets defines the spreadsheet mirror of users' ledgers.
package sheets

import (
	"context"

	"wealthplanner/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter keeps one spreadsheet row per transaction.
	LedgerWriter interface {
		// UpsertTransaction writes the row for tx, replacing an existing row with the same id.
		UpsertTransaction(ctx context.Context, tx core.Transaction) error
		// DeleteTransaction removes the row for the given transaction, if any.
		DeleteTransaction(ctx context.Context, userID, txID int64) error
		// ReplaceUser swaps every row of the user for txs.
		ReplaceUser(ctx context.Context, userID int64, txs []core.Transaction) error
	}

	// LedgerReader reads mirrored rows back.
	LedgerReader interface {
		ListUserRows(ctx context.Context, userID int64) ([]core.Transaction, error)
	}
)
