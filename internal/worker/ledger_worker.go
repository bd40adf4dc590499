// Package worker applies consumed ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"wealthplanner/internal/amqp"
	"wealthplanner/internal/core"
	"wealthplanner/internal/sheets"
)

// LedgerSource is where a replaced ledger is re-read from.
type LedgerSource interface {
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
}

// LedgerWorker mirrors ledger events into a spreadsheet.
type LedgerWorker struct {
	writer sheets.LedgerWriter
	source LedgerSource
}

func NewLedgerWorker(writer sheets.LedgerWriter, source LedgerSource) *LedgerWorker {
	return &LedgerWorker{writer: writer, source: source}
}

// Handle applies one event. A returned error makes the consumer requeue the message.
func (w *LedgerWorker) Handle(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", ev.ID,
		"type", ev.Type,
		"user_id", ev.UserID,
		"transaction_id", ev.TransactionID)

	switch ev.Type {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		tx, err := ev.Transaction()
		if err != nil {
			// Replaying cannot fix a malformed payload.
			slog.ErrorContext(ctx, "Dropping malformed ledger event", "event_id", ev.ID, "error", err)
			return nil
		}
		if err := w.writer.UpsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("mirror transaction %d: %w", ev.TransactionID, err)
		}

	case amqp.TransactionDeleted:
		if err := w.writer.DeleteTransaction(ctx, ev.UserID, ev.TransactionID); err != nil {
			return fmt.Errorf("delete mirrored transaction %d: %w", ev.TransactionID, err)
		}

	case amqp.LedgerReplaced:
		if w.source == nil {
			slog.WarnContext(ctx, "No ledger source configured, skipping replace", "user_id", ev.UserID)
			return nil
		}
		txs, err := w.source.ListTransactions(ctx, ev.UserID)
		if err != nil {
			return fmt.Errorf("read ledger of user %d: %w", ev.UserID, err)
		}
		if err := w.writer.ReplaceUser(ctx, ev.UserID, txs); err != nil {
			return fmt.Errorf("replace mirrored ledger of user %d: %w", ev.UserID, err)
		}

	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event type", "event_id", ev.ID, "type", ev.Type)
		return nil
	}

	slog.InfoContext(ctx, "Ledger event mirrored", "event_id", ev.ID, "type", ev.Type)
	return nil
}
