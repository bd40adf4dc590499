package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"wealthplanner/internal/core"
)

const txColumns = `id, user_id, description, amount_cents, category, date, sort_order, created_at, updated_at`

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var category, date, created, updated string
	err := row.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &category, &date, &t.Order, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, err
	}
	t.Category = core.Category(category)
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date %q: %w", t.ID, date, err)
	}
	if t.CreatedAt, err = parseStamp(created); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseStamp(updated); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d updated_at: %w", t.ID, err)
	}
	return t, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactions returns every transaction of the user.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx, `SELECT `+txColumns+` FROM transactions WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ListTransactionsBetween returns the user's transactions dated from..to inclusive.
func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx, `SELECT `+txColumns+` FROM transactions
		WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date, id`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions %s..%s: %w", from, to, err)
	}
	return txs, nil
}

// GetTransaction loads one of the user's transactions.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransaction(ctx context.Context, exec execer, t core.Transaction, now string) (int64, error) {
	res, err := exec.ExecContext(ctx, `INSERT INTO transactions
		(user_id, description, amount_cents, category, date, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Description, t.Amount.Cents, string(t.Category), t.Date.String(), t.Order, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func monthBounds(d core.Date) (string, string) {
	first := core.NewDate(d.Year(), d.Month(), 1)
	last := core.Date{Time: first.AddDate(0, 1, -1)}
	return first.String(), last.String()
}

// InsertAtTop inserts t at position 0 of its month, shifting every other
// transaction of that month down by one. Both happen in one transaction.
func (r *SQLiteRepository) InsertAtTop(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.stamp()
	from, to := monthBounds(t.Date)
	t.Order = 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE transactions SET sort_order = sort_order + 1
			WHERE user_id = ? AND date >= ? AND date <= ?`, t.UserID, from, to); err != nil {
			return fmt.Errorf("shift month: %w", err)
		}
		id, err := insertTransaction(ctx, tx, t, now)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		t.ID = id
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.CreatedAt, err = parseStamp(now); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.UpdatedAt = t.CreatedAt

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return t, nil
}

// UpdateTransaction rewrites description, amount, category and date. The
// manual position is kept within the month; a transaction moved to another
// month lands at position 0 there, shifting the rest down as InsertAtTop does.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.stamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var date string
		err := tx.QueryRowContext(ctx, `SELECT date FROM transactions WHERE id = ? AND user_id = ?`, t.ID, t.UserID).Scan(&date)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		from, to := monthBounds(t.Date)
		if date >= from && date <= to {
			_, err = tx.ExecContext(ctx, `UPDATE transactions SET
				description = ?, amount_cents = ?, category = ?, date = ?, updated_at = ?
				WHERE id = ? AND user_id = ?`,
				t.Description, t.Amount.Cents, string(t.Category), t.Date.String(), now, t.ID, t.UserID)
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE transactions SET sort_order = sort_order + 1
			WHERE user_id = ? AND date >= ? AND date <= ?`, t.UserID, from, to); err != nil {
			return fmt.Errorf("shift month: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE transactions SET
			description = ?, amount_cents = ?, category = ?, date = ?, sort_order = 0, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			t.Description, t.Amount.Cents, string(t.Category), t.Date.String(), now, t.ID, t.UserID)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return r.GetTransaction(ctx, t.UserID, t.ID)
}

// DeleteTransaction removes one of the user's transactions.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

// Reorder sets the manual position of each listed transaction. Ids that are
// not the user's are ignored.
func (r *SQLiteRepository) Reorder(ctx context.Context, userID int64, positions map[int64]int) error {
	now := r.stamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE transactions SET sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for id, pos := range positions {
			if _, err := stmt.ExecContext(ctx, pos, now, id, userID); err != nil {
				return fmt.Errorf("position %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	return nil
}

// EnsureMonthEndSavings inserts t unless a carry-over already exists on its
// date. The check and insert share one transaction.
func (r *SQLiteRepository) EnsureMonthEndSavings(ctx context.Context, t core.Transaction) (core.Transaction, bool, error) {
	now := r.stamp()
	created := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions
			WHERE user_id = ? AND date = ? AND description = ?`,
			t.UserID, t.Date.String(), core.MonthEndSavingsDescription).Scan(&n); err != nil {
			return fmt.Errorf("check existing: %w", err)
		}
		if n > 0 {
			return nil
		}
		id, err := insertTransaction(ctx, tx, t, now)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		t.ID = id
		created = true
		return nil
	})
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("month end savings: %w", err)
	}
	if created {
		if t.CreatedAt, err = parseStamp(now); err != nil {
			return core.Transaction{}, false, fmt.Errorf("month end savings: %w", err)
		}
		t.UpdatedAt = t.CreatedAt
		slog.InfoContext(ctx, "Month end savings recorded",
			"user_id", t.UserID, "transaction_id", t.ID, "amount_cents", t.Amount.Cents)
	}
	return t, created, nil
}

// ReplaceAll overwrites the profile settings and swaps every transaction of
// the user for txs, all or nothing.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, p core.Profile, txs []core.Transaction) error {
	now := r.stamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateProfile(ctx, tx, p, now); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		for i, t := range txs {
			t.UserID = p.ID
			if _, err := insertTransaction(ctx, tx, t, now); err != nil {
				return fmt.Errorf("insert #%d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger replaced", "user_id", p.ID, "transactions", len(txs))
	return nil
}

// Reset deletes every transaction of the user and stores p's settings.
func (r *SQLiteRepository) Reset(ctx context.Context, p core.Profile) error {
	return r.ReplaceAll(ctx, p, nil)
}
