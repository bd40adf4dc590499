package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wealthplanner/internal/amqp"
	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
)

// BudgetService owns the ledger use cases. Every read-check-write sequence on
// a month runs under that user-month's lock, and the store makes each
// multi-row write atomic.
type BudgetService struct {
	store  Store
	events EventPublisher
	locks  *monthLocks
	now    func() time.Time
}

// NewBudgetService wires the store and an optional event publisher (nil disables events).
func NewBudgetService(store Store, events EventPublisher) *BudgetService {
	return &BudgetService{store: store, events: events, locks: newMonthLocks(), now: time.Now}
}

func (s *BudgetService) WithClock(now func() time.Time) *BudgetService {
	s.now = now
	return s
}

// Now is the service clock; handlers use it to pick default periods and dates.
func (s *BudgetService) Now() time.Time { return s.now() }

type (
	// TransactionInput is a new or fully replaced transaction.
	TransactionInput struct {
		Description string
		Amount      core.Money
		Category    core.Category
		Date        core.Date
	}

	// TransactionPatch changes only the non-nil fields.
	TransactionPatch struct {
		Description *string
		Amount      *core.Money
		Category    *core.Category
		Date        *core.Date
	}

	DashboardQuery struct {
		Filter finance.Filter
		Page   int
	}

	Dashboard struct {
		Profile      core.Profile
		Summary      finance.Summary
		Filter       finance.Filter
		Transactions finance.Page[core.Transaction]
		History      []finance.HistoryEntry
		// AutoSaved is the carry-over created by this view, if any.
		AutoSaved *core.Transaction
	}

	MonthQuery struct {
		Filter finance.Filter
		Sort   finance.SortMode
	}

	MonthView struct {
		Profile      core.Profile
		Summary      finance.Summary
		Filter       finance.Filter
		Sort         finance.SortMode
		Transactions []core.Transaction
		// Filtered totals of the listed transactions.
		ListedIncome core.Money
		ListedSpent  core.Money
	}

	HistoryView struct {
		Profile core.Profile
		Entries []finance.HistoryEntry
		Years   []finance.YearTotal
	}

	SavingsView struct {
		Profile core.Profile
		Report  finance.SavingsReport
	}
)

func (in TransactionInput) transaction(userID int64) core.Transaction {
	return core.Transaction{
		UserID:      userID,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
	}
}

// Apply returns tx with the patch applied.
func (p TransactionPatch) Apply(tx core.Transaction) core.Transaction {
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

func (s *BudgetService) profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, notFound("load profile", err)
	}
	return p, nil
}

func (s *BudgetService) monthTxs(ctx context.Context, userID int64, p finance.Period) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactionsBetween(ctx, userID, p.First(), p.Last())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p.Key(), err)
	}
	return txs, nil
}

func (s *BudgetService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type, "user_id", ev.UserID, "transaction_id", ev.TransactionID, "error", err)
	}
}

// AutoSaveLastMonth moves last month's positive balance into savings once.
// It returns the created carry-over, or nil when nothing was due.
func (s *BudgetService) AutoSaveLastMonth(ctx context.Context, p core.Profile) (*core.Transaction, error) {
	today := s.now()
	prev := finance.PeriodOf(today).Prev()

	unlock := s.locks.lock(p.ID, prev)
	defer unlock()

	txs, err := s.monthTxs(ctx, p.ID, prev)
	if err != nil {
		return nil, fmt.Errorf("auto-save: %w", err)
	}
	plan, ok := finance.PlanMonthEndSavings(finance.BudgetOf(p), today, txs)
	if !ok {
		return nil, nil
	}
	plan.UserID = p.ID
	saved, created, err := s.store.EnsureMonthEndSavings(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("auto-save: %w", err)
	}
	if !created {
		return nil, nil
	}
	slog.InfoContext(ctx, "Month-end savings created",
		"user_id", p.ID, "period", prev.Key(), "amount_cents", saved.Amount.Cents)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, saved))
	return &saved, nil
}

// Dashboard assembles the main page for period, running the month-end auto-save first.
func (s *BudgetService) Dashboard(ctx context.Context, userID int64, period finance.Period, q DashboardQuery) (Dashboard, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	saved, err := s.AutoSaveLastMonth(ctx, p)
	if err != nil {
		return Dashboard{}, err
	}

	all, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	b := finance.BudgetOf(p)
	month := finance.InPeriod(period, all)
	finance.SortForDisplay(month)

	return Dashboard{
		Profile:      p,
		Summary:      finance.Summarize(b, period, month),
		Filter:       q.Filter,
		Transactions: finance.Paginate(q.Filter.Apply(month), q.Page, finance.PageSize),
		History:      finance.History(b, all, finance.DashboardHistoryMonths),
		AutoSaved:    saved,
	}, nil
}

// Month lists the period's transactions filtered and sorted, with the month summary.
func (s *BudgetService) Month(ctx context.Context, userID int64, period finance.Period, q MonthQuery) (MonthView, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return MonthView{}, err
	}
	txs, err := s.monthTxs(ctx, userID, period)
	if err != nil {
		return MonthView{}, err
	}
	listed := q.Filter.Apply(txs)
	finance.Sort(listed, q.Sort)

	view := MonthView{
		Profile:      p,
		Summary:      finance.Summarize(finance.BudgetOf(p), period, txs),
		Filter:       q.Filter,
		Sort:         q.Sort,
		Transactions: listed,
	}
	for _, tx := range listed {
		if tx.Category.IsExpense() {
			view.ListedSpent = view.ListedSpent.Add(tx.Amount)
		} else {
			view.ListedIncome = view.ListedIncome.Add(tx.Amount)
		}
	}
	return view, nil
}

// Advisor returns the month summary whose Advice the advisor page shows.
func (s *BudgetService) Advisor(ctx context.Context, userID int64, period finance.Period) (core.Profile, finance.Summary, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return core.Profile{}, finance.Summary{}, err
	}
	txs, err := s.monthTxs(ctx, userID, period)
	if err != nil {
		return core.Profile{}, finance.Summary{}, err
	}
	return p, finance.Summarize(finance.BudgetOf(p), period, txs), nil
}

func (s *BudgetService) History(ctx context.Context, userID int64) (HistoryView, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return HistoryView{}, err
	}
	all, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return HistoryView{}, fmt.Errorf("history: %w", err)
	}
	entries := finance.History(finance.BudgetOf(p), all, 0)
	return HistoryView{Profile: p, Entries: entries, Years: finance.YearTotals(entries)}, nil
}

// Savings builds the report for year; a non-positive year means the current one.
func (s *BudgetService) Savings(ctx context.Context, userID int64, year int) (SavingsView, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return SavingsView{}, err
	}
	all, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return SavingsView{}, fmt.Errorf("savings: %w", err)
	}
	today := s.now()
	if year <= 0 {
		year = today.Year()
	}
	return SavingsView{Profile: p, Report: finance.Savings(finance.BudgetOf(p), all, year, today)}, nil
}

func (s *BudgetService) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, notFound("get transaction", err)
	}
	return tx, nil
}

// AddTransaction validates the input, checks the month balance for expenses
// and inserts the transaction at the top of its month.
func (s *BudgetService) AddTransaction(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	tx := in.transaction(userID)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	p, err := s.profile(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	period := finance.PeriodOf(tx.Date.Time)

	unlock := s.locks.lock(userID, period)
	defer unlock()

	monthTxs, err := s.monthTxs(ctx, userID, period)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := finance.CheckBalance(finance.BudgetOf(p), period, monthTxs, tx.Amount, tx.Category, nil); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.InsertAtTop(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction added",
		"user_id", userID, "transaction_id", created.ID, "category", created.Category, "amount_cents", created.Amount.Cents)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, created))
	return created, nil
}

// UpdateTransaction applies patch to the user's transaction. Expenses are
// checked against the target month with the old version removed.
func (s *BudgetService) UpdateTransaction(ctx context.Context, userID, id int64, patch TransactionPatch) (core.Transaction, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, notFound("update transaction", err)
	}
	next := patch.Apply(existing)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	period := finance.PeriodOf(next.Date.Time)

	unlock := s.locks.lock(userID, period, finance.PeriodOf(existing.Date.Time))
	defer unlock()

	monthTxs, err := s.monthTxs(ctx, userID, period)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := finance.CheckBalance(finance.BudgetOf(p), period, monthTxs, next.Amount, next.Category, &existing); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, notFound("update transaction", err)
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionUpdated, updated))
	return updated, nil
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return notFound("delete transaction", err)
	}
	unlock := s.locks.lock(userID, finance.PeriodOf(existing.Date.Time))
	defer unlock()

	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return notFound("delete transaction", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "user_id", userID, "transaction_id", id)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionDeleted, existing))
	return nil
}

// Reorder stores the display order given by ids. Ids the user does not own are ignored.
func (s *BudgetService) Reorder(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return ErrEmptyOrder
	}
	if err := s.store.Reorder(ctx, userID, finance.ReorderPositions(ids)); err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	return nil
}

// Export returns the user's settings and ledger as a backup document.
func (s *BudgetService) Export(ctx context.Context, userID int64) (Backup, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return Backup{}, err
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return Backup{}, fmt.Errorf("export: %w", err)
	}
	return NewBackup(p, txs), nil
}

// Import replaces the user's settings and ledger with the backup. Nothing is
// written unless every entry is valid.
func (s *BudgetService) Import(ctx context.Context, userID int64, b Backup) error {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return err
	}
	updated, txs, err := b.Apply(p, s.now())
	if err != nil {
		return errors.Join(ErrInvalidBackup, err)
	}
	if err := s.store.ReplaceAll(ctx, updated, txs); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	slog.InfoContext(ctx, "Backup imported", "user_id", userID, "transactions", len(txs))
	s.publish(ctx, amqp.NewLedgerReplacedEvent(userID))
	return nil
}

// Reset deletes every transaction and restores the default money settings.
func (s *BudgetService) Reset(ctx context.Context, userID int64) error {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return err
	}
	p.ResetSettings()
	if err := s.store.Reset(ctx, p); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	slog.InfoContext(ctx, "User data reset", "user_id", userID)
	s.publish(ctx, amqp.NewLedgerReplacedEvent(userID))
	return nil
}

// Ready reports whether the store answers.
func (s *BudgetService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes both the store and the event publisher.
func (s *BudgetService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %w", errors.Join(errs...))
	}
	return nil
}
