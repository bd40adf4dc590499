package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"wealthplanner/internal/core"
	"wealthplanner/internal/storage"
)

func TestInsertAtTopAndReorder(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProfile(ctx, core.NewProfile("5550001111"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var ids []int64
	for i := 0; i < 3; i++ {
		tx, err := s.InsertAtTop(ctx, core.Transaction{UserID: p.ID, Description: "x", Amount: core.Money{Cents: 100}, Category: core.Needs, Date: core.NewDate(2026, 1, 10)})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, tx.ID)
	}
	feb, _ := s.InsertAtTop(ctx, core.Transaction{UserID: p.ID, Description: "y", Amount: core.Money{Cents: 100}, Category: core.Needs, Date: core.NewDate(2026, 2, 1)})

	want := map[int64]int{ids[0]: 2, ids[1]: 1, ids[2]: 0, feb.ID: 0}
	txs, _ := s.ListTransactions(ctx, p.ID)
	for _, tx := range txs {
		if tx.Order != want[tx.ID] {
			t.Fatalf("tx %d order %d, want %d", tx.ID, tx.Order, want[tx.ID])
		}
	}

	if err := s.Reorder(ctx, p.ID, map[int64]int{ids[0]: 0, ids[2]: 1}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got, _ := s.GetTransaction(ctx, p.ID, ids[0])
	if got.Order != 0 {
		t.Fatalf("reorder not applied: %+v", got)
	}

	jan, _ := s.ListTransactionsBetween(ctx, p.ID, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	if len(jan) != 3 {
		t.Fatalf("expected 3 january transactions, got %d", len(jan))
	}
}

func TestUpdateAcrossMonthsMovesToTop(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, _ := s.CreateProfile(ctx, core.NewProfile("5550004444"))
	add := func(desc string, d core.Date) core.Transaction {
		tx, err := s.InsertAtTop(ctx, core.Transaction{UserID: p.ID, Description: desc, Amount: core.Money{Cents: 100}, Category: core.Needs, Date: d})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		return tx
	}
	janOld := add("jan old", core.NewDate(2026, 1, 5))
	moving := add("moving", core.NewDate(2026, 1, 6))
	febA := add("feb a", core.NewDate(2026, 2, 1))

	moving.Date = core.NewDate(2026, 2, 10)
	got, err := s.UpdateTransaction(ctx, moving)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Order != 0 {
		t.Fatalf("moved transaction order %d, want 0", got.Order)
	}
	want := map[int64]int{janOld.ID: 1, moving.ID: 0, febA.ID: 1}
	txs, _ := s.ListTransactions(ctx, p.ID)
	for _, tx := range txs {
		if tx.Order != want[tx.ID] {
			t.Errorf("%s order %d, want %d", tx.Description, tx.Order, want[tx.ID])
		}
	}
}

func TestOwnershipAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.CreateProfile(ctx, core.NewProfile("5550002222"))
	b, _ := s.CreateProfile(ctx, core.NewProfile("5550003333"))
	tx, _ := s.InsertAtTop(ctx, core.Transaction{UserID: a.ID, Description: "x", Amount: core.Money{Cents: 1}, Category: core.Wants, Date: core.NewDate(2026, 1, 1)})

	if _, err := s.GetTransaction(ctx, b.ID, tx.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, b.ID, tx.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.CreateProfile(ctx, core.NewProfile("5550002222")); err == nil {
		t.Fatalf("expected duplicate phone error")
	}
}

func TestReplaceAllValidatesFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, _ := s.CreateProfile(ctx, core.NewProfile("5550004444"))
	_, _ = s.InsertAtTop(ctx, core.Transaction{UserID: p.ID, Description: "keep", Amount: core.Money{Cents: 1}, Category: core.Wants, Date: core.NewDate(2026, 1, 1)})

	bad := []core.Transaction{{Description: "", Amount: core.Money{Cents: 1}, Category: core.Needs, Date: core.NewDate(2026, 1, 1)}}
	if err := s.ReplaceAll(ctx, p, bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if txs, _ := s.ListTransactions(ctx, p.ID); len(txs) != 1 {
		t.Fatalf("ledger changed on failed import: %d", len(txs))
	}
}

func TestOTPLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })

	_ = s.SaveOTP(ctx, core.OTP{Phone: "5550005555", Code: "123456", CreatedAt: now})
	if err := s.MarkOTPVerified(ctx, "5550005555", "000000"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("wrong code must not verify: %v", err)
	}
	if err := s.MarkOTPVerified(ctx, "5550005555", "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if n, _ := s.PurgeOTPs(ctx, now.Add(-time.Hour)); n != 1 {
		t.Fatalf("expected verified code purged, got %d", n)
	}
}
