package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2026-01-31", NewDate(2026, 1, 31), true},
		{"2026-02-01T10:30:00", NewDate(2026, 2, 1), true},
		{"2026-02-01T10:30:00Z", NewDate(2026, 2, 1), true},
		{"31/01/2026", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
	if s := NewDate(2026, 3, 7).String(); s != "2026-03-07" {
		t.Fatalf("String() = %q", s)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 1),
		Description: "Groceries",
		Amount:      Money{Cents: 100},
		Category:    Needs,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Date: Date{}, Description: "a", Amount: Money{Cents: 1}, Category: Needs}, ErrInvalidDate},
		{Transaction{Date: NewDate(2025, 1, 1), Description: "  ", Amount: Money{Cents: 1}, Category: Needs}, ErrEmptyDescription},
		{Transaction{Date: NewDate(2025, 1, 1), Description: strings.Repeat("x", 256), Amount: Money{Cents: 1}, Category: Needs}, ErrDescriptionTooLong},
		{Transaction{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: Needs}, ErrInvalidAmount},
		{Transaction{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: "rent"}, ErrInvalidCategory},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"needs", "WANTS", " savings ", "income"} {
		if _, err := ParseCategory(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseCategory("all"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if Income.IsExpense() || !Savings.IsExpense() {
		t.Fatalf("IsExpense mismatch")
	}
}

func TestBudgetRulesValidate(t *testing.T) {
	cases := []struct {
		r    BudgetRules
		want error
	}{
		{BudgetRules{50, 30, 20}, nil},
		{BudgetRules{100, 0, 0}, nil},
		{BudgetRules{50, 30, 21}, ErrRulesSum},
		{BudgetRules{50, 30, 19}, ErrRulesSum},
		{BudgetRules{120, -10, -10}, ErrNegativeRule},
	}
	for _, tc := range cases {
		if err := tc.r.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%+v expected %v, got %v", tc.r, tc.want, err)
		}
	}
}

func TestValidatePIN(t *testing.T) {
	for _, pin := range []string{"123456", "000001"} {
		if err := ValidatePIN(pin); err != nil {
			t.Fatalf("%q: unexpected %v", pin, err)
		}
	}
	for _, pin := range []string{"", "12345", "1234567", "12a456", "١٢٣٤٥٦"} {
		if err := ValidatePIN(pin); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("%q: expected ErrInvalidPIN, got %v", pin, err)
		}
	}
}

func TestProfileDefaultsAndReset(t *testing.T) {
	p := NewProfile(" 5551234567 ")
	if p.Phone != "5551234567" || p.Currency != "$" || p.Theme != ThemeLight || p.Rules != DefaultRules {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
	if p.PINSet() || !p.NeedsSetup() || p.DisplayName() != "friend" {
		t.Fatalf("unexpected state for fresh profile")
	}

	p.Income = Money{Cents: 100000}
	p.Currency = "€"
	p.Rules = BudgetRules{60, 20, 20}
	p.Theme = ThemeDark
	p.ResetSettings()
	if !p.Income.IsZero() || p.Currency != "$" || p.Rules != DefaultRules || p.Theme != ThemeDark {
		t.Fatalf("unexpected reset result %+v", p)
	}

	if err := (Profile{Phone: "123"}).Validate(); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestThemeToggle(t *testing.T) {
	if ThemeLight.Toggle() != ThemeDark || ThemeDark.Toggle() != ThemeLight {
		t.Fatalf("toggle mismatch")
	}
}

func TestOTPIsValid(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	o := OTP{Phone: "5551234567", Code: "123456", CreatedAt: created}
	if !o.IsValid(created.Add(9 * time.Minute)) {
		t.Fatalf("expected valid within window")
	}
	if o.IsValid(created.Add(10 * time.Minute)) {
		t.Fatalf("expected expired at 10 minutes")
	}
	o.Verified = true
	if o.IsValid(created.Add(time.Minute)) {
		t.Fatalf("verified code must not be valid")
	}
	if !o.Matches(" 123456 ") || o.Matches("654321") {
		t.Fatalf("Matches mismatch")
	}
}
