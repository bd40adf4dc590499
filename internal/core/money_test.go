package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"١٢", 0, false}, // non-ASCII digits
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseNonNegativeCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"", 0, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"2500", 250000, true},
		{"-5", 0, false},
		{"x", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseNonNegativeCents(tc.in)
		if tc.ok && (err != nil || got != tc.out) {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		m      Money
		str    string
		fixed  string
		format string
	}{
		{Money{Cents: 50000}, "500", "500.00", "$500"},
		{Money{Cents: 1250}, "12.5", "12.50", "$12.5"},
		{Money{Cents: 1234}, "12.34", "12.34", "$12.34"},
		{Money{Cents: 0}, "0", "0.00", "$0"},
		{Money{Cents: -20000}, "-200", "-200.00", "-$200"},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.str {
			t.Errorf("String(%d) = %q, want %q", tc.m.Cents, got, tc.str)
		}
		if got := tc.m.Fixed(); got != tc.fixed {
			t.Errorf("Fixed(%d) = %q, want %q", tc.m.Cents, got, tc.fixed)
		}
		if got := tc.m.Format("$"); got != tc.format {
			t.Errorf("Format(%d) = %q, want %q", tc.m.Cents, got, tc.format)
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.345", 1235},
		{"12.344", 1234},
		{"0.005", 1},
		{"100", 10000},
	}
	for _, tc := range cases {
		if got := MoneyFromDecimal(decimal.RequireFromString(tc.in)); got.Cents != tc.want {
			t.Errorf("MoneyFromDecimal(%s) = %d, want %d", tc.in, got.Cents, tc.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amt Money `json:"amt"`
	}{Money{Cents: 50000}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amt":500.00}` {
		t.Fatalf("unexpected json %s", b)
	}

	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`12.34`, 1234, true},
		{`"12.34"`, 1234, true},
		{`"12,5"`, 1250, true},
		{`500.0`, 50000, true},
		{`1e2`, 10000, true},
		{`-1`, 0, false},
		{`"abc"`, 0, false},
		{`1e20`, 0, false},
		{`"100000000000000000000"`, 0, false},
		{`184467440737095516.17`, 0, false},
		{`92233720368547758`, 0, false},
		{`1e999999999`, 0, false},
		{`"1e-999999999"`, 0, false},
		{`92233720368547757.99`, 9223372036854775799, true},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok && (err != nil || m.Cents != tc.want) {
			t.Fatalf("%s expected %d, got %d (err=%v)", tc.in, tc.want, m.Cents, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s expected error", tc.in)
		}
	}
}
