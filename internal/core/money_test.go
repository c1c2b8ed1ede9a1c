package core

import (
	"strings"
	"testing"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
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
		{"5000.00", 500000, true},
		{"450,50", 45050, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
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

func TestMoneyArithmeticIsExact(t *testing.T) {
	// 0.10 repeated a thousand times must land on exactly 100.00.
	dime, err := ParseMoney("0.10")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var sum Money
	for i := 0; i < 1000; i++ {
		sum = sum.Add(dime)
	}
	if sum.Cents != 100_00 {
		t.Fatalf("expected 10000 cents, got %d", sum.Cents)
	}
	if got := sum.Sub(Money{Cents: 100_00}); got.Cents != 0 {
		t.Fatalf("expected zero remainder, got %d", got.Cents)
	}
}

func TestMoneyDecimalString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{500000, "5000.00"},
		{45050, "450.50"},
		{454950, "4549.50"},
		{5, "0.05"},
		{-123, "-1.23"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).DecimalString(); got != tc.want {
			t.Fatalf("cents %d: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyDecimalStringRoundTrip(t *testing.T) {
	for _, cents := range []int64{1, 99, 100, 45050, 500000, 999999999} {
		got, err := ParseDecimalToCents((Money{Cents: cents}).DecimalString())
		if err != nil || got != cents {
			t.Fatalf("cents %d did not round-trip: got %d (err=%v)", cents, got, err)
		}
	}
}

func TestMoneyFormat(t *testing.T) {
	m := Money{Cents: 500000}
	got := m.Format(language.BrazilianPortuguese, currency.BRL)
	if got == "" {
		t.Fatal("expected non-empty formatted amount")
	}
	if !strings.Contains(got, "5") {
		t.Fatalf("expected formatted amount to carry digits, got %q", got)
	}
	// Pure function: same input, same output.
	if again := m.Format(language.BrazilianPortuguese, currency.BRL); again != got {
		t.Fatalf("format not deterministic: %q vs %q", got, again)
	}
}
