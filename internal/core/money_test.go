package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.5", "12.5", true},
		{"1,500", "1500", true},
		{"1,50,000.25", "150000.25", true},
		{"150,000", "150000", true},
		{"12,50", "", false},
		{"12,5", "", false},
		{",500", "", false},
		{"1,500,", "", false},
		{"1.5,00", "", false},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err != ErrInvalidAmount {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"1234.5", "₹1234.50"},
		{"0", "₹0.00"},
		{"-12", "-₹12.00"},
		{"99.999", "₹100.00"},
	}
	for _, tc := range cases {
		if got := FormatRupees(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("%s: expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
