// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed into the
// transaction editor and rendering backend amounts for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a strictly positive decimal.
//
// The decimal separator is a dot. Commas are accepted only as digit
// grouping, either Indian (1,50,000) or western (150,000). Empty input,
// non-numeric text, misplaced commas, zero and negative values return
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("1,500")    -> 1500, nil
//	ParseAmount("1,50,000") -> 150000, nil
//	ParseAmount("12,5")     -> 0, ErrInvalidAmount
//	ParseAmount("0")        -> 0, ErrInvalidAmount
//	ParseAmount("-5")       -> 0, ErrInvalidAmount
//	ParseAmount("abc")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		var ok bool
		if s, ok = stripGrouping(s); !ok {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// stripGrouping removes grouping commas from the integer part. The last
// group holds three digits, inner groups two or three, the first one to
// three.
func stripGrouping(s string) (string, bool) {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if strings.Contains(frac, ",") {
		return "", false
	}
	groups := strings.Split(intPart, ",")
	for i, g := range groups {
		n := len(strings.TrimLeft(g, "+-"))
		switch {
		case i == 0 && (n < 1 || n > 3):
			return "", false
		case i == len(groups)-1 && i > 0 && n != 3:
			return "", false
		case i > 0 && i < len(groups)-1 && (n < 2 || n > 3):
			return "", false
		case i > 0 && n != len(g):
			return "", false
		}
	}
	out := strings.Join(groups, "")
	if hasFrac {
		out += "." + frac
	}
	return out, true
}

// FormatRupees renders an amount with two decimals and the rupee sign.
func FormatRupees(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-₹" + d.Neg().StringFixed(2)
	}
	return "₹" + d.StringFixed(2)
}
