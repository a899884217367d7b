package core

import (
	"errors"
	"testing"
	"time"
)

func TestQueryStartEnd(t *testing.T) {
	cases := []struct {
		month, start, end string
	}{
		{"2025-06", "01-06-2025", "30-06-2025"},
		{"2025-02", "01-02-2025", "28-02-2025"},
		{"2024-02", "01-02-2024", "29-02-2024"},
		{"2025-12", "01-12-2025", "31-12-2025"},
		{"2025-03", "01-03-2025", "31-03-2025"},
	}
	for _, tc := range cases {
		s, err := QueryStart(tc.month)
		if err != nil || s != tc.start {
			t.Fatalf("QueryStart(%s) = %q, %v; want %q", tc.month, s, err, tc.start)
		}
		e, err := QueryEnd(tc.month)
		if err != nil || e != tc.end {
			t.Fatalf("QueryEnd(%s) = %q, %v; want %q", tc.month, e, err, tc.end)
		}
	}
	if _, err := QueryEnd("2025-13"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestToDisplay(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"2025-06-15", "15 Jun 25"},
		{"15-06-2025", "15 Jun 25"},
		{"01-01-2024", "01 Jan 24"},
		{"", ""},
		{"garbage", "garbage"},
		{"31-02-2025", "31-02-2025"},
		{"15/06/2025", "15/06/2025"},
	}
	for _, tc := range cases {
		if got := ToDisplay(tc.in); got != tc.out {
			t.Fatalf("ToDisplay(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestParseLedgerDate(t *testing.T) {
	a, err := ParseLedgerDate("2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseLedgerDate("15-06-2025")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b.Time) || a.ISO() != "2025-06-15" {
		t.Fatalf("expected equal dates, got %s and %s", a.ISO(), b.ISO())
	}
	if _, err := ParseLedgerDate("15-06-25"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDefaultMonthsAndBounds(t *testing.T) {
	now := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)
	from, to := DefaultMonths(now)
	if from.String() != "2024-11" || to.String() != "2025-01" {
		t.Fatalf("unexpected default range %s..%s", from, to)
	}
	lo, hi := MonthBounds(now)
	if lo.String() != "2024-02" || hi.String() != "2025-01" {
		t.Fatalf("unexpected bounds %s..%s", lo, hi)
	}

	// month arithmetic must not overflow on the 31st
	may31 := time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)
	from, _ = DefaultMonths(may31)
	if from.String() != "2025-03" {
		t.Fatalf("expected 2025-03, got %s", from)
	}
}

func TestCheckRange(t *testing.T) {
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	m := func(s string) Month {
		mm, err := ParseMonth(s)
		if err != nil {
			t.Fatal(err)
		}
		return mm
	}
	cases := []struct {
		from, to string
		want     error
	}{
		{"2025-04", "2025-06", nil},
		{"2024-07", "2025-06", nil},
		{"2024-06", "2025-06", ErrMonthOutOfRange},
		{"2025-04", "2025-07", ErrMonthOutOfRange},
		{"2025-06", "2025-04", ErrMonthRangeReverse},
	}
	for _, tc := range cases {
		if err := CheckRange(m(tc.from), m(tc.to), now); err != tc.want {
			t.Fatalf("%s..%s expected %v, got %v", tc.from, tc.to, tc.want, err)
		}
	}
}
