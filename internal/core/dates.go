package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	monthLayout   = "2006-01"
	queryLayout   = "02-01-2006"
	displayLayout = "02 Jan 06"
)

// Month is a calendar month, the unit of ledger date ranges.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth reads a "yyyy-MM" month picker value.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// AddMonths shifts the month, normalising across year boundaries.
func (m Month) AddMonths(n int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) After(o Month) bool {
	return o.Before(m)
}

// String renders the month picker value "yyyy-MM".
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First is the first day of the month.
func (m Month) First() Date {
	return Date{Time: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)}
}

// Last is the last calendar day, taken as day 0 of the following month.
func (m Month) Last() Date {
	return Date{Time: time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC)}
}

// Contains reports whether d falls within the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

// QueryStart converts "yyyy-MM" to the backend's "01-MM-yyyy".
func QueryStart(month string) (string, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return m.First().Format(queryLayout), nil
}

// QueryEnd converts "yyyy-MM" to the last day of that month as "dd-MM-yyyy".
func QueryEnd(month string) (string, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return m.Last().Format(queryLayout), nil
}

// QueryDate renders a date in the backend's "dd-MM-yyyy" form.
func QueryDate(d Date) string {
	return d.Format(queryLayout)
}

// ParseLedgerDate accepts "yyyy-MM-dd" or "dd-MM-yyyy"; whichever outer
// segment has four digits is the year.
func ParseLedgerDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var ys, ds string
	switch {
	case len(parts[0]) == 4:
		ys, ds = parts[0], parts[2]
	case len(parts[2]) == 4:
		ys, ds = parts[2], parts[0]
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	y, err1 := strconv.Atoi(ys)
	mo, err2 := strconv.Atoi(parts[1])
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	out := NewDate(y, mo, d)
	// time.Date normalises overflow; reject it instead
	if out.Year() != y || int(out.Month()) != mo || out.Day() != d {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return out, nil
}

// ToDisplay renders a backend date as "dd Mon yy". Input it cannot read is
// returned unchanged.
func ToDisplay(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	d, err := ParseLedgerDate(s)
	if err != nil {
		return s
	}
	return d.Format(displayLayout)
}

// DefaultMonths is the initial range: two months back through the current month.
func DefaultMonths(now time.Time) (from, to Month) {
	cur := MonthOf(now)
	return cur.AddMonths(-2), cur
}

// MonthBounds is the selectable range: eleven months back through the current month.
func MonthBounds(now time.Time) (lo, hi Month) {
	cur := MonthOf(now)
	return cur.AddMonths(-11), cur
}

// CheckRange validates a query range against the bounds for now.
func CheckRange(from, to Month, now time.Time) error {
	if from.IsZero() || to.IsZero() {
		return ErrInvalidMonth
	}
	lo, hi := MonthBounds(now)
	if from.Before(lo) || to.After(hi) || from.After(hi) || to.Before(lo) {
		return ErrMonthOutOfRange
	}
	if from.After(to) {
		return ErrMonthRangeReverse
	}
	return nil
}
