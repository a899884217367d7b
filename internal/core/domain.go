package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RawMaterial VendorType = "RAW_MATERIAL"
	Expenditure VendorType = "EXPENDITURE"
	Dispatch    VendorType = "DISPATCH"
)

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

type (
	VendorType string

	// VendorTypes is decoded from either a single string or an array.
	VendorTypes []VendorType

	Vendor struct {
		ID    int64       `json:"id"`
		Name  string      `json:"name"`
		Types VendorTypes `json:"type"`
	}

	Direction string

	Date struct {
		time.Time
	}

	// LedgerTransaction is one row of a vendor account as computed by the backend.
	LedgerTransaction struct {
		ID        int64
		Date      Date
		RawDate   string // as sent by the backend
		Kind      TransactionKind
		Direction Direction
		Amount    decimal.Decimal
		Note      string
		Balance   decimal.Decimal
	}

	LedgerQuery struct {
		VendorName string
		From       Month
		To         Month
	}

	LedgerResult struct {
		OpeningBalance decimal.Decimal
		Transactions   []LedgerTransaction
		FinalBalance   decimal.Decimal
		TotalTrade     decimal.Decimal
	}

	// TransactionDraft is the body of a create (ID == 0) or update request.
	TransactionDraft struct {
		ID         int64
		VendorName string
		Date       Date
		Kind       TransactionKind
		Amount     decimal.Decimal
		Note       string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyVendor       = errors.New("empty vendor name")
	ErrFutureDate        = errors.New("date cannot be in the future")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrNotEditable       = errors.New("transaction kind is not editable")
	ErrMonthOutOfRange   = errors.New("month outside selectable range")
	ErrMonthRangeReverse = errors.New("from month is after to month")
)

// Has reports whether the vendor carries the given type.
func (v Vendor) Has(t VendorType) bool {
	for _, vt := range v.Types {
		if vt == t {
			return true
		}
	}
	return false
}

func (t *VendorTypes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		if strings.TrimSpace(single) == "" {
			*t = nil
			return nil
		}
		*t = VendorTypes{VendorType(single)}
		return nil
	}
	var many []VendorType
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ISO renders the date as yyyy-MM-dd.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// IsEditable reports whether the row offers an edit affordance.
func (t LedgerTransaction) IsEditable() bool {
	return t.Kind.Editable
}

// DisplayDate renders the row date as "02 Jan 06". A backend date that
// cannot be read is shown as received.
func (t LedgerTransaction) DisplayDate() string {
	if t.RawDate != "" {
		return ToDisplay(t.RawDate)
	}
	if t.Date.IsZero() {
		return ""
	}
	return ToDisplay(t.Date.ISO())
}

// Find returns the transaction with the given id.
func (r LedgerResult) Find(id int64) (LedgerTransaction, bool) {
	for _, tx := range r.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return LedgerTransaction{}, false
}

// IsEmpty reports whether the result holds no rows.
func (r LedgerResult) IsEmpty() bool {
	return len(r.Transactions) == 0
}

func (q LedgerQuery) Validate() error {
	if strings.TrimSpace(q.VendorName) == "" {
		return ErrEmptyVendor
	}
	if q.From.IsZero() || q.To.IsZero() {
		return ErrInvalidMonth
	}
	if q.From.After(q.To) {
		return ErrMonthRangeReverse
	}
	return nil
}

// Validate checks a draft against the reference day (normally today).
func (d TransactionDraft) Validate(today Date) error {
	if strings.TrimSpace(d.VendorName) == "" {
		return ErrEmptyVendor
	}
	if !d.Kind.Editable {
		return ErrNotEditable
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	if d.Date.After(today) {
		return ErrFutureDate
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(d.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}
