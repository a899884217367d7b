// Package memory is an in-process stand-in for the business backend. It
// owns the balance arithmetic the real service performs so the dashboard
// can run without it.
package memory

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"paperdesk/internal/core"
	"paperdesk/internal/remote"
)

type entry struct {
	id        int64
	vendor    string
	date      core.Date
	kind      core.TransactionKind
	direction core.Direction
	amount    decimal.Decimal
	note      string
}

type Store struct {
	mu       sync.Mutex
	users    map[string]string
	vendors  []core.Vendor
	entries  []entry
	nextID   int64
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

var _ remote.Backend = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Store) { s.tokenTTL = ttl }
}

// WithUser registers a login.
func WithUser(username, password string) Option {
	return func(s *Store) { s.users[username] = password }
}

func New(vendors []core.Vendor, opts ...Option) *Store {
	s := &Store{
		users:    map[string]string{},
		vendors:  append([]core.Vendor(nil), vendors...),
		nextID:   1,
		secret:   make([]byte, 32),
		tokenTTL: 12 * time.Hour,
		now:      time.Now,
	}
	_, _ = rand.Read(s.secret)
	for _, opt := range opts {
		opt(s)
	}
	if len(s.users) == 0 {
		s.users["admin"] = "admin"
	}
	return s
}

// NewFromFiles seeds vendors from base/seed_vendors.txt, one
// "Name | TYPE[,TYPE]" per line, falling back to a demo directory.
func NewFromFiles(base string, opts ...Option) *Store {
	vendors := readVendors(filepath.Join(base, "seed_vendors.txt"))
	if len(vendors) == 0 {
		vendors = []core.Vendor{
			{ID: 1, Name: "ABC Traders", Types: core.VendorTypes{core.RawMaterial}},
			{ID: 2, Name: "Kumar Pulp Mills", Types: core.VendorTypes{core.RawMaterial}},
			{ID: 3, Name: "Shree Packaging", Types: core.VendorTypes{core.Dispatch}},
			{ID: 4, Name: "City Electricals", Types: core.VendorTypes{core.Expenditure}},
		}
	}
	return New(vendors, opts...)
}

// Seed records a backend-derived row such as a purchase or dispatch.
func (s *Store) Seed(vendor string, date core.Date, kind core.TransactionKind, amount decimal.Decimal, note string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(vendor, date, kind, amount, note)
}

func (s *Store) insert(vendor string, date core.Date, kind core.TransactionKind, amount decimal.Decimal, note string) int64 {
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, entry{
		id:        id,
		vendor:    vendor,
		date:      date,
		kind:      kind,
		direction: DirectionOf(kind),
		amount:    amount,
		note:      note,
	})
	return id
}

// DirectionOf maps a kind to its ledger side. Goods received and money
// received from the vendor are credits; payments and goods sent are debits.
func DirectionOf(k core.TransactionKind) core.Direction {
	switch k {
	case core.KindPayment, core.KindDispatch:
		return core.Debit
	default:
		return core.Credit
	}
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Store) Login(_ context.Context, username, password string) (string, error) {
	s.mu.Lock()
	want, ok := s.users[username]
	s.mu.Unlock()
	if !ok || want != password {
		return "", &remote.Error{Kind: remote.KindUnauthorized, Op: "login", Status: http.StatusUnauthorized, Message: "Invalid username or password"}
	}
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Store) authorize(op, token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", &remote.Error{Kind: remote.KindUnauthorized, Op: op, Status: http.StatusUnauthorized, Err: err}
	}
	return c.Username, nil
}

func (s *Store) Me(_ context.Context, token string) (remote.Profile, error) {
	user, err := s.authorize("current user", token)
	if err != nil {
		return remote.Profile{}, err
	}
	return remote.Profile{ID: 1, Username: user}, nil
}

func (s *Store) ListVendors(_ context.Context, token string) ([]core.Vendor, error) {
	if _, err := s.authorize("list vendors", token); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Vendor(nil), s.vendors...), nil
}

// Account computes the opening balance from every row before the range,
// then running balances through it. Total trade is the sum of goods rows
// (purchases, dispatches, expenditures) inside the range.
func (s *Store) Account(ctx context.Context, token string, q core.LedgerQuery) (core.LedgerResult, error) {
	const op = "vendor account"
	if _, err := s.authorize(op, token); err != nil {
		return core.LedgerResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.LedgerResult{}, &remote.Error{Kind: remote.KindTransport, Op: op, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vendor, ok := s.vendor(q.VendorName)
	if !ok {
		return core.LedgerResult{}, &remote.Error{Kind: remote.KindStatus, Op: op, Status: http.StatusNotFound, Message: "Vendor not found"}
	}

	start, end := q.From.First(), q.To.Last()
	rows := s.rowsFor(vendor.Name)
	res := core.LedgerResult{Transactions: []core.LedgerTransaction{}}
	for _, e := range rows {
		if e.date.Before(start.Time) {
			res.OpeningBalance = res.OpeningBalance.Add(signed(e))
		}
	}

	balance := res.OpeningBalance
	for _, e := range rows {
		if e.date.Before(start.Time) || e.date.After(end) {
			continue
		}
		balance = balance.Add(signed(e))
		if !e.kind.Editable {
			res.TotalTrade = res.TotalTrade.Add(e.amount)
		}
		res.Transactions = append(res.Transactions, core.LedgerTransaction{
			ID:        e.id,
			Date:      e.date,
			Kind:      e.kind,
			Direction: e.direction,
			Amount:    e.amount,
			Note:      e.note,
			Balance:   balance,
		})
	}
	res.FinalBalance = balance
	return res, nil
}

func (s *Store) CreateTransaction(_ context.Context, token string, d core.TransactionDraft) error {
	const op = "create transaction"
	if _, err := s.authorize(op, token); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	vendor, err := s.check(op, d)
	if err != nil {
		return err
	}
	s.insert(vendor.Name, d.Date, d.Kind, d.Amount, d.Note)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, token string, d core.TransactionDraft) error {
	const op = "update transaction"
	if _, err := s.authorize(op, token); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	vendor, err := s.check(op, d)
	if err != nil {
		return err
	}
	for i := range s.entries {
		e := &s.entries[i]
		if e.id != d.ID {
			continue
		}
		if !e.kind.Editable {
			return &remote.Error{Kind: remote.KindStatus, Op: op, Status: http.StatusBadRequest, Message: "Only PAYMENT and RECEIPT transactions can be edited"}
		}
		e.vendor = vendor.Name
		e.date = d.Date
		e.kind = d.Kind
		e.direction = DirectionOf(d.Kind)
		e.amount = d.Amount
		e.note = d.Note
		return nil
	}
	return &remote.Error{Kind: remote.KindStatus, Op: op, Status: http.StatusNotFound, Message: "Transaction not found"}
}

// check applies the backend's validation rules, reporting them the way the
// service does: one field error per rule.
func (s *Store) check(op string, d core.TransactionDraft) (core.Vendor, error) {
	var fields []remote.FieldError
	vendor, ok := s.vendor(d.VendorName)
	if !ok {
		fields = append(fields, remote.FieldError{Field: "vendorName", Message: "vendor not found"})
	}
	today := core.DateOf(s.now())
	if err := d.Validate(today); err != nil && !errors.Is(err, core.ErrEmptyVendor) {
		fields = append(fields, fieldError(err))
	}
	if len(fields) > 0 {
		return core.Vendor{}, &remote.Error{Kind: remote.KindRejected, Op: op, Status: http.StatusBadRequest, Fields: fields}
	}
	return vendor, nil
}

func fieldError(err error) remote.FieldError {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return remote.FieldError{Field: "amount", Message: "must be greater than zero"}
	case errors.Is(err, core.ErrFutureDate), errors.Is(err, core.ErrInvalidDate):
		return remote.FieldError{Field: "date", Message: err.Error()}
	case errors.Is(err, core.ErrNotEditable):
		return remote.FieldError{Field: "type", Message: "must be PAYMENT or RECEIPT"}
	default:
		return remote.FieldError{Field: "note", Message: err.Error()}
	}
}

func (s *Store) vendor(name string) (core.Vendor, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, v := range s.vendors {
		if strings.ToLower(v.Name) == key {
			return v, true
		}
	}
	return core.Vendor{}, false
}

func (s *Store) rowsFor(vendor string) []entry {
	var out []entry
	for _, e := range s.entries {
		if e.vendor == vendor {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].date.Equal(out[j].date.Time) {
			return out[i].date.Before(out[j].date.Time)
		}
		return out[i].id < out[j].id
	})
	return out
}

func signed(e entry) decimal.Decimal {
	if e.direction == core.Debit {
		return e.amount.Neg()
	}
	return e.amount
}

func readVendors(path string) []core.Vendor {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Vendor
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, types, _ := strings.Cut(line, "|")
		v := core.Vendor{ID: int64(len(out) + 1), Name: strings.TrimSpace(name)}
		for _, t := range strings.Split(types, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				v.Types = append(v.Types, core.VendorType(t))
			}
		}
		out = append(out, v)
	}
	return out
}
