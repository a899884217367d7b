package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"paperdesk/internal/core"
	"paperdesk/internal/remote"
)

var fixedNow = time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	s := New([]core.Vendor{{ID: 1, Name: "ABC Traders", Types: core.VendorTypes{core.RawMaterial}}},
		WithUser("admin", "secret"),
		WithClock(func() time.Time { return fixedNow }))
	tok, err := s.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return s, tok
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAccountBalances(t *testing.T) {
	s, tok := newStore(t)
	s.Seed("ABC Traders", core.NewDate(2025, 2, 10), core.KindPurchase, d("1000"), "before range")
	s.Seed("ABC Traders", core.NewDate(2025, 3, 5), core.KindPurchase, d("2500"), "reels")
	s.Seed("ABC Traders", core.NewDate(2025, 4, 1), core.KindPayment, d("1500"), "neft")
	s.Seed("ABC Traders", core.NewDate(2025, 6, 1), core.KindPurchase, d("99"), "after range")

	res, err := s.Account(context.Background(), tok, core.LedgerQuery{
		VendorName: "abc traders",
		From:       core.Month{Year: 2025, Month: time.March},
		To:         core.Month{Year: 2025, Month: time.May},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.OpeningBalance.Equal(d("1000")) {
		t.Fatalf("opening = %s", res.OpeningBalance)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Transactions))
	}
	if !res.Transactions[0].Balance.Equal(d("3500")) || !res.Transactions[1].Balance.Equal(d("2000")) {
		t.Fatalf("unexpected running balances %s, %s", res.Transactions[0].Balance, res.Transactions[1].Balance)
	}
	if res.Transactions[1].Direction != core.Debit || !res.Transactions[1].IsEditable() {
		t.Fatalf("payment row should be an editable debit: %+v", res.Transactions[1])
	}
	if !res.FinalBalance.Equal(d("2000")) || !res.TotalTrade.Equal(d("2500")) {
		t.Fatalf("final=%s trade=%s", res.FinalBalance, res.TotalTrade)
	}
}

func TestAccountUnknownVendor(t *testing.T) {
	s, tok := newStore(t)
	_, err := s.Account(context.Background(), tok, core.LedgerQuery{VendorName: "Nobody"})
	if remote.KindOf(err) != remote.KindStatus {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestCreateAndUpdate(t *testing.T) {
	s, tok := newStore(t)
	ctx := context.Background()
	draft := core.TransactionDraft{VendorName: "ABC Traders", Date: core.NewDate(2025, 6, 2), Kind: core.KindReceipt, Amount: d("300"), Note: "cash"}
	if err := s.CreateTransaction(ctx, tok, draft); err != nil {
		t.Fatal(err)
	}
	q := core.LedgerQuery{VendorName: "ABC Traders", From: core.Month{Year: 2025, Month: time.June}, To: core.Month{Year: 2025, Month: time.June}}
	res, _ := s.Account(ctx, tok, q)
	if len(res.Transactions) != 1 || res.Transactions[0].Kind != core.KindReceipt {
		t.Fatalf("expected created receipt, got %+v", res.Transactions)
	}

	draft.ID = res.Transactions[0].ID
	draft.Kind = core.KindPayment
	draft.Amount = d("120")
	if err := s.UpdateTransaction(ctx, tok, draft); err != nil {
		t.Fatal(err)
	}
	res, _ = s.Account(ctx, tok, q)
	if !res.FinalBalance.Equal(d("-120")) {
		t.Fatalf("expected -120 after update, got %s", res.FinalBalance)
	}

	sys := s.Seed("ABC Traders", core.NewDate(2025, 6, 3), core.KindPurchase, d("10"), "")
	draft.ID = sys
	if err := s.UpdateTransaction(ctx, tok, draft); remote.KindOf(err) != remote.KindStatus {
		t.Fatalf("expected refusal to edit a purchase, got %v", err)
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	s, tok := newStore(t)
	err := s.CreateTransaction(context.Background(), tok, core.TransactionDraft{
		VendorName: "Nobody",
		Date:       core.NewDate(2025, 7, 1),
		Kind:       core.KindPayment,
		Amount:     d("5"),
	})
	var re *remote.Error
	if remote.KindOf(err) != remote.KindRejected {
		t.Fatalf("expected rejection, got %v", err)
	}
	re = err.(*remote.Error)
	if len(re.Fields) != 2 || re.Fields[0].Field != "vendorName" || re.Fields[1].Field != "date" {
		t.Fatalf("unexpected fields %+v", re.Fields)
	}
}

func TestTokens(t *testing.T) {
	s, tok := newStore(t)
	if _, err := s.Login(context.Background(), "admin", "nope"); remote.KindOf(err) != remote.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	p, err := s.Me(context.Background(), tok)
	if err != nil || p.Username != "admin" {
		t.Fatalf("unexpected profile %+v err=%v", p, err)
	}
	if _, err := s.ListVendors(context.Background(), "garbage"); remote.KindOf(err) != remote.KindUnauthorized {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}

	later := New(nil, WithUser("admin", "secret"), WithTokenTTL(time.Minute), WithClock(func() time.Time { return fixedNow }))
	short, _ := later.Login(context.Background(), "admin", "secret")
	later.now = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	if _, err := later.Me(context.Background(), short); remote.KindOf(err) != remote.KindUnauthorized {
		t.Fatalf("expected expired token to be refused, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	if s := NewFromFiles(dir); len(s.vendors) == 0 {
		t.Fatalf("expected demo vendors when seed file missing")
	}
	content := "# vendors\nABC Traders | raw_material\nKumar Pulp | RAW_MATERIAL, DISPATCH\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_vendors.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFromFiles(dir)
	if len(s.vendors) != 2 || !s.vendors[1].Has(core.Dispatch) || !s.vendors[0].Has(core.RawMaterial) {
		t.Fatalf("unexpected vendors %+v", s.vendors)
	}
}
