package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"paperdesk/internal/core"
	"paperdesk/internal/remote"
)

func loadedView(t *testing.T, fb *fakeBackend) (*View, *Service) {
	t.Helper()
	if fb.accounts == nil {
		fb.accounts = func(core.LedgerQuery) (core.LedgerResult, error) { return sampleResult(), nil }
	}
	svc := NewService(fb, nil, nil)
	v := newTestView()
	if _, err := v.Select("ABC Traders"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Apply(context.Background(), v, caller); err != nil {
		t.Fatal(err)
	}
	return v, svc
}

func TestOpenCreate(t *testing.T) {
	v := newTestView()
	if _, err := v.OpenCreate("PAYMENT"); !errors.Is(err, ErrNoVendor) {
		t.Fatalf("expected ErrNoVendor, got %v", err)
	}
	_, _ = v.Select("ABC Traders")
	if _, err := v.OpenCreate("PURCHASE"); !errors.Is(err, core.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
	s, err := v.OpenCreate("RECEIPT")
	if err != nil {
		t.Fatal(err)
	}
	if s.Editor.Mode != EditorCreating || s.Editor.Date != "2025-06-15" || s.Editor.MaxDate != "2025-06-15" {
		t.Fatalf("unexpected editor %+v", s.Editor)
	}
	if s.Editor.Title() != "Add Receipt" || s.Editor.Vendor != "ABC Traders" {
		t.Fatalf("unexpected title/vendor %q %q", s.Editor.Title(), s.Editor.Vendor)
	}
	if s = v.Cancel(); s.Editor.Open() {
		t.Fatalf("cancel must close the editor")
	}
}

func TestOpenEdit(t *testing.T) {
	v, _ := loadedView(t, &fakeBackend{})
	if _, err := v.OpenEdit(7); !errors.Is(err, core.ErrNotEditable) {
		t.Fatalf("purchases are read-only, got %v", err)
	}
	if _, err := v.OpenEdit(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	s, err := v.OpenEdit(8)
	if err != nil {
		t.Fatal(err)
	}
	e := s.Editor
	if e.Mode != EditorEditing || e.TxID != 8 || e.Date != "2025-05-09" || e.Amount != "300" || e.Note != "neft" || e.Title() != "Edit Payment" {
		t.Fatalf("unexpected editor %+v", e)
	}
}

func TestSubmitValidationMakesNoCall(t *testing.T) {
	cases := []struct {
		in   EditorInput
		want string
	}{
		{EditorInput{Date: "2025-06-01", Amount: ""}, NoticeInvalidAmount},
		{EditorInput{Date: "2025-06-01", Amount: "abc"}, NoticeInvalidAmount},
		{EditorInput{Date: "2025-06-01", Amount: "0"}, NoticeInvalidAmount},
		{EditorInput{Date: "2025-06-01", Amount: "-5"}, NoticeInvalidAmount},
		{EditorInput{Date: "2025-06-16", Amount: "5"}, NoticeFutureDate},
		{EditorInput{Date: "yesterday", Amount: "5"}, NoticeInvalidDate},
	}
	for _, tc := range cases {
		fb := &fakeBackend{}
		v, svc := loadedView(t, fb)
		_, _ = v.OpenCreate("PAYMENT")
		if err := svc.Submit(context.Background(), v, caller, tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%+v: expected ErrInvalidInput, got %v", tc.in, err)
		}
		if _, writes := fb.calls(); writes != 0 {
			t.Fatalf("%+v: validation failure must not reach the backend", tc.in)
		}
		s := v.Snapshot()
		if !s.Editor.Open() || s.Editor.Error != tc.want || s.Editor.Amount != tc.in.Amount {
			t.Fatalf("%+v: editor must stay open with %q, got %+v", tc.in, tc.want, s.Editor)
		}
	}
}

func TestSubmitCreateSuccess(t *testing.T) {
	fb := &fakeBackend{}
	v, _ := loadedView(t, fb)
	pub := &fakePublisher{}
	svc := NewService(fb, pub, nil)
	_, _ = v.OpenCreate("PAYMENT")

	err := svc.Submit(context.Background(), v, caller, EditorInput{Date: "2025-06-10", Amount: "250,50", Note: "<b>cheque</b> 123"})
	if err != nil {
		t.Fatal(err)
	}
	d := fb.drafts[0]
	if d.ID != 0 || d.VendorName != "ABC Traders" || d.Kind != core.KindPayment || !d.Amount.Equal(decimal.RequireFromString("250.5")) || d.Note != "cheque 123" {
		t.Fatalf("unexpected draft %+v", d)
	}
	if d.Date.ISO() != "2025-06-10" {
		t.Fatalf("unexpected date %s", d.Date.ISO())
	}
	s := v.Snapshot()
	if s.Editor.Open() {
		t.Fatalf("editor must close after success")
	}
	if q, _ := fb.calls(); q != 2 {
		t.Fatalf("success must refetch the ledger, got %d queries", q)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Operation != "create" || pub.msgs[0].Username != "admin" {
		t.Fatalf("expected one create event, got %+v", pub.msgs)
	}
}

func TestSubmitUpdateSendsID(t *testing.T) {
	fb := &fakeBackend{}
	v, svc := loadedView(t, fb)
	_, _ = v.OpenEdit(8)
	if err := svc.Submit(context.Background(), v, caller, EditorInput{Date: "09-05-2025", Amount: "320", Note: "neft"}); err != nil {
		t.Fatal(err)
	}
	if fb.drafts[0].ID != 8 || fb.drafts[0].Kind != core.KindPayment {
		t.Fatalf("unexpected update draft %+v", fb.drafts[0])
	}
}

func TestSubmitBackendFailureKeepsEditorOpen(t *testing.T) {
	fb := &fakeBackend{saveErr: &remote.Error{Kind: remote.KindRejected, Status: 400, Fields: []remote.FieldError{{Field: "amount", Message: "too large"}}}}
	v, svc := loadedView(t, fb)
	_, _ = v.OpenCreate("RECEIPT")
	err := svc.Submit(context.Background(), v, caller, EditorInput{Date: "2025-06-01", Amount: "5"})
	if remote.KindOf(err) != remote.KindRejected {
		t.Fatalf("expected rejection, got %v", err)
	}
	e := v.Snapshot().Editor
	if !e.Open() || e.Submitting || e.Error != "Error saving transaction: Validation Errors: Amount: too large" {
		t.Fatalf("unexpected editor %+v", e)
	}
	if q, _ := fb.calls(); q != 1 {
		t.Fatalf("failure must not refetch, got %d queries", q)
	}
}

func TestDuplicateSubmitRejected(t *testing.T) {
	block := make(chan struct{})
	fb := &fakeBackend{block: block}
	v, svc := loadedView(t, fb)
	_, _ = v.OpenCreate("PAYMENT")
	in := EditorInput{Date: "2025-06-01", Amount: "5"}

	done := make(chan error, 1)
	go func() { done <- svc.Submit(context.Background(), v, caller, in) }()
	waitForWrites(t, fb, 1)

	if !v.Snapshot().Editor.Submitting {
		t.Fatalf("editor must report submitting while the request is in flight")
	}
	if err := svc.Submit(context.Background(), v, caller, in); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if _, writes := fb.calls(); writes != 1 {
		t.Fatalf("expected exactly one write, got %d", writes)
	}
}

func TestSubmitClosedEditor(t *testing.T) {
	v, svc := loadedView(t, &fakeBackend{})
	if err := svc.Submit(context.Background(), v, caller, EditorInput{}); !errors.Is(err, ErrEditorClosed) {
		t.Fatalf("expected ErrEditorClosed, got %v", err)
	}
}

func waitForWrites(t *testing.T, fb *fakeBackend, n int) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if _, w := fb.calls(); w >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d writes", n)
}

func TestSanitizeNote(t *testing.T) {
	cases := map[string]string{
		"  <script>alert(1)</script>paid ": "paid",
		"Tom's cheque & cash":              "Tom's cheque & cash",
		"<b>bold</b> 5 < 6":                "bold 5 < 6",
	}
	for in, want := range cases {
		if got := SanitizeNote(in); got != want {
			t.Errorf("SanitizeNote(%q) = %q, want %q", in, got, want)
		}
	}
}
