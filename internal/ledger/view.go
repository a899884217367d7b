// Package ledger holds the per-session state of the vendor account page:
// vendor selection, month range, the loaded figures and the transaction
// editor. A View never performs I/O itself; Service drives the network
// calls around its begin/finish transitions.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"paperdesk/internal/core"
	"paperdesk/internal/vendors"
)

// User-facing notices.
const (
	NoticeSelectVendor = "Please select a vendor before applying filter"
	NoticeFetchFailed  = "Something went wrong. Try again."
	NoticeNoRows       = "No transactions found for selected date range."
	NoticeInvalidRange = "Please choose a valid month range"
)

var (
	ErrNoVendor      = errors.New("no vendor selected")
	ErrUnknownVendor = errors.New("unknown vendor")
	ErrStale         = errors.New("response superseded by a newer request")
)

// Phase is the coarse state of the page. A confirmed vendor is empty
// until a loaded result carries at least one transaction; Loaded on State
// tells a pending Apply from a range with no rows.
type Phase int

const (
	PhaseNoVendor Phase = iota
	PhaseVendorEmpty
	PhaseVendorPopulated
)

func (p Phase) String() string {
	switch p {
	case PhaseVendorEmpty:
		return "vendor-confirmed-empty"
	case PhaseVendorPopulated:
		return "vendor-confirmed-populated"
	default:
		return "no-vendor"
	}
}

const DefaultBlurGrace = 200 * time.Millisecond

// View is safe for concurrent use. Its lock is never held across a
// network call or the blur grace wait.
type View struct {
	mu sync.Mutex

	dir         *vendors.Directory
	query       string
	suggestions []core.Vendor
	vendor      *core.Vendor
	from, to    core.Month
	result      *core.LedgerResult
	notice      string
	editor      editor

	seq      uint64 // latest issued query token
	picks    uint64 // number of explicit selections
	lastPick time.Time

	grace time.Duration
	now   func() time.Time
}

// Option customises a View.
type Option func(*View)

func WithBlurGrace(d time.Duration) Option {
	return func(v *View) { v.grace = d }
}

func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// NewView starts in the no-vendor state with the default month range.
func NewView(dir *vendors.Directory, opts ...Option) *View {
	v := &View{dir: dir, grace: DefaultBlurGrace, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	if v.dir == nil {
		v.dir = vendors.Empty()
	}
	v.from, v.to = core.DefaultMonths(v.now())
	return v
}

// SetDirectory swaps the vendor directory after a refresh. A confirmed
// vendor that no longer exists is cleared.
func (v *View) SetDirectory(dir *vendors.Directory) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dir = dir
	if v.vendor != nil {
		if _, ok := dir.Lookup(v.vendor.Name); !ok {
			v.clearVendor()
		}
	}
	if v.query != "" && v.vendor == nil {
		v.suggestions = dir.Suggest(v.query)
	}
}

// Type records a keystroke. Any text change drops the confirmed vendor
// and its figures; a blank query also closes the suggestions.
func (v *View) Type(query string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = query
	v.clearVendor()
	v.suggestions = v.dir.Suggest(query)
	return v.snapshot()
}

// Select confirms a vendor chosen from the suggestions.
func (v *View) Select(name string) (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	vendor, ok := v.dir.Lookup(name)
	if !ok {
		return v.snapshot(), ErrUnknownVendor
	}
	v.picks++
	v.lastPick = v.now()
	v.clearVendor()
	v.confirm(vendor)
	return v.snapshot(), nil
}

// Blur handles the search field losing focus. A selection made within the
// grace delay on either side of the blur wins and the blurred text is
// ignored. Otherwise an exact name match confirms the vendor and anything
// else clears it.
func (v *View) Blur(ctx context.Context, text string) (State, error) {
	v.mu.Lock()
	picks := v.picks
	grace := v.grace
	if v.recentPick() {
		defer v.mu.Unlock()
		return v.snapshot(), nil
	}
	v.mu.Unlock()

	if grace > 0 {
		t := time.NewTimer(grace)
		select {
		case <-ctx.Done():
			t.Stop()
			return v.Snapshot(), ctx.Err()
		case <-t.C:
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.picks != picks {
		return v.snapshot(), nil
	}
	v.suggestions = nil
	if vendor, ok := v.dir.Lookup(text); ok {
		if v.vendor != nil && v.vendor.ID == vendor.ID && v.vendor.Name == vendor.Name {
			v.query = vendor.Name
			return v.snapshot(), nil
		}
		v.clearVendor()
		v.confirm(vendor)
		return v.snapshot(), nil
	}
	v.query = text
	v.clearVendor()
	return v.snapshot(), nil
}

// recentPick reports whether a selection landed less than the grace delay
// ago. The browser sends the suggestion's select before the input's blur.
func (v *View) recentPick() bool {
	if v.picks == 0 || v.grace <= 0 {
		return false
	}
	return v.now().Sub(v.lastPick) < v.grace
}

// SetRange validates and stores the month range. Figures already loaded
// stay until the next Apply.
func (v *View) SetRange(from, to string) error {
	f, err := core.ParseMonth(from)
	if err != nil {
		return err
	}
	t, err := core.ParseMonth(to)
	if err != nil {
		return err
	}
	if err := core.CheckRange(f, t, v.now()); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.from, v.to = f, t
	return nil
}

// CanQuery reports whether Apply and the add actions are enabled.
func (v *View) CanQuery() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vendor != nil
}

// SetNotice replaces the page notice.
func (v *View) SetNotice(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notice = msg
}

// beginQuery issues a new sequence token for the confirmed vendor.
func (v *View) beginQuery() (core.LedgerQuery, uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.vendor == nil {
		v.notice = NoticeSelectVendor
		return core.LedgerQuery{}, 0, ErrNoVendor
	}
	q := core.LedgerQuery{VendorName: v.vendor.Name, From: v.from, To: v.to}
	if err := q.Validate(); err != nil {
		v.notice = NoticeInvalidRange
		return core.LedgerQuery{}, 0, err
	}
	v.seq++
	return q, v.seq, nil
}

// finishQuery applies a response only if seq is still the latest token.
// On failure the previous figures are kept.
func (v *View) finishQuery(seq uint64, res core.LedgerResult, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		return ErrStale
	}
	if err != nil {
		v.notice = NoticeFetchFailed
		return err
	}
	if res.Transactions == nil {
		res.Transactions = []core.LedgerTransaction{}
	}
	v.result = &res
	v.notice = ""
	return nil
}

func (v *View) confirm(vendor core.Vendor) {
	v.vendor = &vendor
	v.query = vendor.Name
	v.suggestions = nil
}

// clearVendor drops the confirmed vendor together with its figures and
// invalidates outstanding queries. The editor closes with it.
func (v *View) clearVendor() {
	v.vendor = nil
	v.result = nil
	v.notice = ""
	v.seq++
	v.editor = editor{}
}
