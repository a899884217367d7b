package ledger

import (
	"paperdesk/internal/core"
)

// State is an immutable snapshot of a View, handed to templates.
type State struct {
	Phase       Phase
	Query       string
	Suggestions []core.Vendor
	Vendor      string
	From, To    core.Month
	MinMonth    core.Month
	MaxMonth    core.Month
	Result      core.LedgerResult
	Loaded      bool
	Notice      string
	Editor      EditorState
}

// CanQuery reports whether Apply and the add actions are enabled.
func (s State) CanQuery() bool {
	return s.Phase != PhaseNoVendor
}

// ShowEmptyNotice reports whether a loaded result has no rows.
func (s State) ShowEmptyNotice() bool {
	return s.Loaded && s.Result.IsEmpty()
}

// EmptyNotice is shown in place of the table for a loaded result with no rows.
func (s State) EmptyNotice() string {
	if s.ShowEmptyNotice() {
		return NoticeNoRows
	}
	return ""
}

// Snapshot returns the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

func (v *View) snapshot() State {
	lo, hi := core.MonthBounds(v.now())
	s := State{
		Phase:       PhaseNoVendor,
		Query:       v.query,
		Suggestions: append([]core.Vendor(nil), v.suggestions...),
		From:        v.from,
		To:          v.to,
		MinMonth:    lo,
		MaxMonth:    hi,
		Notice:      v.notice,
		Editor:      v.editor.state(v.now()),
	}
	if v.vendor != nil {
		s.Vendor = v.vendor.Name
		s.Editor.Vendor = v.vendor.Name
		s.Phase = PhaseVendorEmpty
	}
	if v.result != nil {
		s.Loaded = true
		s.Result = *v.result
		s.Result.Transactions = append([]core.LedgerTransaction(nil), v.result.Transactions...)
		if len(s.Result.Transactions) > 0 {
			s.Phase = PhaseVendorPopulated
		}
	}
	return s
}
