package ledger

import (
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"paperdesk/internal/core"
)

// Editor notices.
const (
	NoticeInvalidAmount = "Please enter a valid positive amount"
	NoticeInvalidDate   = "Please enter a valid date"
	NoticeFutureDate    = "Date cannot be in the future"
	saveErrorPrefix     = "Error saving transaction: "
)

var (
	ErrEditorClosed     = errors.New("editor is not open")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrNotFound         = errors.New("transaction not in current result")
	ErrInvalidInput     = errors.New("invalid editor input")
)

// EditorMode is the editor's top-level state.
type EditorMode int

const (
	EditorClosed EditorMode = iota
	EditorCreating
	EditorEditing
)

// EditorInput is the raw form as typed by the user.
type EditorInput struct {
	Date   string
	Amount string
	Note   string
}

// EditorState is the template view of the editor.
type EditorState struct {
	Mode       EditorMode
	Kind       core.TransactionKind
	TxID       int64
	Vendor     string
	Date       string // yyyy-MM-dd for the date input
	MaxDate    string
	Amount     string
	Note       string
	Error      string
	Submitting bool
}

func (s EditorState) Open() bool {
	return s.Mode != EditorClosed
}

func (s EditorState) Title() string {
	if s.Mode == EditorEditing {
		return "Edit " + s.Kind.Label()
	}
	return "Add " + s.Kind.Label()
}

type editor struct {
	mode       EditorMode
	kind       core.TransactionKind
	txID       int64
	input      EditorInput
	err        string
	submitting bool
}

func (e editor) state(now time.Time) EditorState {
	return EditorState{
		Mode:       e.mode,
		Kind:       e.kind,
		TxID:       e.txID,
		Date:       e.input.Date,
		MaxDate:    core.DateOf(now).ISO(),
		Amount:     e.input.Amount,
		Note:       e.input.Note,
		Error:      e.err,
		Submitting: e.submitting,
	}
}

var notePolicy = bluemonday.StrictPolicy()

// SanitizeNote strips markup from a note and trims it. The result is plain
// text; templates escape it on output.
func SanitizeNote(s string) string {
	return strings.TrimSpace(html.UnescapeString(notePolicy.Sanitize(s)))
}

// OpenCreate opens the editor for a new payment or receipt dated today.
func (v *View) OpenCreate(kindCode string) (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.vendor == nil {
		v.notice = NoticeSelectVendor
		return v.snapshot(), ErrNoVendor
	}
	kind, err := core.EntryKind(kindCode)
	if err != nil {
		return v.snapshot(), err
	}
	v.editor = editor{
		mode:  EditorCreating,
		kind:  kind,
		input: EditorInput{Date: core.DateOf(v.now()).ISO()},
	}
	return v.snapshot(), nil
}

// OpenEdit opens the editor pre-filled from an editable row of the
// current result.
func (v *View) OpenEdit(id int64) (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.vendor == nil || v.result == nil {
		return v.snapshot(), ErrNotFound
	}
	tx, ok := v.result.Find(id)
	if !ok {
		return v.snapshot(), ErrNotFound
	}
	if !tx.IsEditable() {
		return v.snapshot(), core.ErrNotEditable
	}
	v.editor = editor{
		mode: EditorEditing,
		kind: tx.Kind,
		txID: tx.ID,
		input: EditorInput{
			Date:   tx.Date.ISO(),
			Amount: tx.Amount.String(),
			Note:   tx.Note,
		},
	}
	return v.snapshot(), nil
}

// Cancel closes the editor without any request.
func (v *View) Cancel() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editor = editor{}
	return v.snapshot()
}

// beginSubmit validates the form and marks the editor as submitting. A
// validation failure keeps the editor open with an inline message.
func (v *View) beginSubmit(in EditorInput) (core.TransactionDraft, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.editor.mode == EditorClosed {
		return core.TransactionDraft{}, ErrEditorClosed
	}
	if v.editor.submitting {
		return core.TransactionDraft{}, ErrSubmitInProgress
	}
	if v.vendor == nil {
		v.editor = editor{}
		v.notice = NoticeSelectVendor
		return core.TransactionDraft{}, ErrNoVendor
	}

	in.Note = SanitizeNote(in.Note)
	v.editor.input = in
	draft, msg := v.draft(in)
	if msg != "" {
		v.editor.err = msg
		return core.TransactionDraft{}, ErrInvalidInput
	}
	v.editor.err = ""
	v.editor.submitting = true
	return draft, nil
}

func (v *View) draft(in EditorInput) (core.TransactionDraft, string) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.TransactionDraft{}, NoticeInvalidAmount
	}
	date, err := core.ParseLedgerDate(in.Date)
	if err != nil {
		return core.TransactionDraft{}, NoticeInvalidDate
	}
	d := core.TransactionDraft{
		ID:         v.editor.txID,
		VendorName: v.vendor.Name,
		Date:       date,
		Kind:       v.editor.kind,
		Amount:     amount,
		Note:       in.Note,
	}
	switch err := d.Validate(core.DateOf(v.now())); {
	case err == nil:
		return d, ""
	case errors.Is(err, core.ErrFutureDate):
		return d, NoticeFutureDate
	case errors.Is(err, core.ErrInvalidAmount):
		return d, NoticeInvalidAmount
	default:
		return d, err.Error()
	}
}

// finishSubmit closes the editor on success or shows the backend's
// explanation and keeps it open.
func (v *View) finishSubmit(draft core.TransactionDraft, failure string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.editor.mode == EditorClosed || v.editor.txID != draft.ID {
		return
	}
	v.editor.submitting = false
	if failure != "" {
		v.editor.err = saveErrorPrefix + failure
		return
	}
	v.editor = editor{}
}
