package ledger

import (
	"context"
	"errors"

	"paperdesk/internal/amqp"
	"paperdesk/internal/log"
	"paperdesk/internal/remote"
)

// Backend is the part of the remote service the ledger page needs.
type Backend interface {
	remote.LedgerReader
	remote.TransactionWriter
}

// Publisher announces saved transactions.
type Publisher interface {
	PublishTransactionChanged(ctx context.Context, msg *amqp.TransactionChangedMessage) error
}

// Caller identifies who is acting on a View.
type Caller struct {
	Token    string
	Username string
}

// Service performs the network calls behind a View's transitions.
type Service struct {
	backend   Backend
	publisher Publisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewService wires the backend. publisher may be nil.
func NewService(backend Backend, publisher Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &Service{
		backend:   backend,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Apply fetches the account for the confirmed vendor and month range. A
// response overtaken by a newer request or a vendor change returns
// ErrStale and leaves the view untouched.
func (s *Service) Apply(ctx context.Context, v *View, c Caller) error {
	q, seq, err := v.beginQuery()
	if err != nil {
		return err
	}
	res, callErr := s.backend.Account(ctx, c.Token, q)
	if err := v.finishQuery(seq, res, callErr); err != nil {
		if errors.Is(err, ErrStale) {
			s.logger.DebugContext(ctx, "Discarded superseded ledger response", log.FieldSequence, seq, log.FieldVendor, q.VendorName)
			return err
		}
		s.logger.ErrorContext(ctx, "Ledger query failed",
			log.FieldVendor, q.VendorName,
			log.FieldErrorKind, string(remote.KindOf(err)),
			log.FieldError, err)
		return err
	}
	s.events.LogLedgerLoaded(ctx, q.VendorName, q.From.String(), q.To.String(), seq, len(res.Transactions))
	return nil
}

// Submit validates the open editor, saves the draft and reloads the
// ledger. Validation failures never reach the backend.
func (s *Service) Submit(ctx context.Context, v *View, c Caller, in EditorInput) error {
	draft, err := v.beginSubmit(in)
	if err != nil {
		return err
	}

	op := log.OpCreate
	if draft.ID != 0 {
		op = log.OpUpdate
		err = s.backend.UpdateTransaction(ctx, c.Token, draft)
	} else {
		err = s.backend.CreateTransaction(ctx, c.Token, draft)
	}
	if err != nil {
		v.finishSubmit(draft, remote.Describe(err))
		s.logger.ErrorContext(ctx, "Saving transaction failed",
			log.FieldOperation, op,
			log.FieldVendor, draft.VendorName,
			log.FieldErrorKind, string(remote.KindOf(err)),
			log.FieldError, err)
		return err
	}
	v.finishSubmit(draft, "")
	s.events.LogTransactionSaved(ctx, op, draft.ID, draft.VendorName, draft.Kind.Code, draft.Amount.String())

	if s.publisher != nil {
		msg := amqp.NewTransactionChangedMessage(op, draft.ID, draft.VendorName, draft.Kind.Code, draft.Amount.String(), draft.Date.ISO(), c.Username)
		if err := s.publisher.PublishTransactionChanged(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish transaction change", log.FieldOperation, log.OpPublish, log.FieldError, err)
		}
	}

	if err := s.Apply(ctx, v, c); err != nil && !errors.Is(err, ErrStale) {
		s.logger.WarnContext(ctx, "Reload after save failed", log.FieldError, err)
	}
	return nil
}
