// Package worker holds the background consumers fed by the ledger event
// exchange.
package worker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperdesk/internal/amqp"
	"paperdesk/internal/log"
)

// VendorActivity summarises the changes seen for one vendor.
type VendorActivity struct {
	Vendor    string
	Creates   int
	Updates   int
	Payments  decimal.Decimal
	Receipts  decimal.Decimal
	LastSeen  time.Time
	LastActor string
}

// AuditWorker records every payment and receipt saved from the dashboard.
type AuditWorker struct {
	logger *log.Logger

	mu       sync.Mutex
	vendors  map[string]*VendorActivity
	handled  int
	rejected int
}

func NewAuditWorker(logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditWorker{
		logger:  logger.WithComponent(log.ComponentAudit),
		vendors: make(map[string]*VendorActivity),
	}
}

// HandleTransactionChanged logs one change and folds it into the vendor
// tally. Messages that can never be processed are logged and acknowledged
// so they are not redelivered.
func (w *AuditWorker) HandleTransactionChanged(ctx context.Context, msg *amqp.TransactionChangedMessage) error {
	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil || strings.TrimSpace(msg.VendorName) == "" {
		w.mu.Lock()
		w.rejected++
		w.mu.Unlock()
		w.logger.WarnContext(ctx, "Dropping unusable transaction change",
			log.FieldVendor, msg.VendorName,
			log.FieldAmount, msg.Amount,
			log.FieldOperation, msg.Operation)
		return nil
	}

	w.mu.Lock()
	a, ok := w.vendors[msg.VendorName]
	if !ok {
		a = &VendorActivity{Vendor: msg.VendorName}
		w.vendors[msg.VendorName] = a
	}
	switch msg.Operation {
	case log.OpUpdate:
		a.Updates++
	default:
		a.Creates++
	}
	switch msg.Kind {
	case "PAYMENT":
		a.Payments = a.Payments.Add(amount)
	case "RECEIPT":
		a.Receipts = a.Receipts.Add(amount)
	}
	a.LastSeen = msg.Timestamp
	a.LastActor = msg.Username
	w.handled++
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Transaction change audited",
		log.FieldOperation, msg.Operation,
		log.FieldTxID, msg.TransactionID,
		log.FieldVendor, msg.VendorName,
		log.FieldTxKind, msg.Kind,
		log.FieldAmount, amount.StringFixed(2),
		"date", msg.Date,
		log.FieldUsername, msg.Username)
	return nil
}

// Activity returns a copy of the tallies ordered by vendor name.
func (w *AuditWorker) Activity() []VendorActivity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]VendorActivity, 0, len(w.vendors))
	for _, a := range w.vendors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out
}

// Counts reports handled and rejected messages.
func (w *AuditWorker) Counts() (handled, rejected int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handled, w.rejected
}

// LogSummary writes one line per vendor, used on shutdown.
func (w *AuditWorker) LogSummary(ctx context.Context) {
	for _, a := range w.Activity() {
		w.logger.InfoContext(ctx, "Vendor activity",
			log.FieldVendor, a.Vendor,
			"creates", a.Creates,
			"updates", a.Updates,
			"payments", a.Payments.StringFixed(2),
			"receipts", a.Receipts.StringFixed(2))
	}
}
