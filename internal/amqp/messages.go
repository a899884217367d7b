package amqp

import (
	"encoding/json"
	"time"
)

// RoutingKeyTransactionChanged is the routing key of ledger change events.
const RoutingKeyTransactionChanged = "ledger.transaction.changed"

// TransactionChangedMessage announces that a user created or updated a
// vendor payment or receipt. TransactionID is zero for creations since the
// backend does not return the new id.
type TransactionChangedMessage struct {
	Operation     string    `json:"operation"`
	TransactionID int64     `json:"transactionId,omitempty"`
	VendorName    string    `json:"vendorName"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	Date          string    `json:"date"`
	Username      string    `json:"username,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionChangedMessage stamps the message with the current time.
func NewTransactionChangedMessage(op string, id int64, vendor, kind, amount, date, username string) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		Operation:     op,
		TransactionID: id,
		VendorName:    vendor,
		Kind:          kind,
		Amount:        amount,
		Date:          date,
		Username:      username,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangedMessageFromJSON parses a message body
func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
