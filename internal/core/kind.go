package core

import (
	"encoding/json"
	"strings"
)

// TransactionKind is the closed set of ledger row kinds. Only user-entered
// kinds are editable; everything the backend derives (purchases, dispatches,
// expenditures, opening entries) is read-only.
type TransactionKind struct {
	Code     string
	Editable bool
}

var (
	KindPayment     = TransactionKind{Code: "PAYMENT", Editable: true}
	KindReceipt     = TransactionKind{Code: "RECEIPT", Editable: true}
	KindPurchase    = TransactionKind{Code: "PURCHASE"}
	KindDispatch    = TransactionKind{Code: "DISPATCH"}
	KindExpenditure = TransactionKind{Code: "EXPENDITURE"}
	KindOpening     = TransactionKind{Code: "OPENING"}
)

var knownKinds = []TransactionKind{
	KindPayment, KindReceipt, KindPurchase, KindDispatch, KindExpenditure, KindOpening,
}

// ParseTransactionKind maps a display type to its kind. Unknown codes become
// read-only kinds that keep the server's label.
func ParseTransactionKind(code string) TransactionKind {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, k := range knownKinds {
		if k.Code == code {
			return k
		}
	}
	return TransactionKind{Code: code}
}

// EntryKind resolves a kind that users may create, rejecting system kinds.
func EntryKind(code string) (TransactionKind, error) {
	k := ParseTransactionKind(code)
	if !k.Editable {
		return TransactionKind{}, ErrNotEditable
	}
	return k, nil
}

func (k TransactionKind) String() string {
	return k.Code
}

// Label is the heading used by the editor.
func (k TransactionKind) Label() string {
	switch k {
	case KindPayment:
		return "Payment"
	case KindReceipt:
		return "Receipt"
	}
	if k.Code == "" {
		return "Transaction"
	}
	return strings.ToUpper(k.Code[:1]) + strings.ToLower(k.Code[1:])
}

func (k TransactionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Code)
}

func (k *TransactionKind) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	*k = ParseTransactionKind(code)
	return nil
}
