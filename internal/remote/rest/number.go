package rest

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// number reads a JSON number, numeric string or null. Absent and null
// values are zero.
type number struct {
	decimal.Decimal
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		n.Decimal = decimal.Zero
		return nil
	}
	return n.Decimal.UnmarshalJSON(b)
}
