// Package remote declares the ports the dashboard uses to reach the
// business backend, and the error type every adapter returns.
package remote

import (
	"context"

	"paperdesk/internal/core"
)

// Profile is the subset of /api/users/me the dashboard shows.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Ports for outbound adapters. Every call takes the caller's bearer token
// so that adapters never hold session state.
type (
	Authenticator interface {
		Login(ctx context.Context, username, password string) (token string, err error)
		Me(ctx context.Context, token string) (Profile, error)
	}

	VendorLister interface {
		ListVendors(ctx context.Context, token string) ([]core.Vendor, error)
	}

	LedgerReader interface {
		// Account returns opening balance, rows and totals for the query range.
		Account(ctx context.Context, token string, q core.LedgerQuery) (core.LedgerResult, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, token string, d core.TransactionDraft) error
		UpdateTransaction(ctx context.Context, token string, d core.TransactionDraft) error
	}

	// Backend is the full surface of the business REST service.
	Backend interface {
		Authenticator
		VendorLister
		LedgerReader
		TransactionWriter
	}
)
