// Package backend assembles the remote backend, the session store and the
// optional event publisher from configuration.
package backend

import (
	"context"

	"paperdesk/internal/amqp"
	"paperdesk/internal/cache"
	"paperdesk/internal/remote"
	"paperdesk/internal/session"
)

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result contains the wired components and their cleanup.
type Result struct {
	Backend   remote.Backend
	Sessions  session.Store
	Publisher *amqp.Client // nil when AMQP is disabled

	// Sweepers are caches or stores the cache manager should clean.
	Sweepers map[string]cache.Cleaner

	cleanups []CleanupFunc
}

// Close runs cleanups in reverse order and returns the first error.
func (r *Result) Close() error {
	var first error
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if err := r.cleanups[i](); err != nil && first == nil {
			first = err
		}
	}
	r.cleanups = nil
	return first
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}
