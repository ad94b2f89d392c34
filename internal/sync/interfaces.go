// Package sync drains the offline queue through the remote submit function.
package sync

import (
	"context"

	"github.com/kimhsiao/splitledger/client/internal/models"
)

// Submitter performs the network write for a queued item. Failures are
// AppErrors coded NETWORK_UNREACHABLE, SUBMIT_REJECTED or UNAUTHORIZED.
type Submitter interface {
	Submit(ctx context.Context, item models.QueueItem) error
}

// SubmitFunc adapts a function to a Submitter.
type SubmitFunc func(ctx context.Context, item models.QueueItem) error

// Submit calls f.
func (f SubmitFunc) Submit(ctx context.Context, item models.QueueItem) error {
	return f(ctx, item)
}

// Drainer is the processor surface used by the scheduler and server.
// It allows fakes in tests.
type Drainer interface {
	// ProcessQueue drains the queue and reports whether anything synced.
	ProcessQueue(ctx context.Context) (bool, error)

	// Drain drains the queue and returns the detailed outcome.
	Drain(ctx context.Context) (*DrainResult, error)

	// SetEventHandler sets the handler notified during drains.
	SetEventHandler(handler SyncEventHandler)
}
