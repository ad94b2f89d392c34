// Package ledger records expenses and payments, falling back to the offline
// queue when the server cannot be reached.
package ledger

import (
	"context"
	"encoding/json"

	"github.com/kimhsiao/splitledger/client/internal/api"
	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/logging"
	"github.com/kimhsiao/splitledger/client/internal/models"
	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
	"github.com/kimhsiao/splitledger/client/internal/sync/queue"
)

// Remote is the part of the REST client the service needs.
type Remote interface {
	AddExpense(ctx context.Context, expense interface{}, opts ...api.RequestOption) (json.RawMessage, error)
	AddPayment(ctx context.Context, payment interface{}, opts ...api.RequestOption) (json.RawMessage, error)
	Dashboard(ctx context.Context) (json.RawMessage, error)
}

// Outcome describes where a write ended up.
type Outcome struct {
	// Saved is set when the server accepted the write.
	Saved    bool
	Response json.RawMessage

	// Queued holds the queued item when the server was unreachable.
	Queued *models.QueueItem
}

// Service is the write-or-queue entry point used by the CLI.
type Service struct {
	remote  Remote
	queue   *queue.Queue
	drainer syncpkg.Drainer
}

// NewService creates a Service.
func NewService(remote Remote, q *queue.Queue, drainer syncpkg.Drainer) *Service {
	return &Service{remote: remote, queue: q, drainer: drainer}
}

// RecordExpense validates and submits an expense, queuing it if the network
// is unusable. Server rejections are returned unchanged.
func (s *Service) RecordExpense(ctx context.Context, expense models.Expense) (*Outcome, error) {
	expense.Normalize()
	if err := expense.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "invalid expense", err)
	}
	resp, err := s.remote.AddExpense(ctx, expense)
	return s.settle(ctx, models.EndpointCreateExpense, expense, resp, err)
}

// RecordPayment validates and submits a payment, queuing it if the network
// is unusable.
func (s *Service) RecordPayment(ctx context.Context, payment models.Payment) (*Outcome, error) {
	if err := payment.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "invalid payment", err)
	}
	resp, err := s.remote.AddPayment(ctx, payment)
	return s.settle(ctx, models.EndpointCreatePayment, payment, resp, err)
}

func (s *Service) settle(ctx context.Context, endpoint models.Endpoint, payload interface{}, resp json.RawMessage, err error) (*Outcome, error) {
	if err == nil {
		return &Outcome{Saved: true, Response: resp}, nil
	}
	if !api.IsNetworkError(err) {
		if errors.IsRejection(err) {
			logging.Warn("Server rejected write", map[string]interface{}{
				"endpoint": endpoint.String(),
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	logging.Info("Server unreachable, saving write locally", map[string]interface{}{
		"endpoint": endpoint.String(),
		"error":    err.Error(),
	})
	item, qerr := s.queue.Enqueue(ctx, endpoint, payload)
	if qerr != nil {
		return nil, errors.Wrap(errors.CodeOf(qerr), "failed to save write locally", qerr)
	}
	return &Outcome{Queued: item}, nil
}

// RefreshResult is the outcome of a refresh.
type RefreshResult struct {
	Drain     *syncpkg.DrainResult
	Dashboard json.RawMessage
}

// Refresh drains pending writes and then reloads the dashboard, so the
// balances shown include everything that was queued. A drain already in
// progress is not an error.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	result := &RefreshResult{}

	drain, err := s.drainer.Drain(ctx)
	switch {
	case errors.Is(err, errors.ErrDrainInProgress):
		logging.Debug("Drain already running, refreshing without it", nil)
	case err != nil:
		return result, err
	default:
		result.Drain = drain
	}

	dashboard, err := s.remote.Dashboard(ctx)
	if err != nil {
		return result, err
	}
	result.Dashboard = dashboard
	return result, nil
}
