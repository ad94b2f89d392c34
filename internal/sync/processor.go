package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kimhsiao/splitledger/client/internal/connectivity"
	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/logging"
	"github.com/kimhsiao/splitledger/client/internal/models"
	"github.com/kimhsiao/splitledger/client/internal/sync/history"
	"github.com/kimhsiao/splitledger/client/internal/sync/queue"
)

// DefaultSubmitTimeout bounds a single submission.
const DefaultSubmitTimeout = 30 * time.Second

// HaltReason says why a drain stopped before emptying the queue.
type HaltReason string

const (
	// HaltNone means the drain ran to the end of its batch.
	HaltNone HaltReason = ""
	// HaltNetwork means the server could not be reached; the item is retried later.
	HaltNetwork HaltReason = "network"
	// HaltRejected means the server refused the item; it stays at the head.
	HaltRejected HaltReason = "rejected"
	// HaltStore means the item was accepted but could not be removed locally.
	HaltStore HaltReason = "store"
	// HaltCanceled means the caller's context ended between items.
	HaltCanceled HaltReason = "canceled"
)

// DrainResult is the outcome of one drain.
type DrainResult struct {
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`

	// Offline is set when the oracle was not ready and nothing was attempted.
	Offline bool `json:"offline"`

	// Synced lists the ids submitted and removed, in order.
	Synced []string `json:"synced"`

	// Remaining is the queue depth when the drain stopped.
	Remaining int `json:"remaining"`

	// Halted is the item that stopped the batch, if any. It stays at the head.
	Halted  *models.QueueItem `json:"halted,omitempty"`
	HaltErr error             `json:"-"`
	Reason  HaltReason        `json:"reason,omitempty"`
}

// Any reports whether at least one item synced.
func (r *DrainResult) Any() bool {
	return r != nil && len(r.Synced) > 0
}

// Processor drains the durable queue whenever connectivity allows.
type Processor struct {
	queue     *queue.Queue
	history   *history.History
	oracle    connectivity.Oracle
	submitter Submitter

	submitTimeout time.Duration
	draining      atomic.Bool
	handler       atomic.Value // handlerBox
	now           func() time.Time
}

type handlerBox struct{ h SyncEventHandler }

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithSubmitTimeout sets the per-item submission timeout. Zero disables it.
func WithSubmitTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.submitTimeout = d }
}

// WithClock overrides the time source for result timestamps.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a Processor.
func NewProcessor(q *queue.Queue, h *history.History, oracle connectivity.Oracle, submitter Submitter, opts ...ProcessorOption) *Processor {
	p := &Processor{
		queue:         q,
		history:       h,
		oracle:        oracle,
		submitter:     submitter,
		submitTimeout: DefaultSubmitTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetEventHandler sets the handler notified during drains. Nil clears it.
func (p *Processor) SetEventHandler(handler SyncEventHandler) {
	p.handler.Store(handlerBox{h: handler})
}

func (p *Processor) emitEvent(event SyncEvent) {
	box, _ := p.handler.Load().(handlerBox)
	if box.h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	box.h.OnSyncEvent(event)
}

// ProcessQueue drains the queue and reports whether at least one item was
// synced. Submission failures halt the batch but are not errors; the error is
// reserved for store failures, a drain already in flight, and an oracle
// failure.
func (p *Processor) ProcessQueue(ctx context.Context) (bool, error) {
	result, err := p.Drain(ctx)
	return result.Any(), err
}

// Drain submits pending items in FIFO order until the queue is empty or a
// submission fails. When the oracle is not ready the store is not touched.
func (p *Processor) Drain(ctx context.Context) (*DrainResult, error) {
	if !p.draining.CompareAndSwap(false, true) {
		return &DrainResult{}, errors.New(errors.ErrDrainInProgress, "queue drain already in progress")
	}
	defer p.draining.Store(false)

	result := &DrainResult{StartTime: p.now()}
	defer func() {
		result.EndTime = p.now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	status, err := p.oracle.Check(ctx)
	if err != nil {
		logging.Warn("Connectivity check failed, skipping drain", map[string]interface{}{"error": err.Error()})
		result.Offline = true
		p.emitEvent(SyncEvent{Type: SyncEventOffline, Result: result, Err: err})
		return result, nil
	}
	if !status.Ready() {
		logging.Debug("Offline, skipping queue drain", map[string]interface{}{
			"connected":          status.Connected,
			"internet_reachable": status.InternetReachable,
		})
		result.Offline = true
		p.emitEvent(SyncEvent{Type: SyncEventOffline, Result: result})
		return result, nil
	}

	items := p.queue.List(ctx)
	if len(items) == 0 {
		return result, nil
	}

	logging.Info("Processing offline queue", map[string]interface{}{"count": len(items)})
	p.emitEvent(SyncEvent{Type: SyncEventStarted, Pending: len(items)})

	for i, item := range items {
		if ctx.Err() != nil {
			p.halt(result, item, ctx.Err(), HaltCanceled, len(items)-i)
			return result, nil
		}

		// The batch is a snapshot; skip items removed by hand since it was taken.
		// An unreadable queue is not proof of removal, so those items are sent.
		if present, err := p.queue.Contains(ctx, item.ID); err == nil && !present {
			logging.Info("Queued item removed during drain, skipping", map[string]interface{}{"item_id": item.ID})
			continue
		}

		if err := p.submit(ctx, item); err != nil {
			reason := HaltRejected
			if errors.IsRetryable(err) {
				reason = HaltNetwork
			}
			p.halt(result, item, err, reason, len(items)-i)
			return result, nil
		}

		// The server has the item now; bookkeeping must finish even if the
		// caller cancels. History is display-only, so a failed append does
		// not keep the item queued.
		storeCtx := context.WithoutCancel(ctx)
		if _, err := p.history.Append(storeCtx, item); err != nil {
			logging.Warn("Failed to record sync history", map[string]interface{}{"item_id": item.ID, "error": err.Error()})
		}

		if err := p.queue.RemoveByID(storeCtx, item.ID); err != nil {
			// The item was accepted but is still queued. Stop so it is not
			// submitted twice in this run; the idempotency key covers the retry.
			result.Synced = append(result.Synced, item.ID)
			p.halt(result, item, err, HaltStore, len(items)-i)
			return result, err
		}

		result.Synced = append(result.Synced, item.ID)
		logging.Info("Synced queued item", map[string]interface{}{
			"item_id":  item.ID,
			"endpoint": item.Endpoint.String(),
		})
		p.emitEvent(SyncEvent{Type: SyncEventItem, ItemID: item.ID, Endpoint: item.Endpoint.String(), Pending: len(items) - i - 1})
	}

	result.Remaining = p.queue.Len(context.WithoutCancel(ctx))
	logging.Info("Offline queue drained", map[string]interface{}{
		"synced":    len(result.Synced),
		"remaining": result.Remaining,
	})
	p.emitEvent(SyncEvent{Type: SyncEventCompleted, Pending: result.Remaining, Result: result})
	return result, nil
}

func (p *Processor) submit(ctx context.Context, item models.QueueItem) error {
	if p.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.submitTimeout)
		defer cancel()
	}
	return p.submitter.Submit(ctx, item)
}

func (p *Processor) halt(result *DrainResult, item models.QueueItem, err error, reason HaltReason, remaining int) {
	halted := item
	result.Halted = &halted
	result.HaltErr = err
	result.Reason = reason
	result.Remaining = remaining

	fields := map[string]interface{}{
		"item_id":   item.ID,
		"endpoint":  item.Endpoint.String(),
		"reason":    string(reason),
		"remaining": remaining,
		"error":     err.Error(),
	}
	if reason == HaltRejected || reason == HaltStore {
		logging.Warn("Queue drain halted", fields)
	} else {
		logging.Info("Queue drain halted", fields)
	}
	p.emitEvent(SyncEvent{
		Type:     SyncEventHalted,
		ItemID:   item.ID,
		Endpoint: item.Endpoint.String(),
		Pending:  remaining,
		Result:   result,
		Err:      err,
	})
}
