// Package queue provides the durable FIFO of ledger writes captured while
// the network was unusable.
//
// The queue owns a single key in the key-value store. Every mutation
// re-reads the persisted collection, applies the change, and writes the whole
// collection back while holding the queue lock, so a concurrent Enqueue and a
// drain's RemoveByID cannot lose each other's update.
package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/kvstore"
	"github.com/kimhsiao/splitledger/client/internal/logging"
	"github.com/kimhsiao/splitledger/client/internal/models"
	"github.com/kimhsiao/splitledger/client/internal/uuid"
)

// StorageKey is the store key holding the serialized queue.
const StorageKey = "offline_queue"

// Queue is the persisted list of pending writes.
type Queue struct {
	store kvstore.Store
	mu    sync.Mutex
	newID uuid.Generator
	now   func() time.Time

	onChange func(depth int)
}

// Option configures a Queue.
type Option func(*Queue)

// WithIDGenerator overrides the item id source.
func WithIDGenerator(g uuid.Generator) Option {
	return func(q *Queue) { q.newID = g }
}

// WithClock overrides the time source used for item timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithObserver registers a callback invoked with the queue depth after every
// successful write.
func WithObserver(fn func(depth int)) Option {
	return func(q *Queue) { q.onChange = fn }
}

// New creates a Queue over store.
func New(store kvstore.Store, opts ...Option) *Queue {
	q := &Queue{
		store: store,
		newID: uuid.New,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// load reads the persisted queue. A missing key is an empty queue; an
// undecodable value is reported as kvstore.ErrCorrupt.
func (q *Queue) load(ctx context.Context) ([]models.QueueItem, error) {
	var items []models.QueueItem
	if _, err := kvstore.LoadJSON(ctx, q.store, StorageKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// loadForWrite reads the queue before a mutation. Corrupt data is treated as
// an empty queue; any other read failure aborts the mutation so that
// unreadable data is not overwritten.
func (q *Queue) loadForWrite(ctx context.Context) ([]models.QueueItem, error) {
	items, err := q.load(ctx)
	if err == nil {
		return items, nil
	}
	if stderrors.Is(err, kvstore.ErrCorrupt) {
		logging.Warn("Offline queue is corrupt, treating as empty", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}
	return nil, err
}

func (q *Queue) save(ctx context.Context, items []models.QueueItem) error {
	if items == nil {
		items = []models.QueueItem{}
	}
	if err := kvstore.SaveJSON(ctx, q.store, StorageKey, items); err != nil {
		return err
	}
	if q.onChange != nil {
		q.onChange(len(items))
	}
	return nil
}

// Enqueue appends a new pending item for endpoint and persists the queue.
// The payload is stored verbatim; it must marshal to JSON.
func (q *Queue) Enqueue(ctx context.Context, endpoint models.Endpoint, payload interface{}) (*models.QueueItem, error) {
	if !endpoint.Valid() {
		return nil, errors.Newf(errors.ErrUnknownEndpoint, "unknown endpoint %q", endpoint)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "payload is not serializable", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.loadForWrite(ctx)
	if err != nil {
		logging.Error("Failed to add to offline queue", err, map[string]interface{}{"endpoint": endpoint.String()})
		return nil, err
	}

	item := models.QueueItem{
		ID:        q.uniqueID(items),
		Endpoint:  endpoint,
		Payload:   raw,
		Timestamp: q.now().UTC(),
		Status:    models.StatusPending,
	}
	items = append(items, item)

	if err := q.save(ctx, items); err != nil {
		logging.Error("Failed to add to offline queue", err, map[string]interface{}{"endpoint": endpoint.String()})
		return nil, err
	}

	logging.Info("Item added to offline queue", map[string]interface{}{
		"item_id":  item.ID,
		"endpoint": endpoint.String(),
		"depth":    len(items),
	})
	return &item, nil
}

// uniqueID draws ids until one is not already queued.
func (q *Queue) uniqueID(items []models.QueueItem) string {
	for {
		id := q.newID()
		taken := false
		for _, it := range items {
			if it.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// List returns the pending items in FIFO order. Missing, unreadable or
// corrupt data yields an empty list.
func (q *Queue) List(ctx context.Context) []models.QueueItem {
	items, err := q.load(ctx)
	if err != nil {
		logging.Warn("Failed to get offline queue", map[string]interface{}{"error": err.Error()})
		return []models.QueueItem{}
	}
	if items == nil {
		return []models.QueueItem{}
	}
	return items
}

// Contains reports whether an item with id is still queued.
func (q *Queue) Contains(ctx context.Context, id string) (bool, error) {
	items, err := q.load(ctx)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of pending items.
func (q *Queue) Len(ctx context.Context) int {
	return len(q.List(ctx))
}

// RemoveByID deletes the item with the given id. Removing an id that is not
// queued is a no-op and does not write to the store.
func (q *Queue) RemoveByID(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.loadForWrite(ctx)
	if err != nil {
		logging.Error("Failed to read offline queue for removal", err, map[string]interface{}{"item_id": id})
		return err
	}

	kept := make([]models.QueueItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return nil
	}

	if err := q.save(ctx, kept); err != nil {
		logging.Error("Failed to remove item from offline queue", err, map[string]interface{}{"item_id": id})
		return err
	}
	return nil
}
