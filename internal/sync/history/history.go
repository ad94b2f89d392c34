// Package history keeps the short, most-recent-first record of queued writes
// that reached the server.
package history

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kimhsiao/splitledger/client/internal/kvstore"
	"github.com/kimhsiao/splitledger/client/internal/logging"
	"github.com/kimhsiao/splitledger/client/internal/models"
)

const (
	// StorageKey is the store key holding the serialized history.
	StorageKey = "sync_history"

	// Limit is the number of entries retained.
	Limit = 6
)

// History is the bounded log of successfully submitted items.
type History struct {
	store kvstore.Store
	mu    sync.Mutex
	now   func() time.Time

	onChange func(n int)
}

// Option configures a History.
type Option func(*History)

// WithClock overrides the time source used for syncedAt.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// WithObserver registers a callback invoked with the entry count after every
// successful append.
func WithObserver(fn func(n int)) Option {
	return func(h *History) { h.onChange = fn }
}

// New creates a History over store.
func New(store kvstore.Store, opts ...Option) *History {
	h := &History{store: store, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *History) load(ctx context.Context) ([]models.SyncHistoryEntry, error) {
	var entries []models.SyncHistoryEntry
	if _, err := kvstore.LoadJSON(ctx, h.store, StorageKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append records item as synced now. The entry goes to the front and the
// history is truncated to Limit entries.
func (h *History) Append(ctx context.Context, item models.QueueItem) (*models.SyncHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		if !stderrors.Is(err, kvstore.ErrCorrupt) {
			logging.Error("Failed to read sync history", err, map[string]interface{}{"item_id": item.ID})
			return nil, err
		}
		logging.Warn("Sync history is corrupt, starting over", map[string]interface{}{"error": err.Error()})
		entries = nil
	}

	entry := models.NewHistoryEntry(item, h.now().UTC())
	next := make([]models.SyncHistoryEntry, 0, Limit)
	next = append(next, entry)
	for _, e := range entries {
		if len(next) == Limit {
			break
		}
		next = append(next, e)
	}

	if err := kvstore.SaveJSON(ctx, h.store, StorageKey, next); err != nil {
		logging.Error("Failed to save sync history", err, map[string]interface{}{"item_id": item.ID})
		return nil, err
	}
	if h.onChange != nil {
		h.onChange(len(next))
	}
	return &entry, nil
}

// List returns the retained entries, most recent first. Missing, unreadable
// or corrupt data yields an empty list.
func (h *History) List(ctx context.Context) []models.SyncHistoryEntry {
	entries, err := h.load(ctx)
	if err != nil {
		logging.Warn("Failed to get sync history", map[string]interface{}{"error": err.Error()})
		return []models.SyncHistoryEntry{}
	}
	if entries == nil {
		return []models.SyncHistoryEntry{}
	}
	return entries
}
