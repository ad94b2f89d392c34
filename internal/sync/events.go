package sync

import "time"

// SyncEventType names a drain lifecycle event.
type SyncEventType string

const (
	SyncEventStarted   SyncEventType = "sync.started"
	SyncEventItem      SyncEventType = "sync.item_synced"
	SyncEventCompleted SyncEventType = "sync.completed"
	SyncEventHalted    SyncEventType = "sync.halted"

	// SyncEventOffline is emitted when a drain is skipped for lack of
	// connectivity. Nothing is read from the store.
	SyncEventOffline SyncEventType = "sync.offline"
)

// SyncEvent is emitted while a drain runs.
type SyncEvent struct {
	Type      SyncEventType
	ItemID    string
	Endpoint  string
	Pending   int
	Result    *DrainResult
	Err       error
	Timestamp time.Time
}

// SyncEventHandler receives drain events. Handlers are called synchronously
// on the draining goroutine and must not block.
type SyncEventHandler interface {
	OnSyncEvent(event SyncEvent)
}

// SyncEventHandlerFunc adapts a function to a SyncEventHandler.
type SyncEventHandlerFunc func(event SyncEvent)

// OnSyncEvent calls f.
func (f SyncEventHandlerFunc) OnSyncEvent(event SyncEvent) {
	f(event)
}

// MultiHandler fans an event out to several handlers.
type MultiHandler []SyncEventHandler

// OnSyncEvent forwards event to every non-nil handler.
func (m MultiHandler) OnSyncEvent(event SyncEvent) {
	for _, h := range m {
		if h != nil {
			h.OnSyncEvent(event)
		}
	}
}
