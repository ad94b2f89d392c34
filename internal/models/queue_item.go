package models

import (
	"encoding/json"
	"time"
)

// ItemStatus is the lifecycle marker stored with queue and history records.
type ItemStatus string

const (
	// StatusPending marks an item still waiting in the queue.
	StatusPending ItemStatus = "pending"
	// StatusSuccess marks a history entry for a submitted item.
	StatusSuccess ItemStatus = "success"
)

// QueueItem is a mutating operation waiting to be submitted.
type QueueItem struct {
	ID        string          `json:"id"`
	Endpoint  Endpoint        `json:"endpoint"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Status    ItemStatus      `json:"status"`
}

// SyncHistoryEntry records a queue item that was submitted successfully.
type SyncHistoryEntry struct {
	ID        string          `json:"id"`
	Endpoint  Endpoint        `json:"endpoint"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Status    ItemStatus      `json:"status"`
	SyncedAt  time.Time       `json:"syncedAt"`
}

// NewHistoryEntry derives a success record from a submitted item.
func NewHistoryEntry(item QueueItem, syncedAt time.Time) SyncHistoryEntry {
	return SyncHistoryEntry{
		ID:        item.ID,
		Endpoint:  item.Endpoint,
		Payload:   item.Payload,
		Timestamp: item.Timestamp,
		Status:    StatusSuccess,
		SyncedAt:  syncedAt,
	}
}

// payloadSummary holds the payload fields shown in status output.
type payloadSummary struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Summary extracts the description and amount from a payload, if present.
// Payloads are opaque to the queue; this is only used for display.
func Summary(payload json.RawMessage) (description string, amount float64) {
	var s payloadSummary
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", 0
	}
	return s.Description, s.Amount
}
