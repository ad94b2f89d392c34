package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
)

func TestGauges(t *testing.T) {
	m := New()
	m.SetQueueDepth(3)
	m.SetHistoryEntries(6)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.historyEntries))
}

func TestOnSyncEvent(t *testing.T) {
	m := New()
	start := time.Now()

	m.OnSyncEvent(syncpkg.SyncEvent{Type: syncpkg.SyncEventStarted, Pending: 2})
	m.OnSyncEvent(syncpkg.SyncEvent{Type: syncpkg.SyncEventItem, Endpoint: "create-expense"})
	m.OnSyncEvent(syncpkg.SyncEvent{
		Type:      syncpkg.SyncEventHalted,
		Endpoint:  "create-payment",
		Result:    &syncpkg.DrainResult{StartTime: start, Reason: syncpkg.HaltNetwork},
		Timestamp: start.Add(time.Second),
	})
	m.OnSyncEvent(syncpkg.SyncEvent{
		Type:      syncpkg.SyncEventCompleted,
		Result:    &syncpkg.DrainResult{StartTime: start},
		Timestamp: start.Add(2 * time.Second),
	})
	m.OnSyncEvent(syncpkg.SyncEvent{Type: syncpkg.SyncEventOffline, Result: &syncpkg.DrainResult{Offline: true}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("create-expense", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("create-payment", "network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drains.WithLabelValues("halted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drains.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drains.WithLabelValues("offline")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "ledgerq_drain_duration_seconds_count 2")
}

func TestOnSyncEvent_storeHaltCountsAsSubmitted(t *testing.T) {
	m := New()
	m.OnSyncEvent(syncpkg.SyncEvent{
		Type:     syncpkg.SyncEventHalted,
		Endpoint: "create-expense",
		Result:   &syncpkg.DrainResult{Reason: syncpkg.HaltStore},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("create-expense", "success")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetQueueDepth(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ledgerq_queue_depth 2"))
}
