// Package server exposes the local sync status API, Prometheus metrics, and
// a WebSocket feed of drain events.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/logging"
	"github.com/kimhsiao/splitledger/client/internal/metrics"
	"github.com/kimhsiao/splitledger/client/internal/status"
	"github.com/kimhsiao/splitledger/client/internal/sync/history"
	"github.com/kimhsiao/splitledger/client/internal/sync/queue"
	"github.com/kimhsiao/splitledger/client/internal/sync/scheduler"
)

// Server is the local HTTP API.
type Server struct {
	router    *mux.Router
	scheduler *scheduler.Scheduler
	queue     *queue.Queue
	history   *history.History
	metrics   *metrics.Metrics
	hub       *WSHub
	now       func() time.Time
}

// New creates a Server and registers its routes.
func New(s *scheduler.Scheduler, q *queue.Queue, h *history.History, m *metrics.Metrics, hub *WSHub) *Server {
	srv := &Server{
		router:    mux.NewRouter(),
		scheduler: s,
		queue:     q,
		history:   h,
		metrics:   m,
		hub:       hub,
		now:       time.Now,
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sync/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sync/drain", s.handleDrain).Methods(http.MethodPost)
	s.router.HandleFunc("/api/queue", s.handleQueueList).Methods(http.MethodGet)
	s.router.HandleFunc("/api/queue/{id}", s.handleQueueRemove).Methods(http.MethodDelete)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Status server listening", map[string]interface{}{"addr": addr})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	return httpServer.Shutdown(shutdownCtx)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrDrainInProgress:
		code = http.StatusConflict
	case errors.ErrInvalid:
		code = http.StatusBadRequest
	}
	message := err.Error()
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, code, errorBody{Code: string(errors.CodeOf(err)), Message: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Scheduler scheduler.SchedulerStatus `json:"scheduler"`
	Report    status.Report             `json:"report"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items := s.queue.List(ctx)
	entries := s.history.List(ctx)
	if s.metrics != nil {
		s.metrics.SetQueueDepth(len(items))
		s.metrics.SetHistoryEntries(len(entries))
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Scheduler: s.scheduler.GetStatus(ctx),
		Report:    status.Build(items, entries, s.now()),
	})
}

type drainResponse struct {
	Offline   bool     `json:"offline"`
	Synced    []string `json:"synced"`
	Remaining int      `json:"remaining"`
	HaltedID  string   `json:"haltedId,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	result, err := s.scheduler.DrainNow(r.Context())
	if err != nil && (result == nil || !result.Any()) {
		writeError(w, err)
		return
	}

	resp := drainResponse{
		Offline:   result.Offline,
		Synced:    result.Synced,
		Remaining: result.Remaining,
		Reason:    string(result.Reason),
	}
	if resp.Synced == nil {
		resp.Synced = []string{}
	}
	if result.Halted != nil {
		resp.HaltedID = result.Halted.ID
	}
	if result.HaltErr != nil {
		resp.Error = result.HaltErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.List(r.Context()))
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.queue.RemoveByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	logging.Info("Queued item removed by operator", map[string]interface{}{"item_id": id})
	w.WriteHeader(http.StatusNoContent)
}
