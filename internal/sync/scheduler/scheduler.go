// Package scheduler runs queue drains in the background.
// Drains fire on a cron schedule, when connectivity returns, and on demand.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kimhsiao/splitledger/client/internal/connectivity"
	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/logging"
	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
	"github.com/kimhsiao/splitledger/client/internal/sync/queue"
)

// DefaultSchedule drains once a minute.
const DefaultSchedule = "@every 1m"

// DefaultProbeInterval is how often connectivity is polled while running.
const DefaultProbeInterval = 15 * time.Second

// drainTimeout bounds one background drain.
const drainTimeout = 5 * time.Minute

// probeTimeout bounds one connectivity poll.
const probeTimeout = 10 * time.Second

// Scheduler manages background drain operations.
type Scheduler struct {
	processor syncpkg.Drainer
	queue     *queue.Queue
	spec      string

	oracle        connectivity.Oracle
	probeInterval time.Duration

	cron       *cron.Cron
	drainEntry cron.EntryID
	baseCtx context.Context
	wg      sync.WaitGroup

	mu              sync.RWMutex
	isRunning       bool
	isOnline        bool
	drainInProgress bool
	lastDrainTime   time.Time
	lastResult      *syncpkg.DrainResult
	lastErr         error
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Schedule is a cron expression or descriptor such as "@every 30s".
	Schedule string

	// Oracle, when set, is polled every ProbeInterval and drives
	// SetOnlineStatus.
	Oracle        connectivity.Oracle
	ProbeInterval time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{Schedule: DefaultSchedule, ProbeInterval: DefaultProbeInterval}
}

// ParseSchedule validates a schedule expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfig, "invalid drain schedule "+spec, err)
	}
	return schedule, nil
}

// NewScheduler creates a new Scheduler.
func NewScheduler(processor syncpkg.Drainer, q *queue.Queue, config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	spec := config.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	interval := config.ProbeInterval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Scheduler{
		processor:     processor,
		queue:         q,
		spec:          spec,
		oracle:        config.Oracle,
		probeInterval: interval,
		baseCtx:       context.Background(),
		isOnline:      true, // Assume online initially
	}
}

// Start begins scheduled drains. Drains started by the schedule or by
// TriggerDrain derive from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	schedule, err := ParseSchedule(s.spec)
	if err != nil {
		return err
	}

	s.baseCtx = ctx
	s.cron = cron.New()
	s.drainEntry = s.cron.Schedule(schedule, cron.FuncJob(s.tick))
	if s.oracle != nil {
		s.cron.Schedule(cron.Every(s.probeInterval), cron.FuncJob(s.checkConnectivity))
	}
	s.cron.Start()
	s.isRunning = true

	logging.Info("Background drain scheduler started", map[string]interface{}{
		"schedule":        s.spec,
		"watches_network": s.oracle != nil,
	})
	return nil
}

// Stop halts the schedule and waits for running drains to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.wg.Wait()

	logging.Info("Background drain scheduler stopped", nil)
}

// tick is the scheduled job.
func (s *Scheduler) tick() {
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()
	s.runDrain(ctx)
}

// checkConnectivity polls the oracle and records the verdict. An oracle
// error counts as offline.
func (s *Scheduler) checkConnectivity() {
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()
	if s.oracle == nil {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	status, err := s.oracle.Check(checkCtx)
	if err != nil {
		logging.Debug("Connectivity check failed", map[string]interface{}{"error": err.Error()})
	}
	s.SetOnlineStatus(err == nil && status.Ready())
}

// SetOnlineStatus records a connectivity change reported by the host. A
// transition back online triggers an immediate drain.
func (s *Scheduler) SetOnlineStatus(isOnline bool) {
	s.mu.Lock()
	wasOnline := s.isOnline
	s.isOnline = isOnline
	ctx := s.baseCtx
	s.mu.Unlock()

	if wasOnline == isOnline {
		return
	}
	logging.Info("Online status changed", map[string]interface{}{
		"was_online": wasOnline,
		"is_online":  isOnline,
	})
	if isOnline {
		s.TriggerDrain(ctx)
	}
}

// runDrain executes one drain unless offline or one is already running.
func (s *Scheduler) runDrain(ctx context.Context) {
	s.mu.Lock()
	if !s.isOnline {
		s.mu.Unlock()
		logging.Debug("Skipping drain - scheduler is offline", nil)
		return
	}
	if s.drainInProgress {
		s.mu.Unlock()
		logging.Debug("Drain already in progress, skipping", nil)
		return
	}
	s.drainInProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.drainInProgress = false
		s.mu.Unlock()
	}()

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	result, err := s.processor.Drain(drainCtx)
	s.record(result, err)

	if err != nil {
		logging.ErrorWithCode("Background drain failed", string(errors.CodeOf(err)), err, nil)
	}
}

func (s *Scheduler) record(result *syncpkg.DrainResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, errors.ErrDrainInProgress) {
		return
	}
	s.lastDrainTime = time.Now()
	s.lastResult = result
	s.lastErr = err
}

// TriggerDrain starts a drain in the background. It returns false if a
// scheduled drain is already running.
func (s *Scheduler) TriggerDrain(ctx context.Context) bool {
	s.mu.RLock()
	busy := s.drainInProgress
	s.mu.RUnlock()
	if busy {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runDrain(ctx)
	}()
	return true
}

// DrainNow drains synchronously and returns the result. It ignores the
// online flag; the processor still consults the connectivity oracle.
func (s *Scheduler) DrainNow(ctx context.Context) (*syncpkg.DrainResult, error) {
	result, err := s.processor.Drain(ctx)
	s.record(result, err)
	if err == nil && result != nil && !result.Offline {
		logging.Info("Manual drain completed", map[string]interface{}{
			"synced":    len(result.Synced),
			"remaining": result.Remaining,
		})
	}
	return result, err
}

// SchedulerStatus is a snapshot of scheduler state.
type SchedulerStatus struct {
	IsRunning       bool                 `json:"isRunning"`
	IsOnline        bool                 `json:"isOnline"`
	DrainInProgress bool                 `json:"drainInProgress"`
	LastDrainTime   *time.Time           `json:"lastDrainTime,omitempty"`
	LastResult      *syncpkg.DrainResult `json:"lastResult,omitempty"`
	LastError       string               `json:"lastError,omitempty"`
	NextRun         *time.Time           `json:"nextRun,omitempty"`
	PendingItems    int                  `json:"pendingItems"`
}

// GetStatus returns the current status of the scheduler.
func (s *Scheduler) GetStatus(ctx context.Context) SchedulerStatus {
	s.mu.RLock()
	status := SchedulerStatus{
		IsRunning:       s.isRunning,
		IsOnline:        s.isOnline,
		DrainInProgress: s.drainInProgress,
		LastResult:      s.lastResult,
	}
	if !s.lastDrainTime.IsZero() {
		t := s.lastDrainTime
		status.LastDrainTime = &t
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	if s.isRunning && s.cron != nil {
		if entry := s.cron.Entry(s.drainEntry); entry.Valid() && !entry.Next.IsZero() {
			next := entry.Next
			status.NextRun = &next
		}
	}
	s.mu.RUnlock()

	status.PendingItems = s.queue.Len(ctx)
	return status
}

// IsOnline returns whether the scheduler is in online mode.
func (s *Scheduler) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isOnline
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
