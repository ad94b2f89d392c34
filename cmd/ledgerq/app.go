package main

import (
	"github.com/kimhsiao/splitledger/client/internal/api"
	"github.com/kimhsiao/splitledger/client/internal/config"
	"github.com/kimhsiao/splitledger/client/internal/connectivity"
	"github.com/kimhsiao/splitledger/client/internal/crypto"
	"github.com/kimhsiao/splitledger/client/internal/kvstore"
	"github.com/kimhsiao/splitledger/client/internal/ledger"
	"github.com/kimhsiao/splitledger/client/internal/metrics"
	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
	"github.com/kimhsiao/splitledger/client/internal/sync/history"
	"github.com/kimhsiao/splitledger/client/internal/sync/queue"
	"github.com/kimhsiao/splitledger/client/internal/sync/scheduler"
)

// app wires the store, queue, processor and clients for one process.
type app struct {
	store   kvstore.Store
	closeFn func() error

	tokens    *api.KVTokenSource
	client    *api.Client
	queue     *queue.Queue
	history   *history.History
	metrics   *metrics.Metrics
	processor *syncpkg.Processor
	scheduler *scheduler.Scheduler
	service   *ledger.Service
}

func openStore(cfg *config.Config) (kvstore.Store, func() error, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return kvstore.NewMemoryStore(), func() error { return nil }, nil
	}
	s, err := kvstore.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

func newApp(cfg *config.Config, offline bool) (*app, error) {
	store, closeFn, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{store: store, closeFn: closeFn, metrics: metrics.New()}
	var tokenOpts []api.TokenOption
	if cfg.Auth.EncryptToken {
		machineID := cfg.Auth.MachineID
		if machineID == "" {
			machineID = crypto.MachineID()
		}
		sealer, err := crypto.NewSealer(machineID)
		if err != nil {
			closeFn()
			return nil, err
		}
		tokenOpts = append(tokenOpts, api.WithSealer(sealer))
	}
	a.tokens = api.NewKVTokenSource(store, tokenOpts...)
	a.client = api.NewClient(&api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, a.tokens)
	a.queue = queue.New(store, queue.WithObserver(a.metrics.SetQueueDepth))
	a.history = history.New(store, history.WithObserver(a.metrics.SetHistoryEntries))

	var oracle connectivity.Oracle
	if offline {
		oracle = connectivity.NewStatic(false)
	} else {
		oracle = connectivity.NewHTTPProbe(cfg.Connectivity.ProbeURL, cfg.Connectivity.Timeout)
	}

	a.processor = syncpkg.NewProcessor(a.queue, a.history, oracle, api.NewSubmitter(a.client),
		syncpkg.WithSubmitTimeout(cfg.Sync.SubmitTimeout))
	a.processor.SetEventHandler(a.metrics)
	a.scheduler = scheduler.NewScheduler(a.processor, a.queue, &scheduler.SchedulerConfig{
		Schedule:      cfg.Sync.DrainSchedule,
		Oracle:        oracle,
		ProbeInterval: cfg.Sync.ProbeInterval,
	})
	a.service = ledger.NewService(offlineRemote(a.client, offline), a.queue, a.processor)
	return a, nil
}

// Close releases the store.
func (a *app) Close() error {
	return a.closeFn()
}
