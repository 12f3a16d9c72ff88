package syncmanager

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron/v3"
	_ "github.com/lib/pq"

	"outpost/client"
	"outpost/di"
	storepg "outpost/internal/store/postgres"
	config2 "outpost/types/config"
)

// New initializes the full sync queue system from the provided config.
//
// It wires the configured storage backend, lock manager, handler registry,
// dispatcher, connectivity oracle and (optionally) the sync event broker,
// recovers syncing rows left behind by a crash, and starts the background
// triggers: a cron-scheduled drain plus an immediate drain whenever the
// passive signal reports the network came back. Both triggers are gated by
// the active probe, so a lying passive signal never causes dispatch.
//
// The returned SyncManager is ready for producers to enqueue against. All
// background work stops when ctx is cancelled.
func New(ctx context.Context, cfg *config2.OutpostConfig) (*client.SyncManager, error) {
	deps, err := di.GetDependencies(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.StorageDriver == config2.Postgres {
		if err := storepg.Init(deps.SQLDB, deps.LockMgr); err != nil {
			return nil, err
		}
	}

	// Crash recovery: anything stuck in syncing from a previous run is
	// released so the next pass retries it.
	if err := deps.ActionStore.ReleaseStale(ctx, cfg.StaleSyncTimeout); err != nil {
		return nil, err
	}

	manager := client.NewSyncManager(
		deps.ActionStore,
		deps.HistoryStore,
		deps.CacheStore,
		deps.Registry,
		deps.Executor,
		deps.Oracle,
		deps.LockMgr,
		cfg.HistoryCap,
		cfg.DrainConcurrency,
	)

	startBackgroundTriggers(ctx, cfg, manager, deps)

	return manager, nil
}

func startBackgroundTriggers(ctx context.Context, cfg *config2.OutpostConfig, manager *client.SyncManager, deps *di.Dependencies) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.DrainSchedule, func() {
		drainAll(ctx, manager)
	})
	if err != nil {
		log.Printf("[syncmanager] invalid drain schedule %q: %s", cfg.DrainSchedule, err)
	} else {
		scheduler.Start()
	}

	unsubscribe := manager.OnNetworkChange(func(online bool) {
		if !online {
			return
		}
		go drainAll(ctx, manager)
	})

	go func() {
		<-ctx.Done()
		scheduler.Stop()
		unsubscribe()
		if deps.Broker != nil {
			if err := deps.Broker.Close(); err != nil {
				log.Printf("[syncmanager] close broker: %s", err)
			}
		}
	}()
}

func drainAll(ctx context.Context, manager *client.SyncManager) {
	if ctx.Err() != nil {
		return
	}
	if _, err := manager.SyncAll(ctx); err != nil && !errors.Is(err, client.ErrOffline) {
		log.Printf("[syncmanager] sync pass failed: %s", err)
	}
}
