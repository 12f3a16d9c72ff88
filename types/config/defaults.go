package config

import "time"

const (
	DefaultStorageDriver    = SQLite
	DefaultSQLitePath       = "./outpost.db"
	DefaultHistoryCap       = 50
	DefaultMaxRetryAttempts = 25
	DefaultProbeTimeout     = 4 * time.Second
	DefaultDispatchTimeout  = 15 * time.Second
	DefaultStaleSyncTimeout = 5 * time.Minute
	DefaultDrainConcurrency = 4

	// DefaultDrainSchedule retries pending work every minute so failed
	// actions are picked up again without waiting for a network event.
	DefaultDrainSchedule = "* * * * *"

	DefaultEventQueue = "outpost.sync_events"
)
