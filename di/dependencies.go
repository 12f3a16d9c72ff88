package di

import (
	"database/sql"

	"outpost/internal/dispatch"
	"outpost/internal/executor"
	"outpost/internal/lock"
	"outpost/internal/message_broaker"
	"outpost/internal/netstatus"
	"outpost/internal/registry"
	"outpost/internal/store"
)

// Dependencies holds every wired collaborator the sync manager needs.
type Dependencies struct {
	ActionStore  store.ActionStore
	HistoryStore store.HistoryStore
	CacheStore   store.CacheStore
	LockMgr      lock.DistributedLockManager
	Broker       message_broaker.MessageBroker
	Oracle       *netstatus.Oracle
	Registry     *registry.Registry
	Dispatcher   dispatch.Dispatcher
	Executor     *executor.SyncExecutor

	// SQLDB is the shared database handle (sqlite or postgres), exposed for
	// migrations and shutdown.
	SQLDB *sql.DB
}
