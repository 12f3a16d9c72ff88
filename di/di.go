package di

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"outpost/internal/dispatch"
	"outpost/internal/executor"
	"outpost/internal/lock"
	"outpost/internal/message_broaker"
	"outpost/internal/netstatus"
	"outpost/internal/registry"
	storepg "outpost/internal/store/postgres"
	storesqlite "outpost/internal/store/sqlite"
	config2 "outpost/types/config"
)

// GetDependencies assembles stores, lock manager, oracle, dispatcher and
// executor according to the configuration.
func GetDependencies(cfg *config2.OutpostConfig) (*Dependencies, error) {
	deps := &Dependencies{}

	if err := setupStorage(cfg, deps); err != nil {
		return nil, err
	}
	if err := setupLock(cfg, deps); err != nil {
		return nil, err
	}
	if err := setupBroker(cfg, deps); err != nil {
		return nil, err
	}

	reg := registry.New()
	for _, d := range cfg.Handlers {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	deps.Registry = reg

	deps.Oracle = netstatus.NewOracle(cfg.ProbeURL, cfg.ProbeTimeout)

	var creds dispatch.Credentials
	if cfg.APIToken != "" {
		creds = dispatch.BearerToken(cfg.APIToken)
	}
	deps.Dispatcher = dispatch.NewHTTPDispatcher(cfg.BaseURL, creds, cfg.DispatchTimeout)

	deps.Executor = executor.New(executor.Config{
		Actions:     deps.ActionStore,
		History:     deps.HistoryStore,
		Registry:    deps.Registry,
		Dispatcher:  deps.Dispatcher,
		Oracle:      deps.Oracle,
		Broker:      deps.Broker,
		EventQueue:  cfg.EventQueue,
		HistoryCap:  cfg.HistoryCap,
		MaxAttempts: cfg.MaxRetryAttempts,
	})

	return deps, nil
}

func setupStorage(cfg *config2.OutpostConfig, deps *Dependencies) error {
	switch cfg.StorageDriver {
	case config2.SQLite:
		db, err := storesqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		deps.SQLDB = db
		deps.ActionStore = storesqlite.NewSQLiteActionStore(db)
		deps.HistoryStore = storesqlite.NewSQLiteHistoryStore(db)
		deps.CacheStore = storesqlite.NewSQLiteCacheStore(db)

	case config2.Postgres:
		db, err := sql.Open("postgres", cfg.PostgresConfig.ConnectionUrl)
		if err != nil {
			return err
		}
		deps.SQLDB = db
		deps.ActionStore = storepg.NewPostgresActionStore(db)
		deps.HistoryStore = storepg.NewPostgresHistoryStore(db)
		deps.CacheStore = storepg.NewPostgresCacheStore(db)

	default:
		return fmt.Errorf("unsupported driver: %v", cfg.StorageDriver)
	}
	return nil
}

// setupLock elects the writer-election backend: Redis when configured,
// Postgres advisory locks when available, otherwise in-process.
func setupLock(cfg *config2.OutpostConfig, deps *Dependencies) error {
	if cfg.RedisConfig.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		deps.LockMgr = lock.NewRedisDistributedLockManager(client, cfg.Instance)
		return nil
	}
	if cfg.StorageDriver == config2.Postgres {
		deps.LockMgr = lock.NewPostgresDistributedLockManager(deps.SQLDB)
		return nil
	}
	deps.LockMgr = lock.NewLocalLockManager()
	return nil
}

func setupBroker(cfg *config2.OutpostConfig, deps *Dependencies) error {
	if cfg.RabbitMQConfig == nil || cfg.RabbitMQConfig.URL == "" {
		return nil
	}
	broker, err := message_broaker.NewRabbitMQ(
		cfg.RabbitMQConfig.URL,
		cfg.RabbitMQConfig.Exchange,
		cfg.RabbitMQConfig.Queue,
		cfg.RabbitMQConfig.RoutingKey,
	)
	if err != nil {
		return err
	}
	deps.Broker = broker
	return nil
}
