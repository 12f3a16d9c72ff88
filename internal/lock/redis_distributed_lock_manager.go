package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when this instance still owns it,
// so an expired lease taken over by another instance is never clobbered.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

type RedisDistributedLockManager struct {
	client      *redis.Client
	instance    string
	leaseTTL    time.Duration
	acquireWait time.Duration
}

func NewRedisDistributedLockManager(client *redis.Client, instance string) *RedisDistributedLockManager {
	return &RedisDistributedLockManager{
		client:      client,
		instance:    instance,
		leaseTTL:    30 * time.Second,
		acquireWait: 5 * time.Second,
	}
}

func lockKey(lockID int) string {
	return fmt.Sprintf("outpost:lock:%d", lockID)
}

func (l *RedisDistributedLockManager) Acquire(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.acquireWait)
	defer cancel()

	key := lockKey(lockID)
	for {
		ok, err := l.client.SetNX(ctx, key, l.instance, l.leaseTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock %d: %w", lockID, ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (l *RedisDistributedLockManager) Release(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := l.client.Eval(ctx, releaseScript, []string{lockKey(lockID)}, l.instance).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
