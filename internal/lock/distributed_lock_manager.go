package lock

// DistributedLockManager elects a single writer among concurrent execution
// contexts (processes, tabs, instances) sharing one durable store. The
// underlying store keeps last-write-wins semantics; the lock is what makes
// concurrent drains safe.
type DistributedLockManager interface {
	Acquire(lockID int) error
	Release(lockID int) error
}
