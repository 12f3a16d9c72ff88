package lock

import "sync"

// LocalLockManager serialises writers within a single process. It is the
// right choice for the SQLite driver, where the store itself is private to
// one process and cross-process election has nothing to elect.
type LocalLockManager struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{locks: make(map[int]*sync.Mutex)}
}

func (l *LocalLockManager) forID(lockID int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[lockID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[lockID] = m
	}
	return m
}

func (l *LocalLockManager) Acquire(lockID int) error {
	l.forID(lockID).Lock()
	return nil
}

func (l *LocalLockManager) Release(lockID int) error {
	l.forID(lockID).Unlock()
	return nil
}
