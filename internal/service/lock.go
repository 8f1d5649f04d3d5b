package service

import "sync"

// userLocks serializes ledger mutations per user. The database row lock is
// the real guard; this keeps concurrent handlers for the same user from
// piling up on the row lock and deadlocking across multi-statement
// transactions.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) get(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.locks[userID]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.locks[userID] = m
	return m
}

// Lock acquires the per-user mutex and returns the unlock function.
func (l *userLocks) Lock(userID string) func() {
	m := l.get(userID)
	m.Lock()
	return m.Unlock
}
