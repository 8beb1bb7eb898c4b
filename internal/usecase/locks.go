package usecase

import (
	"sync"

	"github.com/iho/clienttx/internal/domain"
)

// keyedLocks hands out one RWMutex per client transaction key. Entries are
// dropped once nobody holds or waits for them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[domain.ClientTransactionKey]*keyedLock
}

type keyedLock struct {
	sync.RWMutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[domain.ClientTransactionKey]*keyedLock)}
}

func (l *keyedLocks) acquire(key domain.ClientTransactionKey) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[key]
	if !ok {
		lock = &keyedLock{}
		l.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (l *keyedLocks) release(key domain.ClientTransactionKey, lock *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock takes the exclusive lock for key and returns its unlock function.
func (l *keyedLocks) Lock(key domain.ClientTransactionKey) func() {
	lock := l.acquire(key)
	lock.Lock()
	return func() {
		lock.Unlock()
		l.release(key, lock)
	}
}

// RLock takes the shared lock for key and returns its unlock function.
func (l *keyedLocks) RLock(key domain.ClientTransactionKey) func() {
	lock := l.acquire(key)
	lock.RLock()
	return func() {
		lock.RUnlock()
		l.release(key, lock)
	}
}

func (l *keyedLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
