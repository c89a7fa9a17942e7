package application

import (
	"context"
	"sort"
	"sync"
)

// UserLocks serializes mutations that read and then write one user's
// availability or task bookings. Locks are reference counted and released
// once no goroutine holds or waits for them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewUserLocks returns an empty lock table.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Lock acquires the locks of every non-empty id in a stable order and returns
// the function releasing them. A nil table locks nothing.
func (l *UserLocks) Lock(userIDs ...string) (unlock func()) {
	if l == nil {
		return func() {}
	}

	ids := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	held := make([]string, 0, len(ids))
	for _, id := range ids {
		l.acquire(id)
		held = append(held, id)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				l.release(held[i])
			}
		})
	}
}

func (l *UserLocks) acquire(id string) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	lock, ok := l.locks[id]
	if !ok {
		lock = &userLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
}

func (l *UserLocks) release(id string) {
	l.mu.Lock()
	lock := l.locks[id]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()

	lock.mu.Unlock()
}

// size reports how many user locks are live.
func (l *UserLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Transactor runs fn inside a single store transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// withinTx runs fn through tx, or directly when no transactor is configured.
func withinTx(ctx context.Context, tx Transactor, fn func(ctx context.Context) error) error {
	if tx == nil {
		return fn(ctx)
	}
	return tx.WithinTx(ctx, fn)
}
