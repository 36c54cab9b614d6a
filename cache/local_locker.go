package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localLock struct {
	token    string
	released chan struct{}
}

// LocalLocker implements Locker on top of a GoCache, for a single process
type LocalLocker struct {
	store *GoCache
	mu    sync.Mutex
	held  map[string]*localLock
}

// NewLocalLocker creates a locker keeping its lock records in store
func NewLocalLocker(store *GoCache) *LocalLocker {
	return &LocalLocker{
		store: store,
		held:  make(map[string]*localLock),
	}
}

// TryLock takes the lock with Store.Add, an atomic insert-if-absent
func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := LockKey(key)
	lock := &localLock{
		token:    uuid.NewString(),
		released: make(chan struct{}),
	}

	l.mu.Lock()
	added, err := l.store.Add(ctx, lockKey, []byte(lock.token), ttl)
	if err != nil || !added {
		l.mu.Unlock()
		return func() {}, false, err
	}
	l.held[lockKey] = lock
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			if l.owns(lockKey, lock.token) {
				l.store.Delete(context.Background(), lockKey)
			}
			if l.held[lockKey] == lock {
				delete(l.held, lockKey)
			}
			close(lock.released)
		})
	}

	return release, true, nil
}

// Extend re-sets the lock record with a new ttl if it still carries our token
func (l *LocalLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := LockKey(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.held[lockKey]
	if !ok || !l.owns(lockKey, lock.token) {
		return false, nil
	}
	if err := l.store.Set(ctx, lockKey, []byte(lock.token), ttl); err != nil {
		return false, err
	}
	return true, nil
}

// owns must be called with l.mu held
func (l *LocalLocker) owns(lockKey, token string) bool {
	current, found, _ := l.store.Get(context.Background(), lockKey)
	return found && string(current) == token
}

// WaitUnlock waits for release, lock expiry or ctx. An extended lock is waited on again.
func (l *LocalLocker) WaitUnlock(ctx context.Context, key string) error {
	lockKey := LockKey(key)

	for {
		l.mu.Lock()
		_, expiresAt, found := l.store.cache.GetWithExpiration(lockKey)
		var released chan struct{}
		if lock := l.held[lockKey]; lock != nil {
			released = lock.released
		}
		l.mu.Unlock()

		if !found {
			return nil
		}

		var timer *time.Timer
		var expired <-chan time.Time
		if !expiresAt.IsZero() {
			timer = time.NewTimer(time.Until(expiresAt))
			expired = timer.C
		}

		select {
		case <-released:
			stopTimer(timer)
			return nil
		case <-expired:
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()
		}
	}
}

func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
