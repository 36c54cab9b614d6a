package cache

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/cache.go . Store,Locker

// ErrStoreUnavailable is wrapped by every backend error that is not a plain miss
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Store is a byte-level key/value store with per-item expiry
type Store interface {
	// Get retrieves the value stored under key
	//
	// Returns:
	// - []byte: stored value, nil when not found
	// - bool: whether the key was found and not expired
	// - error: backend failure, wraps ErrStoreUnavailable
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores or replaces the value under key
	// If ttl <= 0 the item never expires
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Add stores the value only if key is absent (or expired), atomically
	//
	// Returns:
	// - bool: true if the value was stored
	// - error: backend failure, wraps ErrStoreUnavailable
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes the value stored under key
	Delete(ctx context.Context, key string) error
}

// Locker provides short-lived named locks shared by every user of the same backend
type Locker interface {
	// TryLock attempts to take the lock named key for at most ttl
	//
	// Returns:
	// - func(): releases the lock; safe to call more than once, a no-op if not acquired
	// - bool: true if this caller now holds the lock
	// - error: backend failure, wraps ErrStoreUnavailable
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)

	// Extend resets the expiry of a lock taken through this locker to ttl from now
	//
	// Returns:
	// - bool: false if the lock expired or was released, nothing is extended then
	// - error: backend failure, wraps ErrStoreUnavailable
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// WaitUnlock blocks until the lock named key is released or expires,
	// or until ctx is done. Returns immediately if the lock is not held.
	WaitUnlock(ctx context.Context, key string) error
}

// LockKey returns the store key under which the lock for key is kept
func LockKey(key string) string {
	return "lock:" + key
}
