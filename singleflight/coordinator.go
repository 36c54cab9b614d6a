package singleflight

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/status-im/portfolio-proxy/cache"
	"github.com/status-im/portfolio-proxy/metrics"
)

var (
	// ErrWaitTimeout is returned to callers that waited longer than the wait ceiling
	ErrWaitTimeout = errors.New("single-flight wait ceiling exceeded")
	// ErrNoData is returned when another instance held the lock but left nothing to read
	ErrNoData = errors.New("no data after remote fetch")
)

// Roles recorded in metrics
const (
	RoleLeader         = "leader"
	RoleFollower       = "follower"
	RoleRemoteFollower = "remote_follower"
	RoleTimeout        = "timeout"
	RoleLockError      = "lock_error"
)

// LeaderFunc performs the fetch for a key. ctx is detached from the triggering caller.
type LeaderFunc[T any] func(ctx context.Context) (T, error)

// PeekFunc reads a result another leader may already have stored
type PeekFunc[T any] func(ctx context.Context) (T, bool)

// Options configures a Coordinator
type Options struct {
	// LockTimeout is the TTL of the cross-process lock
	LockTimeout time.Duration
	// LockGrace is added to LockTimeout to form the caller wait ceiling
	LockGrace time.Duration
	// LeaderTimeout bounds a leader run, independently of its callers
	LeaderTimeout time.Duration
}

// WaitCeiling is the longest any caller waits for a result
func (o Options) WaitCeiling() time.Duration {
	return o.LockTimeout + o.LockGrace
}

// Coordinator makes sure at most one fetch per key is in flight, within the process
// through singleflight.Group and across processes through a cache.Locker.
// Different keys never wait on each other.
type Coordinator[T any] struct {
	group         singleflight.Group
	locker        cache.Locker
	opts          Options
	metricsWriter *metrics.MetricsWriter

	mu      sync.Mutex
	waiters map[string]int
}

// New creates a coordinator. locker may be nil, then only in-process callers are coalesced.
func New[T any](locker cache.Locker, opts Options, metricsWriter *metrics.MetricsWriter) *Coordinator[T] {
	return &Coordinator[T]{
		locker:        locker,
		opts:          opts,
		metricsWriter: metricsWriter,
		waiters:       make(map[string]int),
	}
}

// Execute returns the result of the single in-flight fetch for key, starting it if
// needed. The caller waits at most the wait ceiling, then gets ErrWaitTimeout while
// the fetch keeps running in the background. If ctx ends first, ctx.Err() is returned.
func (c *Coordinator[T]) Execute(ctx context.Context, key string, lead LeaderFunc[T], peek PeekFunc[T]) (T, error) {
	var zero T

	c.addWaiter(key, 1)
	defer c.addWaiter(key, -1)

	detached := context.WithoutCancel(ctx)
	var led atomic.Bool

	ch := c.group.DoChan(key, func() (interface{}, error) {
		led.Store(true)

		runCtx := detached
		if c.opts.LeaderTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(detached, c.opts.LeaderTimeout)
			defer cancel()
		}
		return c.runLeader(runCtx, key, lead, peek)
	})

	timer := time.NewTimer(c.opts.WaitCeiling())
	defer timer.Stop()

	select {
	case res := <-ch:
		if led.Load() {
			c.record(RoleLeader)
		} else {
			c.record(RoleFollower)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(T)
		return value, nil
	case <-timer.C:
		// The fetch keeps running and later callers for key join it
		c.record(RoleTimeout)
		log.Printf("Singleflight: Gave up waiting for %s after %v", key, c.opts.WaitCeiling())
		return zero, ErrWaitTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Waiters returns how many callers are currently waiting on key
func (c *Coordinator[T]) Waiters(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[key]
}

func (c *Coordinator[T]) addWaiter(key string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waiters[key] += delta
	if c.waiters[key] <= 0 {
		delete(c.waiters, key)
	}
}

// runLeader takes the cross-process lock, or waits for whoever holds it
func (c *Coordinator[T]) runLeader(ctx context.Context, key string, lead LeaderFunc[T], peek PeekFunc[T]) (interface{}, error) {
	if c.locker == nil {
		return lead(ctx)
	}

	release, acquired, err := c.locker.TryLock(ctx, key, c.opts.LockTimeout)
	if err != nil {
		c.record(RoleLockError)
		log.Printf("Singleflight: Lock store failed for %s, fetching unlocked: %v", key, err)
		return lead(ctx)
	}

	if acquired {
		defer release()
		stop := c.keepLock(ctx, key)
		defer stop()

		// Another instance may have filled the cache between our miss and the lock
		if value, ok := c.peek(ctx, peek); ok {
			return value, nil
		}
		return lead(ctx)
	}

	c.record(RoleRemoteFollower)
	return c.followRemote(ctx, key, peek)
}

// keepLock extends the held lock every third of LockTimeout until stop is called.
// The leader run is bounded by LeaderTimeout, so a stuck leader still lets go.
func (c *Coordinator[T]) keepLock(ctx context.Context, key string) (stop func()) {
	interval := c.opts.LockTimeout / 3
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := c.locker.Extend(ctx, key, c.opts.LockTimeout)
				if err != nil {
					log.Printf("Singleflight: Failed to extend lock on %s: %v", key, err)
					continue
				}
				if !held {
					log.Printf("Singleflight: Lock on %s was lost during fetch", key)
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func (c *Coordinator[T]) followRemote(ctx context.Context, key string, peek PeekFunc[T]) (interface{}, error) {
	waitCtx := ctx
	if c.opts.LockTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.opts.LockTimeout)
		defer cancel()
	}

	waitErr := c.locker.WaitUnlock(waitCtx, key)
	if waitErr != nil && errors.Is(waitErr, cache.ErrStoreUnavailable) {
		log.Printf("Singleflight: Waiting for remote lock on %s failed: %v", key, waitErr)
	}

	if value, ok := c.peek(ctx, peek); ok {
		return value, nil
	}

	if waitErr != nil && errors.Is(waitErr, context.DeadlineExceeded) {
		return nil, fmt.Errorf("remote fetch of %s: %w", key, ErrWaitTimeout)
	}
	return nil, ErrNoData
}

func (c *Coordinator[T]) peek(ctx context.Context, peek PeekFunc[T]) (T, bool) {
	if peek == nil {
		var zero T
		return zero, false
	}
	return peek(ctx)
}

func (c *Coordinator[T]) record(role string) {
	if c.metricsWriter != nil {
		c.metricsWriter.RecordSingleflight(role)
	}
}
