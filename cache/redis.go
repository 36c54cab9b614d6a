package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript resets the lock expiry only if it still carries our token
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisStore implements Store and Locker on a redis server
type RedisStore struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string // lock key -> token of locks taken by this process
}

// NewRedisStore connects to redis and checks the connection with a ping
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
		tokens: make(map[string]string),
	}, nil
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", ErrStoreUnavailable, op, err)
}

// Get retrieves the value for key, redis.Nil is a plain miss
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, unavailable("get", err)
	}
	return data, true, nil
}

// Set stores value under key, ttl <= 0 keeps it forever
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Add stores value only if key is absent (SET NX)
func (r *RedisStore) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		return false, unavailable("setnx", err)
	}
	return ok, nil
}

// Delete removes key
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

// releaseChannel is the pub/sub channel announcing the release of a lock
func (r *RedisStore) releaseChannel(lockKey string) string {
	return r.key(lockKey) + ":released"
}

// TryLock takes the lock with SET NX PX and a random token
func (r *RedisStore) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := LockKey(key)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.key(lockKey), token, ttl).Result()
	if err != nil {
		return func() {}, false, unavailable("lock", err)
	}
	if !ok {
		return func() {}, false, nil
	}

	r.mu.Lock()
	r.tokens[lockKey] = token
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			if r.tokens[lockKey] == token {
				delete(r.tokens, lockKey)
			}
			r.mu.Unlock()

			// The caller's context may be gone by now
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, r.client, []string{r.key(lockKey)}, token).Err(); err != nil {
				log.Printf("RedisStore: Failed to release lock %s: %v", lockKey, err)
				return
			}
			if err := r.client.Publish(releaseCtx, r.releaseChannel(lockKey), token).Err(); err != nil {
				log.Printf("RedisStore: Failed to publish release of %s: %v", lockKey, err)
			}
		})
	}

	return release, true, nil
}

// Extend resets the lock expiry with a compare-and-pexpire script
func (r *RedisStore) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := LockKey(key)

	r.mu.Lock()
	token, ok := r.tokens[lockKey]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	extended, err := extendScript.Run(ctx, r.client, []string{r.key(lockKey)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, unavailable("extend", err)
	}
	return extended == 1, nil
}

// WaitUnlock subscribes to the release channel first and only then checks the lock,
// so a release between the two steps is not missed
func (r *RedisStore) WaitUnlock(ctx context.Context, key string) error {
	lockKey := LockKey(key)

	sub := r.client.Subscribe(ctx, r.releaseChannel(lockKey))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return unavailable("subscribe", err)
	}

	for {
		remaining, err := r.client.PTTL(ctx, r.key(lockKey)).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return unavailable("pttl", err)
		}
		// go-redis reports a missing key as -2 and a key without expiry as -1
		if remaining == -2 || remaining == 0 {
			return nil
		}

		var timer *time.Timer
		var expired <-chan time.Time
		if remaining > 0 {
			timer = time.NewTimer(remaining)
			expired = timer.C
		}

		// An extended lock is still held when its old expiry passes, so check again
		select {
		case <-sub.Channel():
			stopTimer(timer)
			return nil
		case <-expired:
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()
		}
	}
}

// Close closes the redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
