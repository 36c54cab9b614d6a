package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Service implements Store and Locker, backed by go-cache or, when enabled, by redis
type Service struct {
	goCache     *GoCache
	localLocker *LocalLocker
	config      Config

	mu    sync.RWMutex
	redis *RedisStore
}

// NewService creates a new cache service with the given configuration
func NewService(config Config) *Service {
	var goCache *GoCache

	if config.GoCache.Enabled {
		goCache = NewGoCache(config.GoCache.DefaultExpiration, config.GoCache.CleanupInterval)
	} else {
		// Create a minimal cache even if disabled for consistency
		goCache = NewGoCache(1*time.Minute, 2*time.Minute)
	}

	return &Service{
		goCache:     goCache,
		localLocker: NewLocalLocker(goCache),
		config:      config,
	}
}

// Start implements core.Interface
func (s *Service) Start(ctx context.Context) error {
	if s.goCache == nil {
		return fmt.Errorf("cache service not properly initialized")
	}

	if !s.config.Redis.Enabled {
		return nil
	}

	redisStore, err := NewRedisStore(ctx, s.config.Redis)
	if err != nil {
		return fmt.Errorf("failed to start redis cache: %w", err)
	}
	log.Printf("Cache: Using redis at %s", s.config.Redis.Addr)

	s.mu.Lock()
	s.redis = redisStore
	s.mu.Unlock()
	return nil
}

// Stop implements core.Interface
func (s *Service) Stop() {
	s.mu.Lock()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Cache: Error closing redis client: %v", err)
		}
		s.redis = nil
	}
	s.mu.Unlock()

	if s.goCache != nil {
		s.goCache.Clear()
	}
}

// store returns the active backend
func (s *Service) store() Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.redis != nil {
		return s.redis
	}
	return s.goCache
}

// locker returns the active lock backend
func (s *Service) locker() Locker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.redis != nil {
		return s.redis
	}
	return s.localLocker
}

// Get implements Store
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.store().Get(ctx, key)
}

// Set implements Store
func (s *Service) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.store().Set(ctx, key, value, ttl)
}

// Add implements Store
func (s *Service) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.store().Add(ctx, key, value, ttl)
}

// Delete implements Store
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.store().Delete(ctx, key)
}

// TryLock implements Locker
func (s *Service) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return s.locker().TryLock(ctx, key, ttl)
}

// Extend implements Locker
func (s *Service) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.locker().Extend(ctx, key, ttl)
}

// WaitUnlock implements Locker
func (s *Service) WaitUnlock(ctx context.Context, key string) error {
	return s.locker().WaitUnlock(ctx, key)
}

// Stats returns statistics about the cache service
func (s *Service) Stats() ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ServiceStats{
		GoCacheItems: s.goCache.ItemCount(),
		Enabled:      s.config.GoCache.Enabled,
		Redis:        s.redis != nil,
	}
}

// ServiceStats represents cache service statistics
type ServiceStats struct {
	GoCacheItems int  // Number of items in go-cache
	Enabled      bool // Whether go-cache is enabled
	Redis        bool // Whether redis is the active backend
}

// Clear removes all items from the in-memory cache
func (s *Service) Clear() {
	if s.goCache != nil {
		s.goCache.Clear()
	}
}
