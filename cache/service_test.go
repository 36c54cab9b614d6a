package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_InMemoryBackend(t *testing.T) {
	ctx := context.Background()
	service := NewService(DefaultCacheConfig())
	require.NoError(t, service.Start(ctx))
	defer service.Stop()

	require.NoError(t, service.Set(ctx, "key1", []byte("value1"), time.Minute))

	value, found, err := service.Get(ctx, "key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value1"), value)

	added, err := service.Add(ctx, "key1", []byte("other"), time.Minute)
	assert.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, service.Delete(ctx, "key1"))
	_, found, _ = service.Get(ctx, "key1")
	assert.False(t, found)

	stats := service.Stats()
	assert.True(t, stats.Enabled)
	assert.False(t, stats.Redis)
}

func TestService_Locks(t *testing.T) {
	ctx := context.Background()
	service := NewService(DefaultCacheConfig())
	require.NoError(t, service.Start(ctx))
	defer service.Stop()

	release, acquired, err := service.TryLock(ctx, "prices", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, _ = service.TryLock(ctx, "prices", time.Second)
	assert.False(t, acquired)

	// Lock records are not visible as data
	_, found, _ := service.Get(ctx, LockKey("prices"))
	assert.False(t, found)

	release()
	assert.NoError(t, service.WaitUnlock(ctx, "prices"))
}

func TestService_DisabledGoCacheStillWorks(t *testing.T) {
	ctx := context.Background()
	config := DefaultCacheConfig()
	config.GoCache.Enabled = false

	service := NewService(config)
	require.NoError(t, service.Start(ctx))

	require.NoError(t, service.Set(ctx, "key", []byte("value"), time.Minute))
	_, found, _ := service.Get(ctx, "key")
	assert.True(t, found)
	assert.False(t, service.Stats().Enabled)
}

func TestService_StartFailsWhenRedisUnreachable(t *testing.T) {
	config := DefaultCacheConfig()
	config.Redis.Enabled = true
	config.Redis.Addr = "127.0.0.1:1"
	config.Redis.DialTimeout = 200 * time.Millisecond

	service := NewService(config)
	err := service.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, service.Stats().Redis)
}

func TestService_StopClears(t *testing.T) {
	ctx := context.Background()
	service := NewService(DefaultCacheConfig())
	require.NoError(t, service.Start(ctx))

	require.NoError(t, service.Set(ctx, "key", []byte("value"), 0))
	assert.Equal(t, 1, service.Stats().GoCacheItems)

	service.Stop()
	assert.Equal(t, 0, service.Stats().GoCacheItems)
}
