package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingService appends its lifecycle calls to a shared log
type recordingService struct {
	id         string
	log        *[]string
	startError error
}

func (s *recordingService) Start(ctx context.Context) error {
	*s.log = append(*s.log, "start "+s.id)
	return s.startError
}

func (s *recordingService) Stop() {
	*s.log = append(*s.log, "stop "+s.id)
}

func newRegistryWith(log *[]string, ids ...string) (*Registry, map[string]*recordingService) {
	registry := NewRegistry()
	services := make(map[string]*recordingService)
	for _, id := range ids {
		s := &recordingService{id: id, log: log}
		services[id] = s
		registry.Register(s)
	}
	return registry, services
}

func TestRegistry_StartAllInOrder(t *testing.T) {
	var calls []string
	registry, _ := newRegistryWith(&calls, "cache", "prices", "api")

	require.NoError(t, registry.StartAll(context.Background()))
	assert.Equal(t, []string{"start cache", "start prices", "start api"}, calls)
}

func TestRegistry_StopAllInReverseOrder(t *testing.T) {
	var calls []string
	registry, _ := newRegistryWith(&calls, "cache", "prices", "api")
	require.NoError(t, registry.StartAll(context.Background()))
	calls = nil

	registry.StopAll()
	assert.Equal(t, []string{"stop api", "stop prices", "stop cache"}, calls)

	calls = nil
	registry.StopAll()
	assert.Empty(t, calls, "second StopAll is a no-op")
}

func TestRegistry_StartFailureStopsStarted(t *testing.T) {
	var calls []string
	registry, services := newRegistryWith(&calls, "cache", "store", "api")
	startErr := errors.New("database unreachable")
	services["store"].startError = startErr

	err := registry.StartAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, startErr)
	assert.Equal(t, []string{"start cache", "start store", "stop cache"}, calls)
}

func TestRegistry_StopWithoutStart(t *testing.T) {
	var calls []string
	registry, _ := newRegistryWith(&calls, "cache")

	registry.StopAll()
	assert.Empty(t, calls)
}
