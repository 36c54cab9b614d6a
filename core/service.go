package core

import (
	"context"
	"fmt"
	"log"
)

// Interface defines a common interface for all services
type Interface interface {
	Start(ctx context.Context) error
	Stop()
}

// Registry starts services in registration order and stops them in reverse
type Registry struct {
	services []Interface
	started  int
}

// NewRegistry creates a new core registry
func NewRegistry() *Registry {
	return &Registry{
		services: make([]Interface, 0),
	}
}

// Register adds a service to the registry
func (sr *Registry) Register(service Interface) {
	sr.services = append(sr.services, service)
}

// StartAll starts all registered services. When one fails, the services
// started before it are stopped again.
func (sr *Registry) StartAll(ctx context.Context) error {
	for i, service := range sr.services {
		if err := service.Start(ctx); err != nil {
			log.Printf("Registry: Service %T failed to start, stopping %d started services", service, i)
			sr.StopAll()
			return fmt.Errorf("failed to start %T: %w", service, err)
		}
		sr.started = i + 1
	}
	return nil
}

// StopAll stops the started services in reverse order
func (sr *Registry) StopAll() {
	for i := sr.started - 1; i >= 0; i-- {
		sr.services[i].Stop()
	}
	sr.started = 0
}
