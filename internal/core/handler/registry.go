// Package handler implements the typed-dispatch HandlerRegistry: job
// name resolves directly to the registered job.Handler, replacing a
// service-locator lookup with a map built once at startup.
package handler

import (
	"sync"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// Registry maps a job's Name to the Handler that executes it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]job.Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]job.Handler)}
}

// Register adds h under h.Name(). Registering a second handler under the
// same name replaces the first; callers wire the registry once at
// startup, so this is a build-time concern, not a runtime race.
func (r *Registry) Register(h job.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
}

// Resolve returns the Handler registered for name, or
// apperrors.CodeHandlerNotRegistered.
func (r *Registry) Resolve(name string) (job.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, apperrors.HandlerNotRegistered("no handler registered for job name " + name)
	}
	return h, nil
}

// Names returns every registered handler name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
