package hostcore

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// ComponentRegistry owns the mapping from component name to running component
// instance and enforces the start/stop lifecycle. Registration and removal are
// expected to happen on the main thread, but the registry is mutex-guarded so
// that lookups from component goroutines remain safe.
type ComponentRegistry struct {
	mu         sync.RWMutex
	components map[string]Component
	order      []string
	logger     Logger
}

// NewComponentRegistry creates an empty component registry.
func NewComponentRegistry(logger Logger) *ComponentRegistry {
	return &ComponentRegistry{
		components: make(map[string]Component),
		logger:     logger,
	}
}

// Register inserts the component under its name and starts it.
//
// Registering a second component under an already-used name silently replaces
// the first in the lookup map without stopping it; the replaced component is
// only ever stopped by an explicit Unregister or by application teardown
// before its replacement took its slot. This mirrors the historical loader
// semantics and is locked in by tests.
func (r *ComponentRegistry) Register(ctx context.Context, component Component) error {
	if component == nil {
		return ErrComponentNil
	}

	name := component.Name()

	r.mu.Lock()
	if _, exists := r.components[name]; !exists {
		r.order = append(r.order, name)
	}
	r.components[name] = component
	r.mu.Unlock()

	r.logger.Debug("Registered component", "component", name)

	if err := component.Start(ctx); err != nil {
		return fmt.Errorf("failed to start component %s: %w", name, err)
	}

	return nil
}

// Unregister removes the component's name mapping if present and stops the
// component. Stopping is unconditional: it happens even when the name was
// never registered or the mapping already points at a different instance.
func (r *ComponentRegistry) Unregister(ctx context.Context, component Component) error {
	if component == nil {
		return ErrComponentNil
	}

	name := component.Name()
	r.logger.Info("Unloading component", "component", name)

	r.mu.Lock()
	if _, exists := r.components[name]; exists {
		delete(r.components, name)
		if i := slices.Index(r.order, name); i >= 0 {
			r.order = slices.Delete(r.order, i, i+1)
		}
	}
	r.mu.Unlock()

	if err := component.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop component %s: %w", name, err)
	}

	return nil
}

// Get returns the component registered under name, if any. Pure lookup, no
// side effects.
func (r *ComponentRegistry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	component, ok := r.components[name]
	return component, ok
}

// Names returns the registered component names in registration order.
func (r *ComponentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// Len returns the number of registered components.
func (r *ComponentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.components)
}

// StopAll stops every registered component in registration order and clears
// the registry. Used during application teardown. Stop errors are logged and
// the last one is returned so teardown always reaches every component.
func (r *ComponentRegistry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	order := r.order
	components := r.components
	r.order = nil
	r.components = make(map[string]Component)
	r.mu.Unlock()

	var lastErr error
	for _, name := range order {
		component := components[name]
		r.logger.Info("Stopping component", "component", name)
		if err := component.Stop(ctx); err != nil {
			r.logger.Error("Error stopping component", "component", name, "error", err)
			lastErr = err
		}
	}

	return lastErr
}
