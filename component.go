// Package hostcore provides the process-lifecycle core of a monitoring daemon.
// It hosts named components loaded from shared libraries at runtime, drives
// them from a single main-thread event loop with periodic timers, and
// coordinates clean shutdown across OS signals and unhandled faults.
//
// The core does not contain any monitoring domain logic. Components package
// that logic and implement the Component interface; the application loads,
// starts, and stops them and hands them an event queue and timer scheduler
// shared by the whole process.
//
// Basic usage:
//
//	app, err := hostcore.New(func(args []string) (int, error) {
//		inst := hostcore.GetInstance()
//		if _, err := inst.LoadComponent(context.Background(), "checker.so", nil); err != nil {
//			return hostcore.ExitFailure, err
//		}
//		inst.RunEventLoop()
//		return hostcore.ExitSuccess, nil
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.Exit(app.Run(os.Args))
package hostcore

import "context"

// Component represents a named, independently startable and stoppable unit of
// behavior hosted by the application. Components are usually produced by a
// factory exported from a shared library (see DynamicLoader), but any value
// implementing this interface can be registered directly.
//
// A component moves through the lifecycle loaded -> started -> stopped. The
// registry starts a component when it is registered and stops it when it is
// unregistered or when the application tears down.
type Component interface {
	// Name returns the unique identifier for this component.
	// The name is used as the registry key; registering a second component
	// under the same name replaces the first in the lookup map.
	Name() string

	// Start begins the component's runtime operations. It is called once,
	// on the main thread, when the component is registered. Long-running
	// work belongs in goroutines owned by the component; Start itself
	// should return promptly.
	Start(ctx context.Context) error

	// Stop performs graceful shutdown of the component. It is called when
	// the component is unregistered or during application teardown. Stop
	// must be safe to call even if the component was never looked up
	// again after registration.
	Stop(ctx context.Context) error
}

// ConfigAware is an optional interface for components that carry a
// configuration object. The dynamic loader attaches the caller-supplied
// provider before the component is registered and started.
type ConfigAware interface {
	// SetConfig attaches the component's configuration provider.
	SetConfig(cp ConfigProvider)

	// Config returns the previously attached provider, or nil.
	Config() ConfigProvider
}

// ComponentFactory is the signature of the factory symbol a loadable shared
// library must export under the name "NewComponent". The factory takes no
// arguments and returns a fresh component instance; configuration is attached
// separately by the loader.
type ComponentFactory func() Component
