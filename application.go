package hostcore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Process exit codes returned by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// MainFunc is the application entry point invoked by Run. It receives the
// captured argument vector and returns the process exit code. A non-nil error
// is logged by the top-level fault boundary and mapped to ExitFailure.
type MainFunc func(args []string) (int, error)

// Application is the process-wide controller contract. The monitoring
// daemon's outer layers (CLI subcommands, persistence, configuration) consume
// this interface; the concrete implementation is StdApplication.
type Application interface {
	// Run executes the entry point and blocks until it returns.
	// Must be called exactly once per process.
	Run(args []string) int

	// Shutdown requests a graceful stop. Idempotent, any-goroutine.
	Shutdown()

	// RunEventLoop drives timers and event dispatch until shutdown.
	RunEventLoop()

	// IsMainThread reports whether the caller is the goroutine that
	// invoked Run.
	IsMainThread() bool

	// IsDebugging reports whether top-level fault containment is disabled.
	IsDebugging() bool

	// Args returns the captured command-line vector.
	Args() []string

	// ExePath resolves and caches the absolute executable path.
	ExePath() (string, error)

	// RegisterComponent registers and starts a component.
	RegisterComponent(ctx context.Context, component Component) error

	// UnregisterComponent removes and stops a component.
	UnregisterComponent(ctx context.Context, component Component) error

	// GetComponent looks up a running component by name.
	GetComponent(name string) (Component, bool)

	// LoadComponent loads a component from a shared library and starts it.
	LoadComponent(ctx context.Context, path string, cfg ConfigProvider) (Component, error)

	// AddComponentSearchDir appends a loader search directory.
	AddComponentSearchDir(dir string)

	// PostEvent queues an event for dispatch on the main thread.
	PostEvent(ev Event)

	// ReleaseLater holds a reference to obj until the top of the next
	// event-loop iteration.
	ReleaseLater(obj any)

	// Logger returns the application logger.
	Logger() Logger
}

// currentInstance holds the live application instance. At most one exists per
// process; Run enforces this with a compare-and-swap so a second construction
// fails loudly instead of racing.
var currentInstance atomic.Pointer[StdApplication]

// StdApplication is the singleton process controller: it captures arguments,
// enforces thread identity, runs the event loop, contains top-level faults,
// and orchestrates the registry, scheduler, queue and loader.
type StdApplication struct {
	main      MainFunc
	logger    Logger
	debugging bool

	shuttingDown  atomic.Bool
	mainGoroutine atomic.Uint64

	args    []string
	exeMu   sync.Mutex
	exePath string

	registry  *ComponentRegistry
	scheduler *TimerScheduler
	events    *EventQueue
	loader    *DynamicLoader

	heldMu sync.Mutex
	held   []any

	observerMu sync.RWMutex
	observers  map[string]*observerRegistration
}

// New creates the application controller. Debug mode is decided here, once:
// it is enabled when the HOSTCORE_DEBUG environment variable holds a nonzero
// integer or a debugger is detected to be attached (options may override).
func New(main MainFunc, opts ...ApplicationOption) (*StdApplication, error) {
	app := &StdApplication{
		main:      main,
		logger:    NewSlogLogger(nil),
		debugging: debugModeEnabled(),
		observers: make(map[string]*observerRegistration),
	}

	var pendingDirs []string
	for _, opt := range opts {
		if err := opt(app, &pendingDirs); err != nil {
			return nil, fmt.Errorf("failed to apply application option: %w", err)
		}
	}

	app.registry = NewComponentRegistry(app.logger)
	app.scheduler = NewTimerScheduler(app.logger)
	app.events = NewEventQueue()
	app.loader = NewDynamicLoader(app.registry, app.logger, app.IsMainThread)

	for _, dir := range pendingDirs {
		app.loader.AddComponentSearchDir(dir)
	}

	return app, nil
}

// GetInstance returns the live application instance, or nil when no instance
// exists or the process has entered the shutting-down phase. Late
// asynchronous callbacks, signal delivery included, therefore cannot
// resurrect a dead controller.
func GetInstance() *StdApplication {
	app := currentInstance.Load()
	if app == nil || app.shuttingDown.Load() {
		return nil
	}
	return app
}

// Run records the calling goroutine as the main thread, publishes the
// instance as the process singleton, installs signal handling, captures the
// argument vector and invokes the entry point.
//
// In non-debug mode any fault escaping the entry point is caught here, logged
// with its kind and message, and mapped to ExitFailure. In debug mode faults
// propagate uncaught so a debugger can inspect them at their origin; the
// singleton is released either way.
//
// Run must be called exactly once per process. Calling it while another
// instance is live is a programming error and panics.
func (app *StdApplication) Run(args []string) int {
	app.mainGoroutine.Store(goroutineID())

	if !currentInstance.CompareAndSwap(nil, app) {
		panic("hostcore: Run called while another application instance is live")
	}

	installSignalHandling()

	app.args = slices.Clone(args)

	app.emitEvent(context.Background(), EventTypeApplicationStarted, nil)

	defer app.teardown()

	return app.callMain()
}

// callMain invokes the entry point inside the top-level fault boundary.
func (app *StdApplication) callMain() (code int) {
	if app.debugging {
		// Release the singleton before the fault surfaces so late
		// callbacks cannot grab a dying instance while the debugger has
		// control.
		defer func() {
			if r := recover(); r != nil {
				app.releaseInstance()
				panic(r)
			}
		}()
	} else {
		defer func() {
			if r := recover(); r != nil {
				app.releaseInstance()
				app.logger.Error("Unhandled fault in application entry point",
					"kind", fmt.Sprintf("%T", r),
					"message", fmt.Sprint(r))
				app.emitEvent(context.Background(), EventTypeApplicationFailed, map[string]any{
					"kind":    fmt.Sprintf("%T", r),
					"message": fmt.Sprint(r),
				})
				code = ExitFailure
			}
		}()
	}

	result, err := app.main(app.Args())
	if err != nil {
		app.logger.Error("Application entry point failed", "error", err)
		app.emitEvent(context.Background(), EventTypeApplicationFailed, map[string]any{
			"message": err.Error(),
		})
		return ExitFailure
	}

	return result
}

// teardown moves the application into its terminal phase: the shutdown flag
// is set, every registered component is stopped in registration order, and
// the singleton reference is released.
func (app *StdApplication) teardown() {
	app.shuttingDown.Store(true)

	if err := app.registry.StopAll(context.Background()); err != nil {
		app.logger.Error("Error stopping components during teardown", "error", err)
	}

	app.emitEvent(context.Background(), EventTypeApplicationStopped, nil)
	app.releaseInstance()
}

func (app *StdApplication) releaseInstance() {
	currentInstance.CompareAndSwap(app, nil)
}

// Shutdown signals the application to stop during the next event-loop
// iteration boundary. It is idempotent, callable from any goroutine, and has
// no immediate effect beyond being observed by the loop and by GetInstance.
func (app *StdApplication) Shutdown() {
	if app.shuttingDown.CompareAndSwap(false, true) {
		app.logger.Info("Shutdown requested")
		app.events.Wake()
	}
}

// IsShuttingDown reports whether the shutdown flag has been set.
func (app *StdApplication) IsShuttingDown() bool {
	return app.shuttingDown.Load()
}

// IsMainThread compares the calling goroutine to the one recorded by Run.
// Lifecycle-sensitive operations, dynamic component loading above all, are
// restricted to the main thread.
func (app *StdApplication) IsMainThread() bool {
	return goroutineID() == app.mainGoroutine.Load()
}

// IsDebugging reports whether debug mode was enabled at construction.
func (app *StdApplication) IsDebugging() bool {
	return app.debugging
}

// Args returns the immutable argument vector captured by Run, including
// argument 0.
func (app *StdApplication) Args() []string {
	return slices.Clone(app.args)
}

// Logger returns the application logger.
func (app *StdApplication) Logger() Logger {
	return app.logger
}

// Scheduler returns the application's timer scheduler.
func (app *StdApplication) Scheduler() *TimerScheduler {
	return app.scheduler
}

// Events returns the application's event queue.
func (app *StdApplication) Events() *EventQueue {
	return app.events
}

// PostEvent queues an event for dispatch on the next event-loop iteration.
// Safe to call from any goroutine.
func (app *StdApplication) PostEvent(ev Event) {
	app.events.Post(ev)
}

// ReleaseLater holds a reference to obj until the top of the next event-loop
// iteration. Components use this to defer destruction of objects that may
// still be referenced by events queued in the current batch.
func (app *StdApplication) ReleaseLater(obj any) {
	app.heldMu.Lock()
	app.held = append(app.held, obj)
	app.heldMu.Unlock()
}

func (app *StdApplication) clearHeldObjects() {
	app.heldMu.Lock()
	app.held = nil
	app.heldMu.Unlock()
}

// RunEventLoop repeatedly fires due timers, waits on the event queue until
// the next timer deadline, and dispatches delivered events in enqueue order.
// The loop exits at the next iteration boundary after the shutdown flag is
// set; the event batch already being dispatched still completes.
func (app *StdApplication) RunEventLoop() {
	for !app.shuttingDown.Load() {
		app.clearHeldObjects()

		wait := app.scheduler.ProcessTimers(time.Now())

		if app.shuttingDown.Load() {
			break
		}

		delivered := app.events.Wait(time.Now().Add(wait))

		for _, ev := range delivered {
			if ev.Deliver != nil {
				ev.Deliver()
			}
		}
	}

	app.logger.Debug("Event loop exited")
}

// RegisterComponent registers the component and starts it. See
// ComponentRegistry.Register for the replacement semantics of duplicate
// names.
func (app *StdApplication) RegisterComponent(ctx context.Context, component Component) error {
	if err := app.registry.Register(ctx, component); err != nil {
		return err
	}

	app.emitEvent(ctx, EventTypeComponentRegistered, map[string]any{
		"component": component.Name(),
	})
	return nil
}

// UnregisterComponent removes the component's registration and stops it.
func (app *StdApplication) UnregisterComponent(ctx context.Context, component Component) error {
	err := app.registry.Unregister(ctx, component)

	app.emitEvent(ctx, EventTypeComponentUnregistered, map[string]any{
		"component": component.Name(),
	})
	return err
}

// GetComponent returns the running component registered under name, if any.
func (app *StdApplication) GetComponent(name string) (Component, bool) {
	return app.registry.Get(name)
}

// LoadComponent loads a component from the shared library at path, attaches
// the configuration, registers and starts it. Main-thread only.
func (app *StdApplication) LoadComponent(ctx context.Context, path string, cfg ConfigProvider) (Component, error) {
	component, err := app.loader.LoadComponent(ctx, path, cfg)
	if err != nil {
		return component, err
	}

	app.emitEvent(ctx, EventTypeComponentLoaded, map[string]any{
		"component": component.Name(),
		"path":      path,
	})
	return component, nil
}

// AddComponentSearchDir appends a directory to the loader's search path.
func (app *StdApplication) AddComponentSearchDir(dir string) {
	app.loader.AddComponentSearchDir(dir)
}
