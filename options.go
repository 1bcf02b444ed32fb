package hostcore

// ApplicationOption configures an application during New. Options run before
// the registry, scheduler, queue and loader are constructed; directory
// options are collected into pendingDirs and applied once the loader exists.
type ApplicationOption func(app *StdApplication, pendingDirs *[]string) error

// WithLogger replaces the default slog-backed logger.
func WithLogger(logger Logger) ApplicationOption {
	return func(app *StdApplication, _ *[]string) error {
		if logger != nil {
			app.logger = logger
		}
		return nil
	}
}

// WithDebugMode overrides the environment-derived debug mode. Debug mode
// disables the top-level fault boundary so faults propagate to a debugger.
func WithDebugMode(enabled bool) ApplicationOption {
	return func(app *StdApplication, _ *[]string) error {
		app.debugging = enabled
		return nil
	}
}

// WithComponentSearchDirs appends directories to the loader's search path for
// bare component library names.
func WithComponentSearchDirs(dirs ...string) ApplicationOption {
	return func(_ *StdApplication, pendingDirs *[]string) error {
		*pendingDirs = append(*pendingDirs, dirs...)
		return nil
	}
}

// WithObserver registers an observer for application lifecycle events,
// optionally filtered by event type.
func WithObserver(observer Observer, eventTypes ...string) ApplicationOption {
	return func(app *StdApplication, _ *[]string) error {
		return app.RegisterObserver(observer, eventTypes...)
	}
}
