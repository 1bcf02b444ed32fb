package hostcore

import (
	"errors"
)

// Application errors
var (
	// Loader errors
	ErrLibraryOpen             = errors.New("could not open component library")
	ErrComponentFactoryMissing = errors.New("loadable library does not expose the required NewComponent factory")
	ErrComponentFactoryInvalid = errors.New("NewComponent symbol does not have the expected factory signature")
	ErrLibraryNotFound         = errors.New("component library not found in search directories")

	// Executable path resolution errors
	ErrExecutableNotFound = errors.New("could not determine executable path")

	// Registry errors
	ErrComponentNil = errors.New("component is nil")

	// Timer errors
	ErrTimerNil          = errors.New("timer is nil")
	ErrInvalidCronSpec   = errors.New("invalid cron expression")
	ErrNonPositivePeriod = errors.New("timer period must be positive")

	// Config errors
	ErrConfigNil               = errors.New("config is nil")
	ErrUnsupportedConfigFormat = errors.New("unsupported config file format")
	ErrConfigKeyNotFound       = errors.New("config key not found")

	// Observer errors
	ErrObserverNil       = errors.New("observer is nil")
	ErrInvalidCloudEvent = errors.New("invalid cloud event")

	// Watcher errors
	ErrNoWatchDirs = errors.New("no directories to watch")
)
