package hostcore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"
)

// FactorySymbol is the exported symbol a loadable shared library must provide.
// It must be a package-level function with the signature func() Component.
const FactorySymbol = "NewComponent"

// componentLibrary is an opened shared library that can resolve exported
// symbols. The production implementation wraps the Go plugin package; tests
// substitute fakes so loader semantics stay testable without building real
// shared objects.
type componentLibrary interface {
	Lookup(symbol string) (any, error)
}

// libraryOpener resolves a path to an opened component library.
type libraryOpener interface {
	Open(path string) (componentLibrary, error)
}

type pluginLibrary struct {
	p *plugin.Plugin
}

func (l pluginLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

type pluginOpener struct{}

func (pluginOpener) Open(path string) (componentLibrary, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginLibrary{p: p}, nil
}

// DynamicLoader resolves shared-library handles, validates the exported
// factory symbol, and registers the produced components. Loading is a
// main-thread-only operation.
//
// Opened library handles are retained for the remainder of the process and
// never released: components hold function values and dispatch tables whose
// code lives in the library for as long as any reference to the component
// survives. The Go plugin package cannot unload libraries, which makes this
// lifetime policy explicit rather than conventional.
type DynamicLoader struct {
	mu         sync.Mutex
	opener     libraryOpener
	registry   *ComponentRegistry
	logger     Logger
	mainThread func() bool
	searchDirs []string
	handles    map[string]componentLibrary
}

// NewDynamicLoader creates a loader backed by the Go plugin package that
// registers loaded components with the given registry. mainThread reports
// whether the calling goroutine is the application's main thread.
func NewDynamicLoader(registry *ComponentRegistry, logger Logger, mainThread func() bool) *DynamicLoader {
	return &DynamicLoader{
		opener:     pluginOpener{},
		registry:   registry,
		logger:     logger,
		mainThread: mainThread,
		handles:    make(map[string]componentLibrary),
	}
}

// AddComponentSearchDir appends a directory to the search path used when
// resolving bare library names.
func (l *DynamicLoader) AddComponentSearchDir(dir string) {
	l.mu.Lock()
	l.searchDirs = append(l.searchDirs, dir)
	l.mu.Unlock()

	l.logger.Debug("Added component search directory", "dir", dir)
}

// resolvePath maps a bare library name onto the search directories. Paths
// that already carry a directory component are used as given.
func (l *DynamicLoader) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) || strings.ContainsRune(path, os.PathSeparator) {
		return path, nil
	}

	l.mu.Lock()
	dirs := make([]string, len(l.searchDirs))
	copy(dirs, l.searchDirs)
	l.mu.Unlock()

	if len(dirs) == 0 {
		return path, nil
	}

	candidates := []string{path}
	if filepath.Ext(path) == "" {
		candidates = append(candidates, path+".so")
	}

	for _, dir := range dirs {
		for _, name := range candidates {
			full := filepath.Join(dir, name)
			if _, err := os.Stat(full); err == nil {
				return full, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
}

// LoadComponent opens the shared library at path, invokes its exported
// factory to obtain a component, attaches the given configuration and
// registers the component (which also starts it).
//
// Must be called on the main thread; violating this is a programming error
// and panics. Loader failures are recoverable: the application may choose to
// continue without the component.
func (l *DynamicLoader) LoadComponent(ctx context.Context, path string, cfg ConfigProvider) (Component, error) {
	if !l.mainThread() {
		panic("hostcore: LoadComponent called off the main thread")
	}

	l.logger.Info("Loading component", "path", path)

	resolved, err := l.resolvePath(path)
	if err != nil {
		return nil, err
	}

	lib, err := l.opener.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrLibraryOpen, resolved, err)
	}

	sym, err := lib.Lookup(FactorySymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrComponentFactoryMissing, resolved)
	}

	var factory ComponentFactory
	switch f := sym.(type) {
	case func() Component:
		factory = f
	case ComponentFactory:
		factory = f
	default:
		return nil, fmt.Errorf("%w: %s has %T", ErrComponentFactoryInvalid, resolved, sym)
	}

	component := factory()
	if component == nil {
		return nil, fmt.Errorf("%w: factory in %s returned nil", ErrComponentNil, resolved)
	}

	if cfg != nil {
		if aware, ok := component.(ConfigAware); ok {
			aware.SetConfig(cfg)
		}
	}

	// The handle stays mapped for the process lifetime.
	l.mu.Lock()
	l.handles[resolved] = lib
	l.mu.Unlock()

	if err := l.registry.Register(ctx, component); err != nil {
		return component, err
	}

	return component, nil
}
