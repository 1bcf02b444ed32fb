package hostcore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExePath resolves and caches the absolute path of the running executable
// from the captured argument vector.
//
// Resolution policy: if argument 0 contains a path separator it is resolved
// relative to the current working directory; otherwise each directory in
// $PATH is searched for an executable match, failing if none is found. The
// result is canonicalized with symlinks resolved and cached, so later calls
// return the same value without re-resolving.
func (app *StdApplication) ExePath() (string, error) {
	app.exeMu.Lock()
	defer app.exeMu.Unlock()

	if app.exePath != "" {
		return app.exePath, nil
	}

	if len(app.args) == 0 || app.args[0] == "" {
		return "", fmt.Errorf("%w: empty argument vector", ErrExecutableNotFound)
	}
	argv0 := app.args[0]

	var candidate string
	if strings.ContainsRune(argv0, os.PathSeparator) {
		if filepath.IsAbs(argv0) {
			candidate = argv0
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("failed to determine working directory: %w", err)
			}
			candidate = filepath.Join(wd, argv0)
		}
	} else {
		found, err := searchPath(argv0)
		if err != nil {
			return "", err
		}
		candidate = found
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %q: %w", candidate, err)
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %q: %w", resolved, err)
	}

	app.exePath = abs
	return abs, nil
}

// searchPath looks for an executable file named name in each directory of the
// PATH environment variable.
func searchPath(name string) (string, error) {
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		full := filepath.Join(dir, name)
		if isExecutable(full) {
			return full, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found in PATH", ErrExecutableNotFound, name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
