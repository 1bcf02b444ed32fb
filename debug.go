package hostcore

import (
	"os"
	"strconv"
	"strings"
)

// DebugEnvVar enables debug mode when set to a nonzero integer. In debug mode
// the top-level fault boundary is disabled so faults propagate to an attached
// debugger.
const DebugEnvVar = "HOSTCORE_DEBUG"

func debugModeEnabled() bool {
	if v := os.Getenv(DebugEnvVar); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n != 0 {
			return true
		}
	}

	return tracerAttached()
}

// tracerAttached reports whether a debugger is tracing this process, read
// from the TracerPid field of /proc/self/status. Platforms without procfs
// simply report false.
func tracerAttached() bool {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if pid, ok := strings.CutPrefix(line, "TracerPid:"); ok {
			return strings.TrimSpace(pid) != "0"
		}
	}

	return false
}
