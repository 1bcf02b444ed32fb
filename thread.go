package hostcore

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the numeric id of the calling goroutine, parsed from
// the runtime stack header ("goroutine N [running]:"). The runtime exposes no
// stable API for this; the id is used only to pin lifecycle-sensitive
// operations to the goroutine that invoked Run, never for scheduling.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
