package hostcore

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandling wires OS signals into the shutdown flag.
//
// The first interrupt requests a graceful shutdown through the live
// application instance and then restores the default disposition, so a second
// interrupt terminates the process immediately instead of being swallowed.
// SIGPIPE is ignored entirely so that I/O failures surface as ordinary error
// returns.
//
// Go delivers signals over a channel rather than in signal-handler context,
// so the only state touched here is the atomic shutdown flag behind
// Shutdown() and the queue wake channel.
func installSignalHandling() {
	signal.Ignore(syscall.SIGPIPE)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		<-sigChan
		signal.Reset(os.Interrupt)
		signal.Stop(sigChan)

		if inst := GetInstance(); inst != nil {
			inst.Shutdown()
		}
	}()
}
