// Package verbose gates the protocol-error trace controller.demuxControl
// emits when it drops a datagram it can't recognize, so that path can stay
// noisy for debugging without flooding normal operation.
package verbose

import (
	"log"
	"sync/atomic"
)

var (
	on         atomic.Bool
	suppressed atomic.Uint64
)

// SetEnabled toggles whether Printf actually writes anything.
func SetEnabled(enable bool) {
	on.Store(enable)
}

// IsEnabled reports the current toggle state.
func IsEnabled() bool {
	return on.Load()
}

// Printf logs a trace line when enabled; otherwise it counts the call
// toward Suppressed and discards it.
func Printf(format string, args ...interface{}) {
	if !on.Load() {
		suppressed.Add(1)
		return
	}
	log.Printf("[VERBOSE] "+format, args...)
}

// Suppressed returns how many Printf calls were dropped while disabled,
// since process start or the last call to ResetSuppressed.
func Suppressed() uint64 {
	return suppressed.Load()
}

// ResetSuppressed zeroes the suppressed-call counter.
func ResetSuppressed() {
	suppressed.Store(0)
}
