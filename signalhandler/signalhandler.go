package signalhandler

import (
	"context"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupContext returns a context that is cancelled on SIGINT or SIGTERM so
// workers can stop between images instead of the process exiting mid-write.
func SetupContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	// Get the number of CPUs available
	numCPU := runtime.NumCPU()

	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
