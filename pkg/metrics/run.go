package metrics

import (
	"time"
)

// RunMetrics provides observability for one harness run.
//
// Implementations must be safe for concurrent use: every mount worker
// records its own observation. The interface is optional - a nil value
// disables collection with zero overhead.
type RunMetrics interface {
	// SetWorkers records the requested concurrency of the run.
	SetWorkers(n int)

	// ObserveMount records one completed mount attempt: how long the mount
	// utility ran and whether it exited zero.
	ObserveMount(duration time.Duration, success bool)

	// ObserveRun records the wall-clock duration of the whole
	// provision-mount-verify sequence.
	ObserveRun(duration time.Duration)
}
