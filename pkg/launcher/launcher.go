// Package launcher runs one mount worker per pair and releases all of them
// at the same instant to produce realistic burst load against the mount
// service.
package launcher

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/paramount/internal/logger"
	"github.com/marmos91/paramount/pkg/metrics"
	"github.com/marmos91/paramount/pkg/provision"
	"github.com/marmos91/paramount/pkg/system"
)

// Outcome is the result of one worker's mount attempt. Failure is carried
// as data: a non-zero exit never aborts the other workers.
type Outcome struct {
	// ID is the identifier of the pair this worker mounted.
	ID int

	// ExitCode is the mount utility's exit status (-1 when the utility
	// could not be invoked at all).
	ExitCode int

	// Duration is how long the mount invocation took.
	Duration time.Duration

	// Err is the underlying error for logging; nil on success.
	Err error
}

// OK reports whether the mount attempt succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Failures counts the outcomes that did not succeed.
func Failures(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Launcher coordinates the barrier-synchronized mount burst.
type Launcher struct {
	mounter system.Mounter
	metrics metrics.RunMetrics
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithMetrics attaches run metrics; nil disables collection.
func WithMetrics(m metrics.RunMetrics) Option {
	return func(l *Launcher) {
		l.metrics = m
	}
}

// New creates a Launcher that mounts through the given collaborator.
func New(mounter system.Mounter, opts ...Option) *Launcher {
	l := &Launcher{mounter: mounter}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run mounts every pair concurrently and returns one outcome per pair,
// indexed by pair order.
//
// Rendezvous protocol: each worker signals that it is ready and then blocks
// on the start channel. Only after every worker has signaled does Run close
// the channel, releasing all of them atomically, so no mount invocation
// begins before the last worker has arrived. Run then waits for every
// worker to complete; a hung mount call hangs the run unless the mounter
// itself carries a timeout.
func (l *Launcher) Run(ctx context.Context, pairs []provision.MountPair) []Outcome {
	outcomes := make([]Outcome, len(pairs))

	var ready, done sync.WaitGroup
	start := make(chan struct{})

	for i, pair := range pairs {
		ready.Add(1)
		done.Add(1)
		go func(slot int, p provision.MountPair) {
			defer done.Done()

			logger.Debug("mount worker waiting at barrier", "id", p.ID)
			ready.Done()
			<-start

			logger.Debug("mount worker released",
				"id", p.ID, "server_dir", p.ServerDir, "client_dir", p.ClientDir)

			began := time.Now()
			err := l.mounter.Mount(ctx, p.ServerDir, p.ClientDir)
			elapsed := time.Since(began)

			outcomes[slot] = Outcome{
				ID:       p.ID,
				ExitCode: system.ExitStatus(err),
				Duration: elapsed,
				Err:      err,
			}

			if l.metrics != nil {
				l.metrics.ObserveMount(elapsed, err == nil)
			}
			if err != nil {
				logger.Warn("mount failed", "id", p.ID, "error", err)
			}
		}(i, pair)
	}

	// The launching goroutine is the final barrier party: release happens
	// only once all workers have checked in.
	ready.Wait()
	logger.Debug("all workers at barrier, releasing", "workers", len(pairs))
	close(start)

	done.Wait()
	return outcomes
}
