// Package harness drives the full lifecycle of one stress run: provision
// the directory pairs, publish and activate the export table, release the
// mount burst, verify the live mount table, and tear everything down again.
//
// The controller owns teardown ordering and guarantees it executes exactly
// once no matter how the run ends - normal completion, provisioning
// failure, or an interrupt signal relayed by the commands layer.
package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/marmos91/paramount/internal/logger"
	"github.com/marmos91/paramount/pkg/config"
	"github.com/marmos91/paramount/pkg/exports"
	"github.com/marmos91/paramount/pkg/launcher"
	"github.com/marmos91/paramount/pkg/metrics"
	"github.com/marmos91/paramount/pkg/mounttable"
	"github.com/marmos91/paramount/pkg/provision"
	"github.com/marmos91/paramount/pkg/system"
	"github.com/marmos91/paramount/pkg/tempdir"
)

// ErrInterrupted is returned by the commands layer when a signal cut the
// run short after teardown completed.
var ErrInterrupted = errors.New("run interrupted by signal")

// Cleanup states. The transitions are one-way:
// armed -> firing -> consumed.
const (
	cleanupArmed int32 = iota
	cleanupFiring
	cleanupConsumed
)

// Collaborators are the external-utility seams of a run. Production wiring
// uses the exec-backed implementations from pkg/system; tests substitute
// fakes.
type Collaborators struct {
	Mounter   system.Mounter
	Unmounter system.Unmounter
	Exporter  system.Exporter
}

// Report summarizes a completed (or aborted) run for presentation.
type Report struct {
	// Pairs are the provisioned directory pairs, in identifier order.
	Pairs []provision.MountPair

	// Outcomes holds one entry per pair, aligned with Pairs. Empty when
	// the run aborted before the mount burst.
	Outcomes []launcher.Outcome

	// Failures is the number of mount attempts that exited non-zero.
	Failures int

	// Elapsed is the wall-clock duration of provision, burst and verify.
	Elapsed time.Duration
}

// Controller owns one run end to end.
type Controller struct {
	cfg       *config.Config
	collab    Collaborators
	temp      *tempdir.Dir
	metrics   metrics.RunMetrics
	tablePath string

	cleanupState atomic.Int32
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics attaches run metrics; nil disables collection.
func WithMetrics(m metrics.RunMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithMountTablePath overrides where the live mount table is read from.
// Tests point this at a fixture file.
func WithMountTablePath(path string) Option {
	return func(c *Controller) {
		c.tablePath = path
	}
}

// New creates a Controller and its scoped temporary directory. The
// directory exists as soon as New returns, so a caller that bails out
// early must still call Cleanup.
func New(cfg *config.Config, collab Collaborators, opts ...Option) (*Controller, error) {
	temp, err := tempdir.New(cfg.Exports.Tag)
	if err != nil {
		return nil, err
	}
	if cfg.Run.Preserve {
		temp.Preserve()
	}

	c := &Controller{
		cfg:       cfg,
		collab:    collab,
		temp:      temp,
		tablePath: mounttable.DefaultPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TempPath returns the run's temporary directory.
func (c *Controller) TempPath() string {
	return c.temp.Path()
}

// Run executes provision, export activation, the mount burst and mount
// table verification. Teardown is not part of Run; the caller invokes
// Cleanup afterwards (or from its signal path).
//
// The returned Report is non-nil whenever at least provisioning succeeded,
// even if the run as a whole failed.
func (c *Controller) Run(ctx context.Context) (*Report, error) {
	began := time.Now()

	if c.metrics != nil {
		c.metrics.SetWorkers(c.cfg.Run.Workers)
	}

	logger.Info("provisioning directory pairs",
		"workers", c.cfg.Run.Workers, "root", c.temp.Path())
	pairs, err := provision.Allocate(c.temp.Path(), c.cfg.Run.Workers)
	if err != nil {
		return nil, fmt.Errorf("provisioning failed: %w", err)
	}

	entries := exports.BuildEntries(pairs)
	if err := exports.WriteTable(c.cfg.Exports.Path, c.cfg.Exports.Tag, entries); err != nil {
		return &Report{Pairs: pairs}, err
	}

	logger.Info("activating export table",
		"path", c.cfg.Exports.Path, "entries", len(entries))
	if err := c.collab.Exporter.Reload(ctx); err != nil {
		// Nothing was mounted yet; abort before the burst.
		return &Report{Pairs: pairs}, fmt.Errorf("export activation failed: %w", err)
	}

	logger.Info("releasing mount burst", "workers", len(pairs))
	l := launcher.New(c.collab.Mounter, launcher.WithMetrics(c.metrics))
	outcomes := l.Run(ctx, pairs)
	failures := launcher.Failures(outcomes)

	verifyErr := c.verify(pairs)

	elapsed := time.Since(began)
	if c.metrics != nil {
		c.metrics.ObserveRun(elapsed)
	}

	report := &Report{
		Pairs:    pairs,
		Outcomes: outcomes,
		Failures: failures,
		Elapsed:  elapsed,
	}

	var runErr error
	if failures > 0 {
		runErr = fmt.Errorf("%d of %d mount attempts failed", failures, len(pairs))
	}
	if verifyErr != nil {
		runErr = errors.Join(runErr, fmt.Errorf("mount table verification failed: %w", verifyErr))
	}
	return report, runErr
}

// verify reads the live mount table and checks every NFS record against
// the run's expected device-to-mountpoint mapping.
func (c *Controller) verify(pairs []provision.MountPair) error {
	records, err := mounttable.ParseFile(c.tablePath)
	if err != nil {
		return err
	}
	expected := provision.ExpectedMap(c.cfg.Run.ServerAddress, pairs)
	return mounttable.Verify(records, expected)
}

// Cleanup tears the run down: unmount everything, retract the export
// table, and remove the temporary tree (unless preserved).
//
// Cleanup executes at most once per Controller. Concurrent and repeated
// calls return nil without doing anything, so the normal exit path and the
// signal path can both call it unconditionally.
func (c *Controller) Cleanup(ctx context.Context) error {
	if !c.cleanupState.CompareAndSwap(cleanupArmed, cleanupFiring) {
		return nil
	}
	defer c.cleanupState.Store(cleanupConsumed)

	logger.Info("tearing down")

	var errs []error

	// Unmount first: exports cannot be retracted cleanly while their
	// filesystems are still mounted. A failure here is logged and the
	// remaining steps still run.
	if err := c.collab.Unmounter.UnmountAllNFS(ctx); err != nil {
		logger.Warn("unmount during teardown failed", "error", err)
		errs = append(errs, err)
	}

	if err := exports.Remove(c.cfg.Exports.Path); err != nil {
		logger.Warn("export file removal failed", "error", err)
		errs = append(errs, err)
	}

	if err := c.collab.Exporter.Reload(ctx); err != nil {
		logger.Warn("export retraction failed", "error", err)
		errs = append(errs, err)
	}

	if c.temp.Preserved() {
		logger.Info("preserving temporary directory", "path", c.temp.Path())
	} else if err := c.temp.Remove(); err != nil {
		logger.Warn("temporary directory removal failed", "error", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
