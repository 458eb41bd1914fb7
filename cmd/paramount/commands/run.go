package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/paramount/internal/cli/output"
	"github.com/marmos91/paramount/internal/logger"
	"github.com/marmos91/paramount/pkg/config"
	"github.com/marmos91/paramount/pkg/harness"
	"github.com/marmos91/paramount/pkg/metrics"
	"github.com/marmos91/paramount/pkg/metrics/prometheus"
	"github.com/marmos91/paramount/pkg/system"
)

var (
	runWorkers      int
	runPreserve     bool
	runServerAddr   string
	runNFSVersion   int
	runMountOptions string
	runMountTimeout time.Duration
	runExportsFile  string
	runMetricsFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision, export and burst-mount N directory pairs",
	Long: `Run one stress cycle: create N export/mount directory pairs under a
temporary root, publish them in the exports file, activate them with
exportfs, then release N workers simultaneously so every mount hits the
service at the same instant.

After the burst the live mount table is verified against the expected
layout. Teardown (lazy unmount, export retraction, directory removal)
always runs, including on SIGINT/SIGTERM.

The command must run as root on a host with an NFS server.

Examples:
  # Default burst of 128 pairs
  paramount run

  # Smaller burst, keep the directory tree for inspection
  paramount run --workers 16 --preserve

  # NFSv4 with a mount timeout and metrics for the node_exporter
  # textfile collector
  paramount run --nfs-version 4 --mount-timeout 30s \
    --metrics-file /var/lib/node_exporter/paramount.prom

  # Environment variable overrides
  PARAMOUNT_LOGGING_LEVEL=DEBUG paramount run --workers 8`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVarP(&runWorkers, "workers", "t", config.DefaultWorkers,
		"Number of export/mount pairs to burst")
	runCmd.Flags().BoolVarP(&runPreserve, "preserve", "p", false,
		"Keep the temporary directory tree after the run")
	runCmd.Flags().StringVar(&runServerAddr, "server", config.DefaultServerAddress,
		"NFS server address to mount from")
	runCmd.Flags().IntVar(&runNFSVersion, "nfs-version", config.DefaultNFSVersion,
		"NFS protocol version (3 or 4)")
	runCmd.Flags().StringVar(&runMountOptions, "mount-options", config.DefaultMountOptions,
		"Extra mount options (nfsvers is added automatically)")
	runCmd.Flags().DurationVar(&runMountTimeout, "mount-timeout", config.DefaultMountTimeout,
		"Per-mount timeout (0 disables the bound)")
	runCmd.Flags().StringVar(&runExportsFile, "exports-file", config.DefaultExportsPath,
		"Export configuration file to publish")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "",
		"Write run metrics in Prometheus text format to this file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	var runMetrics metrics.RunMetrics
	if cfg.Metrics.Enabled || cfg.Metrics.Textfile != "" {
		metrics.InitRegistry()
		runMetrics = prometheus.NewRunMetrics()
	}

	collab := harness.Collaborators{
		Mounter: system.NewExecMounter(
			cfg.Run.ServerAddress,
			cfg.Run.NFSVersion,
			cfg.Run.MountOptions,
			cfg.Run.MountTimeout,
		),
		Unmounter: system.NewExecUnmounter(),
		Exporter:  system.NewExecExporter(),
	}

	ctrl, err := harness.New(cfg, collab, harness.WithMetrics(runMetrics))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	type runResult struct {
		report *harness.Report
		err    error
	}
	runDone := make(chan runResult, 1)
	go func() {
		report, err := ctrl.Run(ctx)
		runDone <- runResult{report, err}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		signal.Stop(sigChan)
		logger.Warn("signal received, tearing down", "signal", sig.String())
		cancel()

		// Teardown gets a fresh context: the run context is already
		// cancelled. The run goroutine is not awaited, a hung mount would
		// otherwise keep teardown from ever running.
		if err := ctrl.Cleanup(context.Background()); err != nil {
			logger.Error("teardown after signal failed", "error", err)
		}
		return harness.ErrInterrupted

	case res := <-runDone:
		cleanupErr := ctrl.Cleanup(context.Background())

		if res.report != nil {
			printSummary(res.report)
		}
		if cfg.Run.Preserve && res.report != nil {
			fmt.Printf("Temporary tree preserved at: %s\n", ctrl.TempPath())
		}

		var metricsErr error
		if cfg.Metrics.Textfile != "" {
			metricsErr = metrics.WriteTextfile(cfg.Metrics.Textfile)
			if metricsErr == nil {
				logger.Info("metrics written", "path", cfg.Metrics.Textfile)
			}
		}

		return errors.Join(res.err, cleanupErr, metricsErr)
	}
}

// loadRunConfig loads the configuration and overlays any run flags the user
// set explicitly, then re-validates the merged result.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Run.Workers = runWorkers
	}
	if flags.Changed("preserve") {
		cfg.Run.Preserve = runPreserve
	}
	if flags.Changed("server") {
		cfg.Run.ServerAddress = runServerAddr
	}
	if flags.Changed("nfs-version") {
		cfg.Run.NFSVersion = runNFSVersion
	}
	if flags.Changed("mount-options") {
		cfg.Run.MountOptions = runMountOptions
	}
	if flags.Changed("mount-timeout") {
		cfg.Run.MountTimeout = runMountTimeout
	}
	if flags.Changed("exports-file") {
		cfg.Exports.Path = runExportsFile
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = runMetricsFile
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// printSummary prints the aggregate result plus a table of failed mounts.
func printSummary(report *harness.Report) {
	total := len(report.Outcomes)
	fmt.Printf("Mounted %d/%d pairs in %s\n",
		total-report.Failures, total, report.Elapsed.Round(time.Millisecond))

	if report.Failures == 0 {
		return
	}

	table := output.NewTableData("ID", "EXIT", "DURATION", "ERROR")
	for _, o := range report.Outcomes {
		if o.OK() {
			continue
		}
		table.AddRow(
			fmt.Sprintf("%d", o.ID),
			fmt.Sprintf("%d", o.ExitCode),
			o.Duration.Round(time.Millisecond).String(),
			o.Err.Error(),
		)
	}
	_ = output.PrintTable(os.Stdout, table)
}
