package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/roomwatch/internal/logging"
	"github.com/ppiankov/roomwatch/internal/metrics"
	"github.com/ppiankov/roomwatch/internal/pipeline"
)

var (
	runOnce     bool
	runDryRun   bool
	runInterval time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the configured searches and send notifications",
	Long: `Run polls every configured search area, sends a message for each new
posting that passes the conditions, then sleeps for the configured interval
and repeats. A failing cycle is logged and retried on the next tick.

Example:
  roomwatch run
  roomwatch run --once --dry-run
  roomwatch run --interval 5m --config ./roomwatch.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print notifications to stdout instead of sending them")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "override the poll interval")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runInterval > 0 {
		cfg.Interval = runInterval
	}
	logger := logging.Logger

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, runDryRun, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("closing store", "error", cerr)
		}
	}()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, a.registry, logger); err != nil {
				logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	if err := pipeline.Loop(ctx, a.pipeline, cfg.Interval, runOnce, logger); err != nil {
		if runOnce && ctx.Err() == nil {
			return fmt.Errorf("cycle failed: %w", err)
		}
	}
	return nil
}

// contextOrBackground keeps commands usable when invoked without Execute
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
