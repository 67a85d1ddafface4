// Package commands implements the tabflow command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/tabflow/internal/config"
	"github.com/vnykmshr/tabflow/internal/logger"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "0.1.0"

// NewRootCommand builds the tabflow command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "tabflow",
		Short:   "Staged tabular ETL pipelines",
		Version: Version,
		Long: `tabflow runs declarative ETL pipelines over tables. A pipeline reads a
source, applies an ordered list of stages, each a transform with optional
validation rules, and writes the result to a sink. Every stage is logged with
row counts, timing and memory change.`,
		Example: `  # Run a pipeline once
  $ tabflow run -c pipelines/orders.yaml

  # Run several pipelines concurrently
  $ tabflow run -c orders.yaml -c customers.yaml --workers 2

  # Profile a data file
  $ tabflow report data/orders.csv

  # Check a definition without touching any data
  $ tabflow check -c pipelines/orders.yaml

  # Run on the configured cron schedule and file changes
  $ tabflow watch -c pipelines/orders.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate("tabflow version {{.Version}}\n")

	root.AddCommand(
		newRunCommand(),
		newReportCommand(),
		newCheckCommand(),
		newWatchCommand(),
		newHistoryCommand(),
	)
	return root
}

// Execute runs the command tree with the given context.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads and validates one definition.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// setupLogging installs the logger described by cfg. Library logs go to the
// configured output, never to the command's stdout.
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	closer, err := logger.Setup(cfg)
	if err != nil {
		return nil, err
	}
	return closer, nil
}

func addConfigFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "config", "c", "", "pipeline definition file (yaml, json or toml)")
	_ = cmd.MarkFlagRequired("config")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
