// Package cmd provides the CLI commands for placesearch.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/placesearch/internal/config"
	"github.com/Aman-CERP/placesearch/internal/logging"
	"github.com/Aman-CERP/placesearch/pkg/version"
)

// Global flags
var (
	debugMode      bool
	projectDir     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the placesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placesearch",
		Short: "Federated place search across a local index, Mapbox and Google Places",
		Long: `placesearch answers free-text place queries by asking several providers
at once, merging and deduplicating their answers, and caching the result.

Providers:
  whoosh         local full-text index built with 'placesearch index'
  mapbox         Mapbox Search Box API (MAPBOX_ACCESS_TOKEN)
  google_places  Google Places API (GOOGLE_PLACES_API_KEY)

A failing provider never fails the search as long as another one answers.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("placesearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.placesearch/logs/")
	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Directory holding .placesearch.yaml and .env")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newPlaceCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the CLI logger. Commands log warnings to stderr
// unless --debug is set, which adds debug output and the log file.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.Level = "warn"
	if debugMode {
		cfg = logging.DebugConfig()
	}

	cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup

	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig loads the effective configuration for --dir.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command and prints any error.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), formatError(err))
	}
	return err
}
