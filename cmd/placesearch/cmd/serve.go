package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/placesearch/internal/config"
	"github.com/Aman-CERP/placesearch/internal/logging"
	"github.com/Aman-CERP/placesearch/internal/mcp"
	"github.com/Aman-CERP/placesearch/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve place search over HTTP or MCP",
		Long: `Serve place search until interrupted.

Transports:
  http   GET /search, GET /places/{id}, GET /healthz and GET /stats on
         --addr. Search results are GeoJSON FeatureCollections. Logs go to
         stderr and the log file.
  stdio  Model Context Protocol over stdin/stdout with the search_places,
         get_place and provider_status tools. Logs go to
         ~/.placesearch/logs/placesearch.log since stdout carries JSON-RPC.`,
		Example: `  placesearch serve --addr 0.0.0.0:8080
  placesearch serve --transport stdio`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if transport != "" {
				cfg.Server.Transport = transport
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Server.Validate(); err != nil {
				return fmt.Errorf("invalid server settings: %w", err)
			}
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport: http or stdio (default from config)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, cleanup, err := serveLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Cache.SweepInterval > 0 {
		a.cache.StartSweeper(ctx, cfg.Cache.SweepInterval)
	}

	switch cfg.Server.Transport {
	case config.TransportStdio:
		srv, err := mcp.NewServer(a.orchestrator, logger)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	default:
		srv := server.New(a.orchestrator,
			server.WithLogger(logger),
			server.WithCORSOrigins(cfg.Server.CORSOrigins),
			server.WithCacheStats(a.cache.Stats),
			server.WithMetrics(a.metrics.Snapshot))
		return srv.Run(ctx, cfg.Server.Addr)
	}
}

// serveLogger builds the long-running logger at the configured level. Both
// transports write the log file; stdio keeps stdout clean by logging to the
// file only. With --debug the
// root command's debug logger is kept.
func serveLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if debugMode {
		return slog.Default(), func() {}, nil
	}

	lc := logging.DefaultConfig()
	lc.Level = cfg.Logging.Level
	lc.FilePath = logging.DefaultLogPath()
	if cfg.Server.Transport == config.TransportStdio {
		lc = logging.StdioConfig(cfg.Logging.Level)
	}

	logger, cleanup, err := logging.New(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, cleanup, nil
}
