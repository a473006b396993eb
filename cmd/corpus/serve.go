package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/home"
	"github.com/corpus-kb/corpus/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Corpus server",
	Long: `Start the Corpus HTTP server.

This opens the database, starts the job dispatcher, and watches the
inbox directory for dropped documents. External workers poll the jobs
API for pending work and report results back with a PATCH.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes the database)
  - /ws     - Websocket pipeline notifications

Examples:
  corpus serve                    # Start on default port 8080
  corpus serve --port 3000        # Start on custom port
  corpus serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		path := cfgFile
		if path == "" && h.ConfigExists() {
			path = h.ConfigPath()
		}
		mgr, err := config.NewManager(path)
		if err != nil {
			return err
		}
		mgr.WatchConfig()
		cfg := mgr.Get()

		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != "" {
			cfg.Server.Port = servePort
		}

		logger, closeLog := config.SetupLogger(h.LogFilePath(), slog.LevelInfo)
		defer closeLog()
		slog.SetDefault(logger)

		srv, err := server.New(cfg, h, logger)
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
