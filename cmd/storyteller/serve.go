package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"storyteller/internal/config"
	"storyteller/internal/server"
)

var (
	serveHost       string
	servePort       string
	serveWithEngine bool
	serveVerbose    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Storyteller server",
	Long: `Start the Storyteller HTTP server.

The server owns the SQLite store and the analysis job runner. With
--with-engine it also starts the llama-server container and stops it
again on shutdown (Ctrl+C or SIGTERM).

Examples:
  storyteller serve                  # Start on the configured port (default 9170)
  storyteller serve --port 3000      # Start on a custom port
  storyteller serve --with-engine    # Also manage the llama-server container`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level := slog.LevelInfo
		if serveVerbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))

		h, err := getHome()
		if err != nil {
			return err
		}

		cm, err := config.NewManager(configPath(h))
		if err != nil {
			return err
		}
		cm.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: cm,
			ManageEngine:  serveWithEngine,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveWithEngine, "with-engine", false, "Start and stop the llama-server container with the server")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
}
