package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/feedback/internal/config"
	"github.com/vango-dev/feedback/internal/demo"
	"github.com/vango-dev/feedback/internal/logging"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		Long: `Run the demo server: a signup form backed by a JSON API, with
notifications pushed to the browser over WebSocket.

Configuration comes from FEEDBACK_ environment variables and an
optional .env file, for example:

  FEEDBACK_SERVER__ADDR=:9000
  FEEDBACK_TOAST__EXIT_DELAY=300ms
  FEEDBACK_LOG__FORMAT=json

Examples:
  feedback serve
  feedback serve --addr=127.0.0.1:8081`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := demo.New(cfg, demo.WithLogger(logger))
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from FEEDBACK_SERVER__ADDR)")

	return cmd
}
