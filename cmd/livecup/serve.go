package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brewbean/livecup/internal/observability"
	"github.com/brewbean/livecup/internal/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the room relay hub",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "Listen address (default from LIVECUP_LISTEN_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, "hub", cmd.OutOrStdout()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
	}

	opts := server.Options{
		Addr:           cfg.ListenAddr,
		Logger:         log.Default(),
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.MetricsEnabled {
		metrics := observability.NewMetrics()
		opts.Metrics = metrics.Handler()
		opts.Participants = metrics
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.NewServer(opts).ListenAndServe(ctx)
}
