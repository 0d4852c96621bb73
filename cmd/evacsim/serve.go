package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evacsim/internal/api"
	"evacsim/internal/job"
	"evacsim/internal/sim"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulation HTTP API",
	Long:  "serve accepts floor plan uploads, runs simulations as background jobs and answers status polls and websocket streams.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		defaults, err := cfg.SimOptions()
		if err != nil {
			return err
		}

		store, err := job.NewStore(cfg.Jobs.Store, cfg.Jobs.SQLitePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := job.CloseIfSupported(store); err != nil {
				logger.Error("store close failed", "err", err)
			}
		}()
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init %s store: %w", cfg.Jobs.Store, err)
		}

		opts := cfg.JobOptions()
		if cfg.Greptime.Endpoint != "" {
			gw, err := sim.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, logger)
			if err != nil {
				return fmt.Errorf("init GreptimeDB writer: %w", err)
			}
			opts.Sink = gw
			logger.Info("greptime sink enabled", "endpoint", cfg.Greptime.Endpoint, "database", cfg.Greptime.Database)
		}

		mgr := job.NewManager(store, opts, logger)
		if n, err := mgr.Recover(ctx); err != nil {
			return fmt.Errorf("recover jobs: %w", err)
		} else if n > 0 {
			logger.Warn("jobs interrupted by restart marked failed", "count", n)
		}
		mgr.Start(ctx)

		srv := api.NewServer(mgr, api.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			StreamInterval: cfg.Server.StreamInterval,
			Classifier:     cfg.NewClassifier(),
			Defaults:       defaults,
		}, logger)

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		if err := srv.Start(ctx, addr); err != nil {
			return err
		}

		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mgr.Drain(drainCtx); err != nil {
			logger.Warn("running jobs abandoned at shutdown", "err", err)
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides server.addr")
}
