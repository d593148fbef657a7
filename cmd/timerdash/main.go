package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"timerdash/internal/config"
	"timerdash/internal/countdown"
	"timerdash/internal/events"
	appLog "timerdash/internal/log"
	"timerdash/internal/store"
)

const version = "0.1.0"

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:           "timerdash",
		Short:         "Countdown and live-status engine for one-off and recurring events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to config file")

	serveCmd := newServeCmd()
	rootCmd.AddCommand(serveCmd, newOnceCmd())
	// Running without a subcommand serves.
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles what both commands need.
type app struct {
	cfg   *config.Config
	store store.Store
	svc   *events.Service
}

// setup loads config, configures logging and opens the store.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}

	if cfg.LogJSON {
		appLog.SetOutput(os.Stderr, true)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	loc := cfg.Location()
	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"refresh", cfg.RefreshCron,
		"storage_backend", cfg.Storage.Backend,
		"basic_auth", cfg.BasicAuth != nil,
		"cors_origins", len(cfg.CORSOrigins),
	)

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		appLog.Error("failed to open store", err, "backend", cfg.Storage.Backend)
		return nil, err
	}

	return &app{
		cfg:   cfg,
		store: st,
		svc:   events.NewService(st, countdown.NewEvaluator(loc)),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		appLog.Error("failed to close store", err)
	}
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
