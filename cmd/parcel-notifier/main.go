package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ParcelTrack/config"
	"github.com/BearBump/ParcelTrack/internal/logging"
)

func main() {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		slog.Error("configPath env var is required")
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("failed to parse config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = runParcelNotifier(ctx, cfg, defaultNotifierFactories(), nil)
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("parcel notifier stopped", "err", err)
		os.Exit(1)
	}
}
