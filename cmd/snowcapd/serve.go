// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snowcap.dev/snowcap/internal/api"
	"snowcap.dev/snowcap/internal/history"
	"snowcap.dev/snowcap/internal/metrics"
	"snowcap.dev/snowcap/internal/notification"
)

func serve(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":7777", "address to listen on")
	dbPath := fs.String("db", "", "sqlite run-history database path (empty disables persistence)")
	rateLimit := fs.Float64("rate-limit", 5, "sustained job submissions per second")
	rateBurst := fs.Int("rate-burst", 10, "job submission burst size")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	webhookURL := fs.String("webhook-url", "", "Slack/Discord/generic webhook to notify on run completion (empty disables)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := newLogger(*logLevel)

	var notifier *notification.Dispatcher
	if *webhookURL != "" {
		notifier = notification.NewDispatcher(&notification.Config{
			Enabled: true,
			Channels: []notification.Channel{
				{Name: "serve-webhook", Type: "webhook", Enabled: true, WebhookURL: *webhookURL},
			},
		}, logger)
	}

	var store *history.Store
	if *dbPath != "" {
		var err error
		store, err = history.Open(*dbPath)
		if err != nil {
			logger.Error("opening run-history store", "path", *dbPath, "error", err)
			return 2
		}
		defer store.Close()
	}

	collector := metrics.NewCollector(logger, 15*time.Second, nil)

	cfg := api.DefaultServerConfig()
	cfg.RateLimitPerSec = *rateLimit
	cfg.RateLimitBurst = *rateBurst

	server := api.NewServer(api.ServerOptions{
		Config:    cfg,
		Logger:    logger,
		History:   store,
		Collector: collector,
		Notifier:  notifier,
	})
	collector.SetSource(server)

	go collector.Start()
	defer collector.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe(*addr) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("api server exited", "error", err)
			return 2
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 2
		}
	}

	fmt.Fprintln(os.Stderr, "snowcapd: stopped")
	return 0
}
