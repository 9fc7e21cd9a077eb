// Command dnsdigd is the caching DNS-over-UDP forwarder daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dnsdig/pkg/analytics"
	"dnsdig/pkg/cache"
	"dnsdig/pkg/config"
	"dnsdig/pkg/forwarder"
	"dnsdig/pkg/logging"
	"dnsdig/pkg/upstream"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	host := flag.String("host", "", "Host to listen on (overrides DNSDIGD_HOST)")
	port := flag.Int("port", 0, "Port to listen on (overrides DNSDIGD_PORT)")
	useAdblocker := flag.Bool("use-adblocker", false, "Answer NXDOMAIN for blocklisted domains")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *useAdblocker {
		cfg.UseAdblocker = true
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("DNSDig daemon starting",
		"version", version,
		"env", cfg.Env,
		"listen", cfg.ListenAddress(),
		"mongo_url", cfg.MongoURL,
		"redis_url", cfg.RedisURL,
		"transport", cfg.UpstreamTransport,
		"adblocker", cfg.UseAdblocker,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Daemon failed", "error", err)
		os.Exit(1)
	}

	logger.Info("DNSDig daemon stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// Shared Redis pool: answer cache plus blocklist.
	pool := cache.NewPool(cfg.RedisURL)
	defer pool.Close()

	answerCache := cache.New(cache.NewRedis(pool), cfg.CacheMaxTTL, logger)

	var client upstream.Client
	switch cfg.UpstreamTransport {
	case config.TransportDoH:
		client = upstream.NewDoH("", cfg.UpstreamTimeout, logger)
	default:
		client = upstream.NewDoT(nil, cfg.UpstreamTimeout, logger)
	}

	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()
	store, err := analytics.NewMongo(initCtx, cfg.MongoURL, cfg.DBName, cfg.AppName)
	if err != nil {
		return fmt.Errorf("initializing analytics store: %w", err)
	}
	recorder := analytics.NewRecorder(store, logger)

	handler := &forwarder.Handler{
		Cache:    answerCache,
		Upstream: client,
		Recorder: recorder,
		Logger:   logger,
		Timeout:  cfg.UpstreamTimeout,
	}
	if cfg.UseAdblocker {
		handler.Blocklist = forwarder.NewRedisBlocklist(pool)
	}

	server := forwarder.New(cfg.ListenAddress(), handler, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	// Advisory stats table on a rolling 60-minute window.
	go recorder.ReportLoop(ctx, time.Minute)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
