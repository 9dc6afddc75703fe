package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/heysubinoy/htkv/internal/api"
	"github.com/heysubinoy/htkv/internal/server"
	"github.com/heysubinoy/htkv/internal/store"
	"github.com/heysubinoy/htkv/pkg/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("HTKV_CONFIG"), "Path to YAML config file")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "htkv",
		Output: os.Stderr,
		Level:  hclog.Info,
	})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Level())

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger hclog.Logger) error {
	hash, err := store.ParseHashFunc(cfg.Hash)
	if err != nil {
		return err
	}

	// Create the in-memory store
	memStore, err := store.NewMemStore(cfg.BucketCount, store.WithHash(hash))
	if err != nil {
		return err
	}
	defer memStore.Reset()

	instrumented := store.NewInstrumentedStore(memStore)

	kvServer := server.New(instrumented, server.Options{
		SocketPath:   cfg.SocketPath,
		MaxLineBytes: cfg.MaxLineBytes,
		IdleTimeout:  cfg.IdleTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, logger.Named("server"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return kvServer.ListenAndServe(ctx)
	})

	if cfg.MetricsAddr != "" {
		metricsServer := api.NewServer(instrumented, memStore, kvServer, logger.Named("metrics"))
		g.Go(func() error {
			return metricsServer.ListenAndServe(ctx, cfg.MetricsAddr)
		})
	}

	logger.Info("starting",
		"socket", cfg.SocketPath,
		"buckets", cfg.BucketCount,
		"hash", cfg.Hash,
		"max_line_bytes", cfg.MaxLineBytes,
		"idle_timeout", cfg.IdleTimeout,
	)

	err = g.Wait()
	logger.Info("shutting down", "entries", memStore.Len())
	return err
}
