// Package main is the entry point for the modelgate server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modelgate/config"
	"modelgate/internal/gateway"
	"modelgate/internal/logging"
	"modelgate/internal/observability"
	"modelgate/internal/registry"
	"modelgate/internal/server"
	"modelgate/internal/usage"
	"modelgate/internal/version"

	// Codec packages register themselves with the wire factory.
	_ "modelgate/internal/wire/anthropic"
	_ "modelgate/internal/wire/gemini"
	_ "modelgate/internal/wire/openai"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting modelgate",
		"version", version.Version,
		"addr", cfg.Server.Addr,
		"default_provider", cfg.DefaultProvider,
	)

	reg, err := registry.New(cfg.Descriptors())
	if err != nil {
		logger.Error("failed to build provider registry", "error", err)
		os.Exit(1)
	}

	creds := make(map[string]gateway.Credentials, len(cfg.Providers))
	for id, pc := range cfg.Providers {
		creds[id] = gateway.Credentials{APIKey: pc.APIKey, Model: pc.Model}
	}
	if len(creds) == 0 {
		logger.Warn("no provider credentials configured; all calls will be rejected upstream")
	}

	var recorder usage.Recorder
	if cfg.Usage.SQLitePath != "" {
		recorder, err = usage.OpenSQLite(cfg.Usage.SQLitePath)
		if err != nil {
			logger.Error("failed to open usage store", "error", err)
			os.Exit(1)
		}
		logger.Info("usage accounting enabled", "store", "sqlite", "path", cfg.Usage.SQLitePath)
	} else {
		recorder = usage.NewMemoryRecorder()
		logger.Info("usage accounting enabled", "store", "memory")
	}
	defer func() {
		_ = recorder.Close()
	}()

	var metrics *observability.PrometheusHooks
	var hooks gateway.Hooks
	if cfg.Metrics.Enabled {
		metrics = observability.NewPrometheusHooks()
		hooks = metrics
		logger.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	}

	gw := gateway.New(gateway.Config{
		Registry:    reg,
		Credentials: creds,
		Recorder:    recorder,
		Hooks:       hooks,
		Logger:      logger,
	})

	if cfg.Server.MasterKey == "" {
		logger.Warn("MODELGATE_MASTER_KEY not set; server accepts unauthenticated requests")
	}

	srv := server.New(gw, recorder, server.Config{
		MasterKey:       cfg.Server.MasterKey,
		DefaultProvider: cfg.DefaultProvider,
		Metrics:         metrics,
		MetricsEndpoint: cfg.Metrics.Endpoint,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		os.Exit(1)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
