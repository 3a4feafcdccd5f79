package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/platinummonkey/clientbill/pkg/app"
	"github.com/platinummonkey/clientbill/pkg/config"
	"github.com/platinummonkey/clientbill/pkg/observability"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (overrides CLIENTBILL_CONFIG_FILE)")
	migrateOnly := flag.Bool("migrate-only", false, "Apply database migrations and exit")
	flag.Parse()

	if *configFile != "" {
		os.Setenv("CLIENTBILL_CONFIG_FILE", *configFile)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", "clientbill")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := observability.InitTracing(ctx, cfg.OTel(), logger)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
	}

	if *migrateOnly {
		cfg.Database.MigrateOnStart = true
	}
	store, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to open storage")
		os.Exit(1)
	}
	if *migrateOnly {
		store.Close()
		logger.Info("migrations applied")
		return
	}

	metrics := app.NewMetrics(cfg)
	components := app.Wire(ctx, cfg, app.Deps{
		Primary: store.DB.Primary(),
		Replica: store.DB.Replica(),
		Redis:   store.Redis,
		Metrics: metrics,
		Logger:  logger,
	})

	store.DB.StartHealthCheckRoutine(ctx, 30*time.Second)
	app.StartDBStatsReporter(ctx, metrics, store.DB.Primary(), 15*time.Second)

	health := observability.NewHealthChecker(store.DB.Primary(), store.Redis, version)
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      app.NewHandler(cfg, components, health, metrics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		timeout := cfg.Server.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		return components.Dispatcher.Shutdown(timeout)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return store.Close()
	})
	if tp != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tp)
		})
	}

	go func() {
		logger.Infof("clientbill %s listening on %s", version, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForSignal(); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}
