// Command engined serves the ledger engine over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/ledger-engine/internal/archive"
	"github.com/congo-pay/ledger-engine/internal/config"
	"github.com/congo-pay/ledger-engine/internal/events"
	"github.com/congo-pay/ledger-engine/internal/infra"
	"github.com/congo-pay/ledger-engine/internal/logging"
	"github.com/congo-pay/ledger-engine/internal/metrics"
	"github.com/congo-pay/ledger-engine/internal/routes"
	"github.com/congo-pay/ledger-engine/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("app", cfg.AppName, "env", cfg.AppEnv)

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := archive.NewPostgresArchiver(db).EnsureSchema(ctx); err != nil {
			logger.Error("prepare archive", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, run reports will not be archived")
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotent replay disabled")
	}

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Metrics: metrics.New()}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("close kafka publisher", "error", err)
			}
		}()
		deps.Publisher = publisher
	}

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Address())
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
