package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ledger-engine/internal/archive"
	"github.com/congo-pay/ledger-engine/internal/config"
	"github.com/congo-pay/ledger-engine/internal/events"
	"github.com/congo-pay/ledger-engine/internal/metrics"
	"github.com/congo-pay/ledger-engine/internal/middleware"
	"github.com/congo-pay/ledger-engine/internal/runs"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Publisher events.Publisher
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
		app.Get("/metrics", d.Metrics.Handler())
	}

	RegisterHealthRoutes(app, d)

	var archiver archive.Archiver = archive.Discard{}
	if d.DB != nil {
		archiver = archive.NewPostgresArchiver(d.DB)
	}
	opts := []runs.Option{}
	if d.Metrics != nil {
		opts = append(opts, runs.WithMetrics(d.Metrics))
	}
	if d.Publisher != nil {
		opts = append(opts, runs.WithPublisher(d.Publisher))
	}
	runHandler := runs.NewHandler(runs.NewService(archiver, d.Logger, opts...))

	api := app.Group("/api/v1")
	api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterRunRoutes(api, runHandler)

	return nil
}
