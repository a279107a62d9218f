// Command storekit serves the quota, pricing and stock API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storekit/internal/app"
	"github.com/dmitrymomot/storekit/internal/db/migrations"
	"github.com/dmitrymomot/storekit/pkg/clientip"
	"github.com/dmitrymomot/storekit/pkg/config"
	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/pg"
	"github.com/dmitrymomot/storekit/pkg/redis"
	"github.com/dmitrymomot/storekit/pkg/requestid"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg app.Config
	config.MustLoad(&cfg)

	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "storekit stopped", logger.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg app.Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.Extractor, tenant.Extractor, clientip.Extractor),
	}
	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err == nil {
			opts = append(opts, logger.WithLevel(level))
		}
	}
	return logger.New(opts...)
}

func run(ctx context.Context, cfg app.Config, log *slog.Logger) error {
	var opts []app.Option

	if cfg.NeedsPostgres() {
		pool, err := connectPostgres(ctx, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		opts = append(opts, app.WithPostgres(pool))
	}

	if cfg.NeedsRedis() {
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return err
		}
		defer closeRedis(client, log)
		opts = append(opts, app.WithRedis(client, rcfg.KeyPrefix))
	}

	a, err := app.New(ctx, cfg, log, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	var hcfg httpserver.Config
	if err := config.Load(&hcfg); err != nil {
		return err
	}
	return httpserver.New(hcfg, a.Handler, log).Run(ctx)
}

func connectPostgres(ctx context.Context, log *slog.Logger) (*pgxpool.Pool, error) {
	var pcfg pg.Config
	if err := config.Load(&pcfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if pcfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, migrations.FS, pcfg, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

func closeRedis(client *goredis.Client, log *slog.Logger) {
	if err := client.Close(); err != nil {
		log.Error("failed to close redis client", logger.Error(err))
	}
}
