package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/caseaccessio/api/internal/config"
	httpserver "github.com/caseaccessio/api/internal/infra/http"
	"github.com/caseaccessio/api/internal/infra/jobs"
	"github.com/caseaccessio/api/internal/infra/postgres"
	"github.com/caseaccessio/api/internal/infra/redis"
	"github.com/caseaccessio/api/internal/tracing"
	"github.com/caseaccessio/api/pkg/logger"
	"github.com/caseaccessio/api/pkg/migrations"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.SetDefault()
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App.Name, "1.0.0")
		if err != nil {
			log.Error("failed to set up tracing", "error", err)
			return 1
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				log.Error("failed to shut down tracing", "error", err)
			}
		}()
		log.Info("tracing enabled", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	policy, err := config.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		log.Error("failed to load policy", "error", err)
		return 1
	}
	allowlist, err := policy.Allowlist()
	if err != nil {
		log.Error("invalid group allow-list", "error", err)
		return 1
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	runner := migrations.NewRunner(db.DB, postgres.MigrationsFS())
	if err := runner.Up(ctx); err != nil {
		log.Error("failed to run migrations", "error", err)
		return 1
	}
	log.Info("migrations up to date")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	deps, err := buildDependencies(cfg, db, redisClient, allowlist, policy, log)
	if err != nil {
		log.Error("failed to build services", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.hub.Run(gctx)
		return nil
	})

	server := httpserver.NewServer(cfg, deps.router, log)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	worker := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Jobs.Concurrency,
	}, deps.maintenance, log)
	g.Go(func() error {
		return worker.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		return worker.Shutdown(context.Background())
	})

	scheduler, err := jobs.NewScheduler(jobs.SchedulerConfig{
		RedisAddr:         cfg.Redis.Addr(),
		RedisPassword:     cfg.Redis.Password,
		RedisDB:           cfg.Redis.DB,
		UnassignSweepSpec: cfg.Jobs.UnassignSweepSchedule,
		PurgeExpiredSpec:  cfg.Jobs.PurgeExpiredSchedule,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler", "error", err)
		return 1
	}
	scheduler.Start()
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return scheduler.Shutdown(shutdownCtx)
	})

	log.Info("application started", "http_addr", cfg.Server.Addr())

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		log.Error("application error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
