package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quarters/portal/internal/app"
	"quarters/portal/internal/cache"
	"quarters/portal/internal/config"
	"quarters/portal/internal/database"
	"quarters/portal/internal/gateway"
	"quarters/portal/internal/handlers"
	"quarters/portal/internal/jobs"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/log"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/server"
)

type pingableStore interface {
	localstore.Store
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure postgres")
	}

	// Redis backs the stream queue in every configuration; losing it only
	// disables notifications on the stream and scheduled reports.
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.Portal.LocalBackend == "redis" {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		logger.Warn().Err(err).Msg("redis unavailable, stream features disabled")
		redisClient = nil
	}

	local, err := newLocalStore(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init local store")
	}

	var stream notify.Notifier
	if redisClient != nil {
		stream = notify.NewStreamNotifier(redisClient, cfg.Queue.Stream, logger)
	}

	portal := app.New(cfg, gateway.NewPostgres(dbPool, cfg.Postgres.QueryTimeout), local, stream, logger)
	portal.OnClose(dbPool.Close)
	if redisClient != nil {
		portal.OnClose(func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("redis close error")
			}
		})
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = portal.Start(startCtx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start portal")
	}
	logger.Info().Str("mode", string(portal.Sessions.Mode())).Msg("portal started")

	scheduler := jobs.NewScheduler(cfg, portal, redisClient, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, portal, scheduler, local)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, portal)
}

func newLocalStore(cfg *config.AppConfig, client *redis.Client) (pingableStore, error) {
	if cfg.Portal.LocalBackend == "file" {
		return localstore.NewFileStore(cfg.Portal.LocalDir)
	}
	return localstore.NewRedisStore(client, cfg.Portal.KeyPrefix), nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, portal *app.App) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop(shutdownCtx)
	portal.Close()

	logger.Info().Msg("server exited cleanly")
}
