package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"quarters/portal/internal/cache"
	"quarters/portal/internal/config"
	"quarters/portal/internal/log"
	"quarters/portal/internal/storage"
	"quarters/portal/internal/worker/queue"
	"quarters/portal/internal/worker/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	reports, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := reports.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure report bucket failed")
	}

	source, err := tasks.NewLocalComplaints(cfg.Portal, client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open local store")
	}
	if cfg.Portal.LocalBackend == "file" {
		logger.Info().Str("dir", cfg.Portal.LocalDir).Msg("reports read the file store shared with the api")
	}
	processor := tasks.NewProcessor(logger, source, reports, cfg.Reports.Prefix)
	consumer := queue.NewConsumer(
		client,
		cfg.Queue.Stream,
		cfg.Queue.Group,
		cfg.Queue.Consumer,
		cfg.Queue.ClaimInterval,
		logger,
		processor,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
