package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"rutas/api/internal/cache"
	"rutas/api/internal/config"
	"rutas/api/internal/log"
	"rutas/api/internal/mail"
	"rutas/api/internal/queue"
	"rutas/api/internal/tasks"
)

// The worker drains the outbound mail stream filled by the API when
// mail.transport is "queue".
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment).With().Str("component", "mail-worker").Logger()

	if !cfg.Redis.Enabled {
		logger.Fatal().Msg("redis.enabled must be true for the mail worker")
	}
	if cfg.Mail.Host == "" {
		logger.Fatal().Msg("mail.host is required for the mail worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(mail.NewSMTPMailer(cfg.Mail), logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	logger.Info().Str("stream", cfg.Redis.Stream).Msg("mail worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("mail worker exited")
}
