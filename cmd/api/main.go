package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rutas/api/internal/cache"
	"rutas/api/internal/config"
	"rutas/api/internal/database"
	"rutas/api/internal/handlers"
	"rutas/api/internal/jobs"
	"rutas/api/internal/log"
	"rutas/api/internal/mail"
	"rutas/api/internal/repository"
	"rutas/api/internal/server"
	"rutas/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var producer mail.Notifier
	if redisClient != nil {
		producer = mail.NewQueueProducer(redisClient, cfg.Redis.Stream)
	}
	notifier, err := mail.NewNotifier(cfg.Mail, producer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init mail transport")
	}

	tokens := service.NewTokenIssuer(cfg.Tokens)
	handlerSet := handlers.NewHandlerSet(logger, db, redisClient, notifier, tokens, cfg)

	if cfg.Bootstrap.AdminEmail != "" {
		created, err := handlerSet.AuthService().EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("admin bootstrap failed")
		}
		if created {
			logger.Info().Str("email", cfg.Bootstrap.AdminEmail).Msg("admin account created")
		}
	}

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(repository.NewUserRepository(db), cfg.Jobs.TokenSweep, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, db, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *sql.DB, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("database close error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
