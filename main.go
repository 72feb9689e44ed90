package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"docshare/internal/app"
	"docshare/internal/config"
	"docshare/pkg/logger"

	"github.com/joho/godotenv"
)

const envFilePath = ".env"

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		logger.Warn().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(os.Stderr, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	service, err := app.InitializeService(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize service")
	}

	go func() {
		if err := service.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server exited gracefully")
}
