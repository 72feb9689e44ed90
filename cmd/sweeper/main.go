// Command sweeper permanently deletes trashed files and folders older than
// the retention window and prints a JSON report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docshare/internal/app"
	"docshare/internal/audit"
	"docshare/internal/config"
	"docshare/internal/sweeper"
	"docshare/pkg/logger"
	"docshare/pkg/metrics"

	"github.com/joho/godotenv"
)

const (
	envFilePath = ".env"
	defaultDays = 30
	hoursPerDay = 24
)

func main() {
	days := flag.Int("days", defaultDays, "delete items trashed more than this many days ago")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
	flag.Parse()

	if err := godotenv.Load(envFilePath); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(os.Stderr, cfg.App.LogLevel)

	if *days < 0 {
		logger.Fatal().Int("days", *days).Msg("-days must not be negative")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.OpenBackends(ctx, cfg, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect backends")
	}
	defer backends.Close()

	auditLogger := audit.NewLogger(backends.DB.Pool)
	report, err := backends.NewSweeper(metrics.GetMetrics(), auditLogger).Run(ctx, sweeper.Options{
		Window: time.Duration(*days) * hoursPerDay * time.Hour,
		DryRun: *dryRun,
	})
	auditLogger.Wait()
	if err != nil {
		logger.Error().Err(err).Msg("sweep failed")
		backends.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
	}

	if report.Failures > 0 {
		backends.Close()
		os.Exit(1)
	}
}
