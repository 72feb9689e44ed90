// Command migrate applies the database schema and checks that every table
// exists afterwards.
package main

import (
	"context"
	"os"
	"time"

	"docshare/internal/config"
	"docshare/internal/repository/postgres"
	"docshare/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	envFilePath    = ".env"
	migrateTimeout = time.Minute
	tableExistsSQL = `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	)`
)

var tables = []string{"folders", "files", "shares", "share_allowed_users", "audit_events"}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(os.Stderr, cfg.App.LogLevel)

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to apply schema")
		db.Close()
		os.Exit(1)
	}
	logger.Info().Msg("schema applied")

	missing := 0
	for _, table := range tables {
		var exists bool
		if err := db.Pool.QueryRow(ctx, tableExistsSQL, table).Scan(&exists); err != nil {
			logger.Error().Err(err).Str("table", table).Msg("failed to check table")
			missing++
			continue
		}
		if !exists {
			logger.Error().Str("table", table).Msg("table missing after migration")
			missing++
			continue
		}
		logger.Info().Str("table", table).Msg("table present")
	}

	if missing > 0 {
		db.Close()
		os.Exit(1)
	}
}
