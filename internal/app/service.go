package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"docshare/internal/audit"
	"docshare/internal/config"
	"docshare/internal/http"
	"docshare/internal/sweeper"
	"docshare/pkg/logger"
)

const serverAddrPrefix = ":"

// Service is the running API server plus its background jobs.
type Service struct {
	config   *config.Config
	backends *Backends
	audit    *audit.Logger
	sweeper  *sweeper.Sweeper
	server   *http.Server
}

// Start runs the periodic trash sweep (when configured) and blocks serving
// HTTP until the server is shut down.
func (s *Service) Start(ctx context.Context) error {
	if interval := s.config.App.TrashSweepInterval; interval > 0 {
		go s.runSweepLoop(ctx, interval)
	}

	logger.Info().Str("port", s.config.Server.Port).Msg("starting HTTP server")
	if err := s.server.Start(serverAddrPrefix + s.config.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) runSweepLoop(ctx context.Context, interval time.Duration) {
	log := logger.With("trash-sweep")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.sweeper.Run(ctx, sweeper.Options{Window: s.config.App.TrashRetention})
			if err != nil {
				log.Warn().Err(err).Msg("scheduled sweep skipped")
				continue
			}
			log.Debug().Int("files_deleted", report.FilesDeleted).Msg("scheduled sweep finished")
		}
	}
}

// Shutdown stops the HTTP server, waits for pending audit writes and closes
// the backends.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.audit.Wait()
	s.backends.Close()
	return err
}
