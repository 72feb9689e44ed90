package app

import (
	"context"
	"fmt"
	"time"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/config"
	"docshare/internal/http"
	"docshare/internal/infra/cache"
	"docshare/internal/repository/postgres"
	"docshare/internal/service"
	"docshare/internal/storage"
	"docshare/internal/storage/minio"
	"docshare/internal/storage/s3"
	"docshare/internal/sweeper"
	"docshare/pkg/logger"
	"docshare/pkg/metrics"
	"docshare/pkg/password"
	"docshare/pkg/validator"
)

const (
	// A crashed sweeper releases the redis lock after this long.
	sweepLockTTL = 30 * time.Minute

	// Expired in-memory verifications are dropped on this interval.
	verificationCleanupInterval = 5 * time.Minute
	bucketCheckTimeout          = 10 * time.Second
)

// OpenBackends connects to postgres, the configured blob backend and,
// when configured, redis. The schema is applied when migrate is set.
func OpenBackends(ctx context.Context, cfg *config.Config, migrate bool) (*Backends, error) {
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	b := &Backends{DB: db}

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
	}

	blobs, err := openBlobStore(ctx, &cfg.Blob)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Blobs = blobs

	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Redis = rc
	}

	return b, nil
}

type bucketStore interface {
	storage.BlobStore
	EnsureBucket(ctx context.Context) error
}

func openBlobStore(ctx context.Context, cfg *config.BlobConfig) (storage.BlobStore, error) {
	var (
		store bucketStore
		err   error
	)
	switch cfg.Backend {
	case config.BlobBackendMinIO:
		store, err = minio.NewClient(cfg)
	default:
		store, err = s3.NewClient(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
	}

	ctx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("backend", cfg.Backend).Str("bucket", cfg.Bucket).Msg("blob store ready")
	return store, nil
}

// SweepLocker serializes sweeps across processes. Redis is preferred when
// available; otherwise a postgres advisory lock is used.
func (b *Backends) SweepLocker() sweeper.Locker {
	if b.Redis != nil {
		return b.Redis.NewSweepLocker(sweepLockTTL)
	}
	return postgres.NewSweepLocker(b.DB)
}

// NewSweeper builds a sweeper over the backends' stores. Purges are
// written to recorder.
func (b *Backends) NewSweeper(m sweeper.Metrics, recorder sweeper.AuditRecorder) *sweeper.Sweeper {
	return sweeper.New(
		postgres.NewFolderRepository(b.DB),
		postgres.NewFileRepository(b.DB),
		b.Blobs,
		b.SweepLocker(),
		m,
		recorder,
	)
}

// verificationStore returns the shared redis store, or a process-local
// cache that is cleaned until ctx is done.
func (b *Backends) verificationStore(ctx context.Context) service.VerificationStore {
	if b.Redis != nil {
		return b.Redis
	}
	logger.Warn().Msg("REDIS_ADDR not set: share password verifications are kept in memory")
	vc := cache.NewVerificationCache()
	vc.StartCleanup(ctx, verificationCleanupInterval)
	return vc
}

// InitializeService wires every component of the API server.
func InitializeService(ctx context.Context, cfg *config.Config) (*Service, error) {
	backends, err := OpenBackends(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	logger.Info().Bool("redis", backends.Redis != nil).Msg("backends connected")

	folderRepo := postgres.NewFolderRepository(backends.DB)
	fileRepo := postgres.NewFileRepository(backends.DB)
	shareRepo := postgres.NewShareRepository(backends.DB)

	auditLogger := audit.NewLogger(backends.DB.Pool)
	m := metrics.GetMetrics()

	folders := service.NewFolderService(backends.DB, folderRepo, fileRepo, cfg.App.SearchLimit)
	files := service.NewFileService(backends.DB, folderRepo, fileRepo, backends.Blobs, cfg.App.MaxUploadSize, cfg.App.StorageQuota, validator.UploadPolicy{
		ForbiddenExtensions: cfg.App.ForbiddenExtensions,
		AllowedTypes:        cfg.App.AllowedFileTypes,
	})
	bulk := service.NewBulkService(backends.DB, folderRepo, fileRepo)
	usage := service.NewUsageService(folderRepo, fileRepo, cfg.App.StorageQuota)
	shares := service.NewShareService(service.ShareDeps{
		Tx:              backends.DB,
		Shares:          shareRepo,
		Folders:         folderRepo,
		Files:           fileRepo,
		Blobs:           backends.Blobs,
		Verifications:   backends.verificationStore(ctx),
		Hasher:          password.NewHasher(password.DefaultCost),
		Audit:           auditLogger,
		Metrics:         m,
		VerificationTTL: cfg.App.ShareVerificationTTL,
	})
	sw := backends.NewSweeper(m, auditLogger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryDuration)

	server := http.NewServer(&http.ServerDependencies{
		Config:         cfg,
		Folders:        folders,
		Files:          files,
		Bulk:           bulk,
		Usage:          usage,
		Shares:         shares,
		Sweeper:        sw,
		ShareEvents:    auditLogger,
		AuthMiddleware: auth.NewMiddleware(jwtService),
		Database:       backends.DB,
	})

	return &Service{
		config:   cfg,
		backends: backends,
		audit:    auditLogger,
		sweeper:  sw,
		server:   server,
	}, nil
}
