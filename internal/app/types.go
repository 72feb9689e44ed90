package app

import (
	"docshare/internal/infra/cache"
	"docshare/internal/repository/postgres"
	"docshare/internal/storage"
)

// Backends are the external systems both the server and the sweeper job
// connect to. Redis is nil when REDIS_ADDR is unset.
type Backends struct {
	DB    *postgres.DB
	Blobs storage.BlobStore
	Redis *cache.RedisCache
}

func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
