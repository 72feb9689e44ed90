package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// verificationEntry is a remembered share password check.
type verificationEntry struct {
	Fingerprint string
	ExpiryTime  time.Time
}

// VerificationCache is the in-process share verification store used when
// Redis is not configured.
type VerificationCache struct {
	cache map[string]verificationEntry
	mutex sync.RWMutex
	now   func() time.Time
}

func NewVerificationCache() *VerificationCache {
	return &VerificationCache{
		cache: make(map[string]verificationEntry),
		now:   time.Now,
	}
}

func (c *VerificationCache) Remember(_ context.Context, shareID uuid.UUID, sessionID, fingerprint string, ttl time.Duration) error {
	c.mutex.Lock()
	c.cache[VerificationKey(shareID, sessionID)] = verificationEntry{
		Fingerprint: fingerprint,
		ExpiryTime:  c.now().Add(ttl),
	}
	c.mutex.Unlock()
	return nil
}

func (c *VerificationCache) Verified(_ context.Context, shareID uuid.UUID, sessionID, fingerprint string) (bool, error) {
	c.mutex.RLock()
	entry, found := c.cache[VerificationKey(shareID, sessionID)]
	c.mutex.RUnlock()

	if !found || !c.now().Before(entry.ExpiryTime) {
		return false, nil
	}
	return entry.Fingerprint == fingerprint, nil
}

// Clear removes expired entries from cache
func (c *VerificationCache) Clear() {
	now := c.now()
	c.mutex.Lock()
	for key, entry := range c.cache {
		if !now.Before(entry.ExpiryTime) {
			delete(c.cache, key)
		}
	}
	c.mutex.Unlock()
}

func (c *VerificationCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// StartCleanup evicts expired entries every interval until ctx is done.
func (c *VerificationCache) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Clear()
			case <-ctx.Done():
				return
			}
		}
	}()
}
