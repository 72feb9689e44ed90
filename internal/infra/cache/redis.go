package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docshare/internal/config"
	"docshare/pkg/token"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	verificationKeyPrefix = "share:verified:"
	sweepLockKey          = "lock:trash-sweep"
	lockTokenBytes        = 16
	redisPingTimeout      = 5 * time.Second

	errFailedConnectRedisFmt = "failed to connect to redis: %w"
	errFailedSetKeyFmt       = "failed to set %s: %w"
	errFailedGetKeyFmt       = "failed to get %s: %w"
	errFailedLockFmt         = "failed to acquire redis lock: %w"
	errFailedUnlockFmt       = "failed to release redis lock: %w"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf(errFailedConnectRedisFmt, err)
	}

	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Remember stores a password verification for one visitor session. The
// fingerprint ties it to the password hash that was checked.
func (r *RedisCache) Remember(ctx context.Context, shareID uuid.UUID, sessionID, fingerprint string, ttl time.Duration) error {
	key := VerificationKey(shareID, sessionID)
	if err := r.client.Set(ctx, key, fingerprint, ttl).Err(); err != nil {
		return fmt.Errorf(errFailedSetKeyFmt, key, err)
	}
	return nil
}

func (r *RedisCache) Verified(ctx context.Context, shareID uuid.UUID, sessionID, fingerprint string) (bool, error) {
	key := VerificationKey(shareID, sessionID)
	stored, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf(errFailedGetKeyFmt, key, err)
	}
	return stored == fingerprint, nil
}

// NewSweepLocker returns a lock shared by every process using this Redis.
func (r *RedisCache) NewSweepLocker(ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: r.client, key: sweepLockKey, ttl: ttl}
}

// RedisLocker is a SET NX lease. The TTL bounds how long a crashed holder
// can block others.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	value, err := token.GenerateHex(lockTokenBytes)
	if err != nil {
		return false, fmt.Errorf(errFailedLockFmt, err)
	}

	ok, err := l.client.SetNX(ctx, l.key, value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf(errFailedLockFmt, err)
	}
	if ok {
		l.token = value
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context) error {
	if l.token == "" {
		return nil
	}

	held := l.token
	l.token = ""
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, held).Err(); err != nil {
		return fmt.Errorf(errFailedUnlockFmt, err)
	}
	return nil
}

func VerificationKey(shareID uuid.UUID, sessionID string) string {
	return verificationKeyPrefix + shareID.String() + ":" + sessionID
}
