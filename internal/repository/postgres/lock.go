package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLocker serializes the retention sweep across processes that share
// the database. The session lock lives on a dedicated pooled connection.
type AdvisoryLocker struct {
	db  *DB
	key int64

	mu   sync.Mutex
	conn *pgxpool.Conn
}

func NewSweepLocker(db *DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, key: sweepAdvisoryLockKey}
}

// TryLock returns false without blocking when another session holds the lock.
func (l *AdvisoryLocker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Pool.Acquire(ctx)
	if err != nil {
		return false, errFailedAcquireConnection(err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&acquired); err != nil {
		conn.Release()
		return false, errFailedAdvisoryLock(err)
	}

	if !acquired {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

func (l *AdvisoryLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}

	conn := l.conn
	l.conn = nil
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
		// Dropping the session releases the lock as well.
		conn.Conn().Close(ctx)
		return errFailedAdvisoryUnlock(err)
	}
	return nil
}
