package postgres

import (
	"context"
	"time"

	"docshare/internal/domain/share"
	apperrors "docshare/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// The allow-list is folded into each row as text so it scans into []string.
const shareSelect = `
	SELECT s.id, s.owner_id, s.file_id, s.folder_id, s.expires_at, s.password_hash,
	       s.access_count, s.is_active, s.created_at, s.updated_at,
	       COALESCE((SELECT array_agg(a.user_id::text ORDER BY a.user_id)
	                 FROM share_allowed_users a WHERE a.share_id = s.id), '{}')
	FROM shares s`

type ShareRepository struct {
	db *DB
}

func NewShareRepository(db *DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func scanShare(row pgx.Row) (*share.Share, error) {
	s := &share.Share{}
	var allowed []string
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.FileID, &s.FolderID, &s.ExpiresAt, &s.PasswordHash,
		&s.AccessCount, &s.IsActive, &s.CreatedAt, &s.UpdatedAt, &allowed,
	)
	if err != nil {
		return nil, err
	}

	s.AllowedUsers = make([]uuid.UUID, 0, len(allowed))
	for _, raw := range allowed {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errFailedLoadAllowedUsers(err)
		}
		s.AllowedUsers = append(s.AllowedUsers, id)
	}
	return s, nil
}

func (r *ShareRepository) Create(ctx context.Context, input share.CreateShareInput) (*share.Share, error) {
	if err := input.Target.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	query := `
		INSERT INTO shares (id, owner_id, file_id, folder_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id uuid.UUID
	err := r.db.conn(ctx).QueryRow(ctx, query, uuid.New(), input.OwnerID, input.Target.FileID, input.Target.FolderID).Scan(&id)
	if err != nil {
		if isCheckViolation(err) {
			return nil, apperrors.Validation(errShareTargetConflict)
		}
		return nil, errFailedCreateShare(err)
	}

	return r.Get(ctx, id)
}

func (r *ShareRepository) Get(ctx context.Context, id uuid.UUID) (*share.Share, error) {
	s, err := scanShare(r.db.conn(ctx).QueryRow(ctx, shareSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errShareNotFound)
		}
		return nil, errFailedGetShare(err)
	}
	return s, nil
}

func (r *ShareRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*share.Share, error) {
	s, err := scanShare(r.db.conn(ctx).QueryRow(ctx, shareSelect+` WHERE s.id = $1 AND s.owner_id = $2`, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errShareNotFound)
		}
		return nil, errFailedGetShare(err)
	}
	return s, nil
}

// FindActiveByTarget returns the oldest active share for the target, or
// NotFound when there is none.
func (r *ShareRepository) FindActiveByTarget(ctx context.Context, target share.Target) (*share.Share, error) {
	query := shareSelect + ` WHERE s.is_active`
	var arg uuid.UUID
	if target.IsFile() {
		query += ` AND s.file_id = $1`
		arg = *target.FileID
	} else {
		query += ` AND s.folder_id = $1`
		arg = *target.FolderID
	}
	query += ` ORDER BY s.created_at ASC LIMIT 1`

	s, err := scanShare(r.db.conn(ctx).QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errShareNotFound)
		}
		return nil, errFailedGetShare(err)
	}
	return s, nil
}

func (r *ShareRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, `UPDATE shares SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (r *ShareRepository) UpdateActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.update(ctx, `UPDATE shares SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

func (r *ShareRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error {
	return r.update(ctx, `UPDATE shares SET expires_at = $2, updated_at = NOW() WHERE id = $1`, id, expiresAt)
}

func (r *ShareRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return errFailedUpdateShare(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errShareNotFound)
	}
	return nil
}

// ReplaceAllowedUsers swaps the allow-list. Callers run it inside WithinTx
// so the delete and insert land together.
func (r *ShareRepository) ReplaceAllowedUsers(ctx context.Context, id uuid.UUID, users []uuid.UUID) error {
	q := r.db.conn(ctx)

	if _, err := q.Exec(ctx, `DELETE FROM share_allowed_users WHERE share_id = $1`, id); err != nil {
		return errFailedSaveAllowedUsers(err)
	}

	if len(users) > 0 {
		query := `
			INSERT INTO share_allowed_users (share_id, user_id)
			SELECT $1, u FROM unnest($2::uuid[]) AS u
			ON CONFLICT DO NOTHING`
		if _, err := q.Exec(ctx, query, id, users); err != nil {
			return errFailedSaveAllowedUsers(err)
		}
	}

	return r.update(ctx, `UPDATE shares SET updated_at = NOW() WHERE id = $1`, id)
}

// IncrementAccessCount bumps the counter in place so concurrent grants
// never lose an increment.
func (r *ShareRepository) IncrementAccessCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	query := `UPDATE shares SET access_count = access_count + 1 WHERE id = $1 RETURNING access_count`
	if err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(&count); err != nil {
		if isNoRows(err) {
			return 0, apperrors.NotFound(errShareNotFound)
		}
		return 0, errFailedIncrementAccess(err)
	}
	return count, nil
}

func (r *ShareRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*share.Share, error) {
	rows, err := r.db.conn(ctx).Query(ctx, shareSelect+` WHERE s.owner_id = $1 ORDER BY s.created_at DESC`, ownerID)
	if err != nil {
		return nil, errFailedListShares(err)
	}
	defer rows.Close()

	shares := make([]*share.Share, 0)
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, errFailedScanShare(err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return shares, nil
}

func (r *ShareRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM shares WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteShare(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errShareNotFound)
	}
	return nil
}
