package postgres

import (
	"context"
	"time"

	"docshare/internal/domain/file"
	apperrors "docshare/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const fileColumns = `id, owner_id, folder_id, name, blob_key, size_bytes, mime_type, is_favorite, deleted_at, last_accessed_at, created_at, updated_at`

type FileRepository struct {
	db *DB
}

func NewFileRepository(db *DB) *FileRepository {
	return &FileRepository{db: db}
}

func scanFile(row pgx.Row) (*file.File, error) {
	f := &file.File{}
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.FolderID, &f.Name, &f.BlobKey, &f.SizeBytes, &f.MimeType,
		&f.IsFavorite, &f.DeletedAt, &f.LastAccessedAt, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

func collectFiles(rows pgx.Rows) ([]*file.File, error) {
	defer rows.Close()

	files := make([]*file.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, errFailedScanFile(err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return files, nil
}

func (r *FileRepository) Create(ctx context.Context, input file.CreateFileInput) (*file.File, error) {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO files (id, owner_id, folder_id, name, blob_key, size_bytes, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + fileColumns

	f, err := scanFile(r.db.conn(ctx).QueryRow(ctx, query,
		id, input.OwnerID, input.FolderID, input.Name, input.BlobKey, input.SizeBytes, input.MimeType,
	))
	if err != nil {
		return nil, errFailedCreateFile(err)
	}

	return f, nil
}

func (r *FileRepository) Get(ctx context.Context, id uuid.UUID) (*file.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errFileNotFound)
		}
		return nil, errFailedGetFile(err)
	}

	return f, nil
}

func (r *FileRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2`

	f, err := scanFile(r.db.conn(ctx).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errFileNotFound)
		}
		return nil, errFailedGetFile(err)
	}

	return f, nil
}

func (r *FileRepository) LockOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2 FOR UPDATE`

	f, err := scanFile(r.db.conn(ctx).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errFileNotFound)
		}
		return nil, errFailedLockRow(err)
	}

	return f, nil
}

func (r *FileRepository) ListActive(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]*file.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 AND deleted_at IS NULL`
	args := []any{ownerID}

	if folderID != nil {
		query += " AND folder_id = $2"
		args = append(args, *folderID)
	} else {
		query += " AND folder_id IS NULL"
	}

	query += " ORDER BY name ASC"

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, errFailedListFiles(err)
	}
	return collectFiles(rows)
}

func (r *FileRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return r.update(ctx, `UPDATE files SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
}

func (r *FileRepository) UpdateFolder(ctx context.Context, id uuid.UUID, folderID *uuid.UUID) error {
	return r.update(ctx, `UPDATE files SET folder_id = $2, updated_at = NOW() WHERE id = $1`, id, folderID)
}

func (r *FileRepository) SetDeletedAt(ctx context.Context, id uuid.UUID, at *time.Time) error {
	return r.update(ctx, `UPDATE files SET deleted_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
}

func (r *FileRepository) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return r.update(ctx, `UPDATE files SET is_favorite = $2, updated_at = NOW() WHERE id = $1`, id, favorite)
}

func (r *FileRepository) MarkAccessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.conn(ctx).Exec(ctx, `UPDATE files SET last_accessed_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return errFailedMarkFileAccessed(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errFileNotFound)
	}
	return nil
}

func (r *FileRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return errFailedUpdateFile(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errFileNotFound)
	}

	return nil
}

// SetDeletedAtByFolder stamps every direct child file of folderID,
// whatever its current trash state.
func (r *FileRepository) SetDeletedAtByFolder(ctx context.Context, folderID uuid.UUID, at *time.Time) (int64, error) {
	query := `UPDATE files SET deleted_at = $2, updated_at = NOW() WHERE folder_id = $1`

	result, err := r.db.conn(ctx).Exec(ctx, query, folderID, at)
	if err != nil {
		return 0, errFailedBulkUpdate(err)
	}
	return result.RowsAffected(), nil
}

func (r *FileRepository) SelectOwnedActive(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return selectOwnedActive(ctx, r.db.conn(ctx), "files", ownerID, ids)
}

func (r *FileRepository) SetDeletedAtByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, at *time.Time) (int64, error) {
	query := `
		UPDATE files SET deleted_at = $3, updated_at = NOW()
		WHERE owner_id = $1 AND id = ANY($2::uuid[]) AND deleted_at IS NULL`

	result, err := r.db.conn(ctx).Exec(ctx, query, ownerID, ids, at)
	if err != nil {
		return 0, errFailedBulkUpdate(err)
	}
	return result.RowsAffected(), nil
}

func (r *FileRepository) SetFavoriteByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, favorite bool) (int64, error) {
	query := `
		UPDATE files SET is_favorite = $3, updated_at = NOW()
		WHERE owner_id = $1 AND id = ANY($2::uuid[]) AND deleted_at IS NULL`

	result, err := r.db.conn(ctx).Exec(ctx, query, ownerID, ids, favorite)
	if err != nil {
		return 0, errFailedBulkUpdate(err)
	}
	return result.RowsAffected(), nil
}

func (r *FileRepository) MoveByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, folderID *uuid.UUID) (int64, error) {
	query := `
		UPDATE files SET folder_id = $3, updated_at = NOW()
		WHERE owner_id = $1 AND id = ANY($2::uuid[]) AND deleted_at IS NULL`

	result, err := r.db.conn(ctx).Exec(ctx, query, ownerID, ids, folderID)
	if err != nil {
		return 0, errFailedBulkUpdate(err)
	}
	return result.RowsAffected(), nil
}

// SumActiveSize totals the non-trashed files directly inside folderID.
func (r *FileRepository) SumActiveSize(ctx context.Context, folderID uuid.UUID) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE folder_id = $1 AND deleted_at IS NULL`
	if err := r.db.conn(ctx).QueryRow(ctx, query, folderID).Scan(&total); err != nil {
		return 0, errFailedSumFileSizes(err)
	}
	return total, nil
}

func (r *FileRepository) SumOwnerActiveSize(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE owner_id = $1 AND deleted_at IS NULL`
	if err := r.db.conn(ctx).QueryRow(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, errFailedSumFileSizes(err)
	}
	return total, nil
}

func (r *FileRepository) CountActive(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM files WHERE owner_id = $1 AND deleted_at IS NULL`
	if err := r.db.conn(ctx).QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, errFailedCountFiles(err)
	}
	return count, nil
}

func (r *FileRepository) ListFavorites(ctx context.Context, ownerID uuid.UUID) ([]*file.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND is_favorite AND deleted_at IS NULL
		ORDER BY name ASC`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, errFailedListFiles(err)
	}
	return collectFiles(rows)
}

func (r *FileRepository) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]*file.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY COALESCE(last_accessed_at, created_at) DESC
		LIMIT $2`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, errFailedListFiles(err)
	}
	return collectFiles(rows)
}

// ListTrashed returns trashed files that are not inside a trashed folder.
func (r *FileRepository) ListTrashed(ctx context.Context, ownerID uuid.UUID) ([]*file.File, error) {
	query := `
		SELECT f.id, f.owner_id, f.folder_id, f.name, f.blob_key, f.size_bytes, f.mime_type,
		       f.is_favorite, f.deleted_at, f.last_accessed_at, f.created_at, f.updated_at
		FROM files f
		LEFT JOIN folders p ON p.id = f.folder_id
		WHERE f.owner_id = $1
		  AND f.deleted_at IS NOT NULL
		  AND (p.id IS NULL OR p.deleted_at IS NULL)
		ORDER BY f.deleted_at DESC`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, errFailedListFiles(err)
	}
	return collectFiles(rows)
}

func (r *FileRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time, ownerID *uuid.UUID) ([]file.TrashedItem, error) {
	query := `
		SELECT id, owner_id, folder_id, name, blob_key, size_bytes, deleted_at
		FROM files
		WHERE deleted_at IS NOT NULL
		  AND deleted_at < $1
		  AND ($2::uuid IS NULL OR owner_id = $2)
		ORDER BY deleted_at ASC`

	rows, err := r.db.conn(ctx).Query(ctx, query, cutoff, ownerID)
	if err != nil {
		return nil, errFailedListTrashed(err)
	}
	defer rows.Close()

	items := make([]file.TrashedItem, 0)
	for rows.Next() {
		var item file.TrashedItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.ParentID, &item.Name, &item.BlobKey, &item.SizeBytes, &item.DeletedAt); err != nil {
			return nil, errFailedScanTrashed(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return items, nil
}

// DeleteTrashedBefore removes the file row only if it is still trashed
// before cutoff and returns its blob key. A file restored since it was
// listed yields a not-found error and keeps its row.
func (r *FileRepository) DeleteTrashedBefore(ctx context.Context, id uuid.UUID, cutoff time.Time) (string, error) {
	query := `
		DELETE FROM files
		WHERE id = $1 AND deleted_at IS NOT NULL AND deleted_at < $2
		RETURNING blob_key`

	var blobKey string
	if err := r.db.conn(ctx).QueryRow(ctx, query, id, cutoff).Scan(&blobKey); err != nil {
		if isNoRows(err) {
			return "", apperrors.NotFound(errFileNotFound)
		}
		return "", errFailedPurgeFile(err)
	}
	return blobKey, nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteFile(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errFileNotFound)
	}

	return nil
}

func (r *FileRepository) Search(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]*file.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND deleted_at IS NULL AND name ILIKE $2 ESCAPE '\'
		ORDER BY name ASC
		LIMIT $3`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID, "%"+escapeLikePattern(term)+"%", limit)
	if err != nil {
		return nil, errFailedSearch(err)
	}
	return collectFiles(rows)
}
