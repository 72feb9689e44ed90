package postgres

import (
	"context"
	"time"

	"docshare/internal/domain/file"
	apperrors "docshare/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const folderColumns = `id, owner_id, parent_id, name, is_favorite, deleted_at, created_at, updated_at`

type FolderRepository struct {
	db *DB
}

func NewFolderRepository(db *DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func scanFolder(row pgx.Row) (*file.Folder, error) {
	f := &file.Folder{}
	err := row.Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.IsFavorite, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func collectFolders(rows pgx.Rows) ([]*file.Folder, error) {
	defer rows.Close()

	folders := make([]*file.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, errFailedScanFolder(err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return folders, nil
}

func (r *FolderRepository) Create(ctx context.Context, input file.CreateFolderInput) (*file.Folder, error) {
	query := `
		INSERT INTO folders (id, owner_id, parent_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + folderColumns

	f, err := scanFolder(r.db.conn(ctx).QueryRow(ctx, query, uuid.New(), input.OwnerID, input.ParentID, input.Name))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Validation(errFolderNameTaken)
		}
		return nil, errFailedCreateFolder(err)
	}

	return f, nil
}

func (r *FolderRepository) Get(ctx context.Context, id uuid.UUID) (*file.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	f, err := scanFolder(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errFolderNotFound)
		}
		return nil, errFailedGetFolder(err)
	}

	return f, nil
}

// GetOwned returns NotFound both for missing folders and for folders owned
// by someone else.
func (r *FolderRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND owner_id = $2`

	f, err := scanFolder(r.db.conn(ctx).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errFolderNotFound)
		}
		return nil, errFailedGetFolder(err)
	}

	return f, nil
}

// LockOwned is GetOwned with a row lock held until the surrounding
// transaction ends.
func (r *FolderRepository) LockOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND owner_id = $2 FOR UPDATE`

	f, err := scanFolder(r.db.conn(ctx).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errFolderNotFound)
		}
		return nil, errFailedLockRow(err)
	}

	return f, nil
}

// ListChildren returns every direct subfolder, trashed or not.
func (r *FolderRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*file.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE parent_id = $1 ORDER BY name ASC`

	rows, err := r.db.conn(ctx).Query(ctx, query, parentID)
	if err != nil {
		return nil, errFailedListFolders(err)
	}
	return collectFolders(rows)
}

func (r *FolderRepository) ListActive(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*file.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND deleted_at IS NULL`
	args := []any{ownerID}

	if parentID != nil {
		query += " AND parent_id = $2"
		args = append(args, *parentID)
	} else {
		query += " AND parent_id IS NULL"
	}

	query += " ORDER BY name ASC"

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, errFailedListFolders(err)
	}
	return collectFolders(rows)
}

func (r *FolderRepository) NameExists(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM folders
			WHERE owner_id = $1
			  AND parent_id IS NOT DISTINCT FROM $2
			  AND name = $3
			  AND ($4::uuid IS NULL OR id <> $4)
		)`

	var exists bool
	if err := r.db.conn(ctx).QueryRow(ctx, query, ownerID, parentID, name, excludeID).Scan(&exists); err != nil {
		return false, errFailedCheckFolderName(err)
	}
	return exists, nil
}

func (r *FolderRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return r.update(ctx, `UPDATE folders SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
}

func (r *FolderRepository) UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	return r.update(ctx, `UPDATE folders SET parent_id = $2, updated_at = NOW() WHERE id = $1`, id, parentID)
}

func (r *FolderRepository) SetDeletedAt(ctx context.Context, id uuid.UUID, at *time.Time) error {
	return r.update(ctx, `UPDATE folders SET deleted_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
}

func (r *FolderRepository) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return r.update(ctx, `UPDATE folders SET is_favorite = $2, updated_at = NOW() WHERE id = $1`, id, favorite)
}

func (r *FolderRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Validation(errFolderNameTaken)
		}
		return errFailedUpdateFolder(err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errFolderNotFound)
	}

	return nil
}

// SelectOwnedActive narrows ids to those owned by ownerID and not in trash.
func (r *FolderRepository) SelectOwnedActive(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	return selectOwnedActive(ctx, r.db.conn(ctx), "folders", ownerID, ids)
}

func (r *FolderRepository) SetFavoriteByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, favorite bool) (int64, error) {
	query := `
		UPDATE folders SET is_favorite = $3, updated_at = NOW()
		WHERE owner_id = $1 AND id = ANY($2::uuid[]) AND deleted_at IS NULL`

	result, err := r.db.conn(ctx).Exec(ctx, query, ownerID, ids, favorite)
	if err != nil {
		return 0, errFailedBulkUpdate(err)
	}
	return result.RowsAffected(), nil
}

func (r *FolderRepository) ListFavorites(ctx context.Context, ownerID uuid.UUID) ([]*file.Folder, error) {
	query := `
		SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND is_favorite AND deleted_at IS NULL
		ORDER BY name ASC`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, errFailedListFolders(err)
	}
	return collectFolders(rows)
}

// ListTrashed returns the trashed folders whose parent is not itself
// trashed, i.e. the roots of each trashed subtree.
func (r *FolderRepository) ListTrashed(ctx context.Context, ownerID uuid.UUID) ([]*file.Folder, error) {
	query := `
		SELECT f.id, f.owner_id, f.parent_id, f.name, f.is_favorite, f.deleted_at, f.created_at, f.updated_at
		FROM folders f
		LEFT JOIN folders p ON p.id = f.parent_id
		WHERE f.owner_id = $1
		  AND f.deleted_at IS NOT NULL
		  AND (p.id IS NULL OR p.deleted_at IS NULL)
		ORDER BY f.deleted_at DESC`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, errFailedListFolders(err)
	}
	return collectFolders(rows)
}

// ListTrashedBefore selects folders trashed strictly before cutoff,
// optionally limited to one owner.
func (r *FolderRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time, ownerID *uuid.UUID) ([]file.TrashedItem, error) {
	query := `
		SELECT id, owner_id, parent_id, name, deleted_at
		FROM folders
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
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.ParentID, &item.Name, &item.DeletedAt); err != nil {
			return nil, errFailedScanTrashed(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return items, nil
}

// ListChildIDs returns the ids of every folder and file directly under id,
// trashed or not.
func (r *FolderRepository) ListChildIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM folders WHERE parent_id = $1
		UNION ALL
		SELECT id FROM files WHERE folder_id = $1`

	rows, err := r.db.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, errFailedListChildren(err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var child uuid.UUID
		if err := rows.Scan(&child); err != nil {
			return nil, errFailedListChildren(err)
		}
		ids = append(ids, child)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return ids, nil
}

// DeleteTrashedBefore removes the folder only if it is still trashed before
// cutoff and nothing references it. The checks and the delete are one
// statement, so a folder restored or refilled since it was listed survives.
// It reports whether a row was removed.
func (r *FolderRepository) DeleteTrashedBefore(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	query := `
		DELETE FROM folders f
		WHERE f.id = $1
		  AND f.deleted_at IS NOT NULL
		  AND f.deleted_at < $2
		  AND NOT EXISTS (SELECT 1 FROM folders c WHERE c.parent_id = f.id)
		  AND NOT EXISTS (SELECT 1 FROM files c WHERE c.folder_id = f.id)`

	result, err := r.db.conn(ctx).Exec(ctx, query, id, cutoff)
	if err != nil {
		return false, errFailedPurgeFolder(err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *FolderRepository) Search(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]*file.Folder, error) {
	query := `
		SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND deleted_at IS NULL AND name ILIKE $2 ESCAPE '\'
		ORDER BY name ASC
		LIMIT $3`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID, "%"+escapeLikePattern(term)+"%", limit)
	if err != nil {
		return nil, errFailedSearch(err)
	}
	return collectFolders(rows)
}

func (r *FolderRepository) CountActive(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND deleted_at IS NULL`
	if err := r.db.conn(ctx).QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, errFailedCountFolders(err)
	}
	return count, nil
}

func selectOwnedActive(ctx context.Context, q querier, table string, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	query := `SELECT id FROM ` + table + ` WHERE owner_id = $1 AND id = ANY($2::uuid[]) AND deleted_at IS NULL`

	rows, err := q.Query(ctx, query, ownerID, ids)
	if err != nil {
		return nil, errFailedSelectOwnedIDs(err)
	}
	defer rows.Close()

	matched := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errFailedSelectOwnedIDs(err)
		}
		matched = append(matched, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedIterateRows(err)
	}
	return matched, nil
}
