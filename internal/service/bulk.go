package service

import (
	"context"
	"time"

	apperrors "docshare/pkg/errors"

	"github.com/google/uuid"
)

type BulkAction string

const (
	BulkTrash      BulkAction = "trash"
	BulkFavorite   BulkAction = "favorite"
	BulkUnfavorite BulkAction = "unfavorite"
	BulkMove       BulkAction = "move"
)

type BulkRequest struct {
	Action BulkAction
	IDs    []uuid.UUID
	// TargetFolderID is the destination of a move. Nil moves to the root.
	TargetFolderID *uuid.UUID
}

// BulkResult reports which of the requested ids were acted on. Ids that
// are not owned by the caller, are trashed or do not exist are skipped.
type BulkResult struct {
	Action    BulkAction  `json:"action"`
	Processed []uuid.UUID `json:"processed"`
	Skipped   []uuid.UUID `json:"skipped"`
}

// BulkService applies one action to many items of a single owner inside
// one transaction.
type BulkService struct {
	tx      Transactor
	folders FolderStore
	files   FileStore
	now     Clock
}

func NewBulkService(tx Transactor, folders FolderStore, files FileStore) *BulkService {
	return &BulkService{tx: tx, folders: folders, files: files, now: time.Now}
}

func (s *BulkService) ApplyToFiles(ctx context.Context, ownerID uuid.UUID, req BulkRequest) (*BulkResult, error) {
	ids, err := normalizeBulkIDs(req.IDs)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case BulkTrash, BulkFavorite, BulkUnfavorite, BulkMove:
	default:
		return nil, apperrors.Validation(msgBulkUnknownAction)
	}

	var matched []uuid.UUID
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		matched, err = s.files.SelectOwnedActive(ctx, ownerID, ids)
		if err != nil {
			return err
		}
		if len(matched) == 0 {
			return nil
		}

		switch req.Action {
		case BulkTrash:
			now := s.now()
			_, err = s.files.SetDeletedAtByIDs(ctx, ownerID, matched, &now)
		case BulkFavorite:
			_, err = s.files.SetFavoriteByIDs(ctx, ownerID, matched, true)
		case BulkUnfavorite:
			_, err = s.files.SetFavoriteByIDs(ctx, ownerID, matched, false)
		case BulkMove:
			if req.TargetFolderID != nil {
				folder, lockErr := s.folders.LockOwned(ctx, *req.TargetFolderID, ownerID)
				if lockErr != nil {
					return lockErr
				}
				if folder.IsTrashed() {
					return apperrors.Validation(msgParentTrashed)
				}
			}
			_, err = s.files.MoveByIDs(ctx, ownerID, matched, req.TargetFolderID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return newBulkResult(req.Action, ids, matched), nil
}

// ApplyToFolders supports trash, favorite and unfavorite. Trashing cascades
// through each selected folder's subtree.
func (s *BulkService) ApplyToFolders(ctx context.Context, ownerID uuid.UUID, req BulkRequest) (*BulkResult, error) {
	ids, err := normalizeBulkIDs(req.IDs)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case BulkTrash, BulkFavorite, BulkUnfavorite:
	default:
		return nil, apperrors.Validation(msgBulkUnknownAction)
	}

	var matched []uuid.UUID
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		matched, err = s.folders.SelectOwnedActive(ctx, ownerID, ids)
		if err != nil {
			return err
		}
		if len(matched) == 0 {
			return nil
		}

		switch req.Action {
		case BulkTrash:
			now := s.now()
			for _, id := range matched {
				if _, err := s.folders.LockOwned(ctx, id, ownerID); err != nil {
					return err
				}
				if err := cascadeTrash(ctx, s.folders, s.files, id, &now); err != nil {
					return err
				}
			}
		case BulkFavorite:
			_, err = s.folders.SetFavoriteByIDs(ctx, ownerID, matched, true)
		case BulkUnfavorite:
			_, err = s.folders.SetFavoriteByIDs(ctx, ownerID, matched, false)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return newBulkResult(req.Action, ids, matched), nil
}

func normalizeBulkIDs(ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validation(msgBulkNoItems)
	}
	if len(ids) > maxBulkItems {
		return nil, apperrors.Validation(msgBulkTooManyItems)
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique, nil
}

func newBulkResult(action BulkAction, requested, matched []uuid.UUID) *BulkResult {
	hit := make(map[uuid.UUID]struct{}, len(matched))
	for _, id := range matched {
		hit[id] = struct{}{}
	}

	result := &BulkResult{
		Action:    action,
		Processed: make([]uuid.UUID, 0, len(matched)),
		Skipped:   make([]uuid.UUID, 0),
	}
	for _, id := range requested {
		if _, ok := hit[id]; ok {
			result.Processed = append(result.Processed, id)
		} else {
			result.Skipped = append(result.Skipped, id)
		}
	}
	return result
}
