package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"docshare/internal/domain/file"
	apperrors "docshare/pkg/errors"
	"docshare/pkg/validator"

	"github.com/google/uuid"
)

// FolderService owns the folder tree: hierarchy checks, paths, sizes and
// the trash cascade.
type FolderService struct {
	tx          Transactor
	folders     FolderStore
	files       FileStore
	searchLimit int
	now         Clock
}

func NewFolderService(tx Transactor, folders FolderStore, files FileStore, searchLimit int) *FolderService {
	return &FolderService{
		tx:          tx,
		folders:     folders,
		files:       files,
		searchLimit: searchLimit,
		now:         time.Now,
	}
}

func (s *FolderService) Create(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (*file.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validator.FolderName(name); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var created *file.Folder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if parentID != nil {
			if _, err := s.activeParent(ctx, ownerID, *parentID); err != nil {
				return err
			}
		}

		if err := s.ensureNameFree(ctx, ownerID, parentID, name, nil); err != nil {
			return err
		}

		folder, err := s.folders.Create(ctx, file.CreateFolderInput{
			OwnerID:  ownerID,
			ParentID: parentID,
			Name:     name,
		})
		if err != nil {
			return err
		}
		created = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *FolderService) Get(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error) {
	return s.folders.GetOwned(ctx, id, ownerID)
}

func (s *FolderService) Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*file.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validator.FolderName(name); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var renamed *file.Folder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		folder, err := s.folders.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if folder.Name == name {
			renamed = folder
			return nil
		}

		if err := s.ensureNameFree(ctx, ownerID, folder.ParentID, name, &folder.ID); err != nil {
			return err
		}

		if err := s.folders.UpdateName(ctx, folder.ID, name); err != nil {
			return err
		}
		folder.Name = name
		renamed = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return renamed, nil
}

// Reparent moves a folder under newParentID, or to the root level when it
// is nil. Moving a folder into itself or any of its descendants fails.
func (s *FolderService) Reparent(ctx context.Context, ownerID, id uuid.UUID, newParentID *uuid.UUID) (*file.Folder, error) {
	var moved *file.Folder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		folder, err := s.folders.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if newParentID != nil {
			if *newParentID == folder.ID {
				return apperrors.Validation(msgFolderCycle)
			}
			parent, err := s.folders.LockOwned(ctx, *newParentID, ownerID)
			if err != nil {
				return err
			}
			if parent.IsTrashed() {
				return apperrors.Validation(msgParentTrashed)
			}
			if err := s.ensureNotDescendant(ctx, folder.ID, *newParentID); err != nil {
				return err
			}
		}

		if err := s.ensureNameFree(ctx, ownerID, newParentID, folder.Name, &folder.ID); err != nil {
			return err
		}

		if err := s.folders.UpdateParent(ctx, folder.ID, newParentID); err != nil {
			return err
		}
		folder.ParentID = newParentID
		moved = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return moved, nil
}

// Breadcrumbs returns the folder's ancestors from the root down to the
// folder itself.
func (s *FolderService) Breadcrumbs(ctx context.Context, ownerID, id uuid.UUID) ([]*file.Folder, error) {
	folder, err := s.folders.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return s.ancestry(ctx, folder)
}

// Path returns the names from the root to the folder. Its length is the
// folder's depth plus one.
func (s *FolderService) Path(ctx context.Context, ownerID, id uuid.UUID) ([]string, error) {
	chain, err := s.Breadcrumbs(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return folderNames(chain), nil
}

func (s *FolderService) PathString(ctx context.Context, ownerID, id uuid.UUID) (string, error) {
	names, err := s.Path(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return JoinPath(names), nil
}

func JoinPath(names []string) string {
	return strings.Join(names, "/")
}

func folderNames(chain []*file.Folder) []string {
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name
	}
	return names
}

func (s *FolderService) ancestry(ctx context.Context, folder *file.Folder) ([]*file.Folder, error) {
	chain := []*file.Folder{folder}
	seen := map[uuid.UUID]struct{}{folder.ID: {}}

	for current := folder; current.ParentID != nil; {
		if _, ok := seen[*current.ParentID]; ok {
			return nil, apperrors.InternalServer(msgFolderHierarchyLoop, nil)
		}

		parent, err := s.folders.Get(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		seen[parent.ID] = struct{}{}
		chain = append(chain, parent)
		current = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

// Size sums active files in the folder and in every active subfolder.
// Trashed subfolders are not descended into.
func (s *FolderService) Size(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	folder, err := s.folders.GetOwned(ctx, id, ownerID)
	if err != nil {
		return 0, err
	}
	return s.treeSize(ctx, folder.ID)
}

func (s *FolderService) treeSize(ctx context.Context, rootID uuid.UUID) (int64, error) {
	var total int64
	seen := make(map[uuid.UUID]struct{})
	pending := []uuid.UUID{rootID}

	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		size, err := s.files.SumActiveSize(ctx, id)
		if err != nil {
			return 0, err
		}
		total += size

		children, err := s.folders.ListChildren(ctx, id)
		if err != nil {
			return 0, err
		}
		for _, child := range children {
			if !child.IsTrashed() {
				pending = append(pending, child.ID)
			}
		}
	}

	return total, nil
}

// MoveToTrash stamps the folder and every descendant with the current time,
// including descendants that were already trashed.
func (s *FolderService) MoveToTrash(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		folder, err := s.folders.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		now := s.now()
		return cascadeTrash(ctx, s.folders, s.files, folder.ID, &now)
	})
}

// RestoreFromTrash clears the trash stamp on the folder and every
// descendant. A folder whose parent is still trashed is restored to the
// root level so that it stays reachable.
func (s *FolderService) RestoreFromTrash(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error) {
	var restored *file.Folder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		folder, err := s.folders.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if folder.ParentID != nil {
			parent, err := s.folders.Get(ctx, *folder.ParentID)
			if err != nil {
				return err
			}
			if parent.IsTrashed() {
				if err := s.ensureNameFree(ctx, ownerID, nil, folder.Name, &folder.ID); err != nil {
					return err
				}
				if err := s.folders.UpdateParent(ctx, folder.ID, nil); err != nil {
					return err
				}
				folder.ParentID = nil
			}
		}

		if err := cascadeTrash(ctx, s.folders, s.files, folder.ID, nil); err != nil {
			return err
		}
		folder.DeletedAt = nil
		restored = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return restored, nil
}

// cascadeTrash sets deleted_at on the folder, its files and all folders
// below it. A nil at restores. The walk never stops at children that are
// already in the requested state.
func cascadeTrash(ctx context.Context, folders FolderStore, files FileStore, rootID uuid.UUID, at *time.Time) error {
	seen := make(map[uuid.UUID]struct{})
	pending := []uuid.UUID{rootID}

	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if err := folders.SetDeletedAt(ctx, id, at); err != nil {
			return err
		}
		if _, err := files.SetDeletedAtByFolder(ctx, id, at); err != nil {
			return err
		}

		children, err := folders.ListChildren(ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			pending = append(pending, child.ID)
		}
	}

	return nil
}

func (s *FolderService) ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error) {
	var toggled *file.Folder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		folder, err := s.folders.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if err := s.folders.SetFavorite(ctx, folder.ID, !folder.IsFavorite); err != nil {
			return err
		}
		folder.IsFavorite = !folder.IsFavorite
		toggled = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toggled, nil
}

// Contents lists the active children of a folder, or of the root level
// when folderID is nil.
func (s *FolderService) Contents(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) (*file.Contents, error) {
	contents := &file.Contents{}

	if folderID != nil {
		folder, err := s.folders.GetOwned(ctx, *folderID, ownerID)
		if err != nil {
			return nil, err
		}
		if folder.IsTrashed() {
			return nil, apperrors.NotFound(msgFolderNotFound)
		}
		contents.Folder = folder
	}

	folders, err := s.folders.ListActive(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListActive(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	contents.Folders = folders
	contents.Files = files
	return contents, nil
}

func (s *FolderService) Favorites(ctx context.Context, ownerID uuid.UUID) (*file.Contents, error) {
	folders, err := s.folders.ListFavorites(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListFavorites(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &file.Contents{Folders: folders, Files: files}, nil
}

// Trash lists the top-level trashed folders and files of an owner.
func (s *FolderService) Trash(ctx context.Context, ownerID uuid.UUID) (*file.Contents, error) {
	folders, err := s.folders.ListTrashed(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListTrashed(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &file.Contents{Folders: folders, Files: files}, nil
}

// Search matches names case-insensitively across active folders and files.
func (s *FolderService) Search(ctx context.Context, ownerID uuid.UUID, query string) (*file.Contents, error) {
	query = strings.TrimSpace(query)
	if err := validator.SearchQuery(query); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	contents := &file.Contents{Folders: []*file.Folder{}, Files: []*file.File{}}
	if query == "" {
		return contents, nil
	}

	folders, err := s.folders.Search(ctx, ownerID, query, s.searchLimit)
	if err != nil {
		return nil, err
	}
	files, err := s.files.Search(ctx, ownerID, query, s.searchLimit)
	if err != nil {
		return nil, err
	}

	contents.Folders = folders
	contents.Files = files
	return contents, nil
}

// activeParent returns the owned, non-trashed folder that new children are
// placed into.
func (s *FolderService) activeParent(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error) {
	parent, err := s.folders.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if parent.IsTrashed() {
		return nil, apperrors.Validation(msgParentTrashed)
	}
	return parent, nil
}

func (s *FolderService) ensureNameFree(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, excludeID *uuid.UUID) error {
	exists, err := s.folders.NameExists(ctx, ownerID, parentID, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.Validation(msgFolderNameTaken)
	}
	return nil
}

// ensureNotDescendant walks up from candidateID and fails if folderID is
// one of its ancestors.
func (s *FolderService) ensureNotDescendant(ctx context.Context, folderID, candidateID uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{})

	for current := &candidateID; current != nil; {
		if *current == folderID {
			return apperrors.Validation(msgFolderCycle)
		}
		if _, ok := seen[*current]; ok {
			return apperrors.InternalServer(msgFolderHierarchyLoop, nil)
		}
		seen[*current] = struct{}{}

		folder, err := s.folders.Get(ctx, *current)
		if err != nil {
			return err
		}
		current = folder.ParentID
	}

	return nil
}
