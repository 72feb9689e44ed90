package handler

import (
	"context"
	"io"

	"docshare/internal/audit"
	"docshare/internal/domain/file"
	"docshare/internal/domain/share"
	"docshare/internal/service"
	"docshare/internal/sweeper"

	"github.com/google/uuid"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// FolderHandler interfaces
type FolderManager interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (*file.Folder, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error)
	Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*file.Folder, error)
	Reparent(ctx context.Context, ownerID, id uuid.UUID, newParentID *uuid.UUID) (*file.Folder, error)
	Breadcrumbs(ctx context.Context, ownerID, id uuid.UUID) ([]*file.Folder, error)
	Size(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
	MoveToTrash(ctx context.Context, ownerID, id uuid.UUID) error
	RestoreFromTrash(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error)
	ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID) (*file.Folder, error)
	Contents(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) (*file.Contents, error)
}

// FileHandler interfaces
type FileManager interface {
	Upload(ctx context.Context, in service.UploadInput) (*file.File, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*file.File, error)
	Open(ctx context.Context, ownerID, id uuid.UUID) (*file.File, io.ReadCloser, error)
	Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*file.File, error)
	Move(ctx context.Context, ownerID, id uuid.UUID, folderID *uuid.UUID) (*file.File, error)
	MoveToTrash(ctx context.Context, ownerID, id uuid.UUID) error
	RestoreFromTrash(ctx context.Context, ownerID, id uuid.UUID) (*file.File, error)
	ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID) (*file.File, error)
	DeletePermanently(ctx context.Context, ownerID, id uuid.UUID) error
}

// BulkHandler interfaces
type BulkApplier interface {
	ApplyToFiles(ctx context.Context, ownerID uuid.UUID, req service.BulkRequest) (*service.BulkResult, error)
	ApplyToFolders(ctx context.Context, ownerID uuid.UUID, req service.BulkRequest) (*service.BulkResult, error)
}

// LibraryHandler interfaces
type LibraryLister interface {
	Favorites(ctx context.Context, ownerID uuid.UUID) (*file.Contents, error)
	Trash(ctx context.Context, ownerID uuid.UUID) (*file.Contents, error)
	Search(ctx context.Context, ownerID uuid.UUID, query string) (*file.Contents, error)
}

type RecentLister interface {
	Recent(ctx context.Context, ownerID uuid.UUID, limit int) ([]*file.File, error)
}

type UsageReporter interface {
	Usage(ctx context.Context, ownerID uuid.UUID) (*service.Usage, error)
}

type TrashSweeper interface {
	Run(ctx context.Context, opts sweeper.Options) (*sweeper.Report, error)
}

// ShareHandler interfaces
type ShareManager interface {
	GetOrCreate(ctx context.Context, ownerID uuid.UUID, target share.Target) (*share.Share, bool, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*share.Share, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*share.Share, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, u service.ShareUpdate) (*share.Share, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type ShareEventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Event, error)
}

// PublicShareHandler interfaces
type SharePortal interface {
	Access(ctx context.Context, shareID uuid.UUID, v service.Visitor, subfolderID *uuid.UUID) (*service.SharedContent, error)
	OpenSharedFile(ctx context.Context, shareID uuid.UUID, v service.Visitor, fileID *uuid.UUID) (*file.File, io.ReadCloser, error)
	VerifyPassword(ctx context.Context, shareID uuid.UUID, v service.Visitor, candidate string) error
}
