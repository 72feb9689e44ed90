package service

import (
	"context"
	"time"

	"docshare/internal/audit"
	"docshare/internal/domain/file"
	"docshare/internal/domain/share"

	"github.com/google/uuid"
)

// Consumer-side interfaces defined by services
// Each interface contains only the methods the services need

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type FolderStore interface {
	Create(ctx context.Context, input file.CreateFolderInput) (*file.Folder, error)
	Get(ctx context.Context, id uuid.UUID) (*file.Folder, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.Folder, error)
	LockOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.Folder, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*file.Folder, error)
	ListActive(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*file.Folder, error)
	NameExists(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, excludeID *uuid.UUID) (bool, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	SetDeletedAt(ctx context.Context, id uuid.UUID, at *time.Time) error
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	SelectOwnedActive(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
	SetFavoriteByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, favorite bool) (int64, error)
	ListFavorites(ctx context.Context, ownerID uuid.UUID) ([]*file.Folder, error)
	ListTrashed(ctx context.Context, ownerID uuid.UUID) ([]*file.Folder, error)
	Search(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]*file.Folder, error)
	CountActive(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type FileStore interface {
	Create(ctx context.Context, input file.CreateFileInput) (*file.File, error)
	Get(ctx context.Context, id uuid.UUID) (*file.File, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.File, error)
	LockOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.File, error)
	ListActive(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]*file.File, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateFolder(ctx context.Context, id uuid.UUID, folderID *uuid.UUID) error
	SetDeletedAt(ctx context.Context, id uuid.UUID, at *time.Time) error
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	MarkAccessed(ctx context.Context, id uuid.UUID, at time.Time) error
	SetDeletedAtByFolder(ctx context.Context, folderID uuid.UUID, at *time.Time) (int64, error)
	SelectOwnedActive(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
	SetDeletedAtByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, at *time.Time) (int64, error)
	SetFavoriteByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, favorite bool) (int64, error)
	MoveByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, folderID *uuid.UUID) (int64, error)
	SumActiveSize(ctx context.Context, folderID uuid.UUID) (int64, error)
	SumOwnerActiveSize(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountActive(ctx context.Context, ownerID uuid.UUID) (int64, error)
	ListFavorites(ctx context.Context, ownerID uuid.UUID) ([]*file.File, error)
	ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]*file.File, error)
	ListTrashed(ctx context.Context, ownerID uuid.UUID) ([]*file.File, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]*file.File, error)
}

type ShareStore interface {
	Create(ctx context.Context, input share.CreateShareInput) (*share.Share, error)
	Get(ctx context.Context, id uuid.UUID) (*share.Share, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*share.Share, error)
	FindActiveByTarget(ctx context.Context, target share.Target) (*share.Share, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error
	ReplaceAllowedUsers(ctx context.Context, id uuid.UUID, users []uuid.UUID) error
	IncrementAccessCount(ctx context.Context, id uuid.UUID) (int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*share.Share, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// VerificationStore remembers which visitor sessions passed a share's
// password check.
type VerificationStore interface {
	Remember(ctx context.Context, shareID uuid.UUID, sessionID, fingerprint string, ttl time.Duration) error
	Verified(ctx context.Context, shareID uuid.UUID, sessionID, fingerprint string) (bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(candidate, hash string) bool
}

type AuditRecorder interface {
	Record(event audit.Event)
}

// ShareMetrics receives share gate outcomes.
type ShareMetrics interface {
	IncShareGrant()
	IncShareDenial()
	IncPasswordFailure()
}

type Clock func() time.Time
