package service

import (
	"context"
	"io"
	"strings"
	"time"

	"docshare/internal/domain/file"
	"docshare/internal/storage"
	apperrors "docshare/pkg/errors"
	"docshare/pkg/logger"
	"docshare/pkg/validator"

	"github.com/google/uuid"
)

type UploadInput struct {
	OwnerID     uuid.UUID
	FolderID    *uuid.UUID
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileService manages file records and the blobs behind them.
type FileService struct {
	tx            Transactor
	folders       FolderStore
	files         FileStore
	blobs         storage.BlobStore
	maxUploadSize int64
	quota         int64
	policy        validator.UploadPolicy
	now           Clock
}

func NewFileService(tx Transactor, folders FolderStore, files FileStore, blobs storage.BlobStore, maxUploadSize, quota int64, policy validator.UploadPolicy) *FileService {
	return &FileService{
		tx:            tx,
		folders:       folders,
		files:         files,
		blobs:         blobs,
		maxUploadSize: maxUploadSize,
		quota:         quota,
		policy:        policy,
		now:           time.Now,
	}
}

// Upload writes the blob first and then the record. The stored size is
// read back from the blob store. If the record cannot be written the blob
// is removed again.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*file.File, error) {
	name := strings.TrimSpace(in.Name)
	if err := validator.FileName(name); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.FileSize(in.Size, s.maxUploadSize); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := validator.ContentType(in.ContentType); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := s.policy.Check(name, in.ContentType); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if in.FolderID != nil {
		if err := s.ensureActiveFolder(ctx, in.OwnerID, *in.FolderID); err != nil {
			return nil, err
		}
	}

	if err := s.ensureQuota(ctx, in.OwnerID, in.Size); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := storage.BuildObjectKey(in.OwnerID, id, name, s.now())
	mimeType := file.ResolveMimeType(name, in.ContentType)

	if err := s.blobs.Put(ctx, key, in.Body, in.Size, mimeType); err != nil {
		return nil, apperrors.Storage(msgUploadFailed, err)
	}

	size, err := s.blobs.Size(ctx, key)
	if err != nil {
		s.discardBlob(ctx, key)
		return nil, apperrors.Storage(msgUploadFailed, err)
	}

	var created *file.File
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.FolderID != nil {
			folder, err := s.folders.LockOwned(ctx, *in.FolderID, in.OwnerID)
			if err != nil {
				return err
			}
			if folder.IsTrashed() {
				return apperrors.Validation(msgParentTrashed)
			}
		}

		f, err := s.files.Create(ctx, file.CreateFileInput{
			ID:        id,
			OwnerID:   in.OwnerID,
			FolderID:  in.FolderID,
			Name:      name,
			BlobKey:   key,
			SizeBytes: size,
			MimeType:  mimeType,
		})
		if err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		s.discardBlob(ctx, key)
		return nil, err
	}

	return created, nil
}

func (s *FileService) ensureQuota(ctx context.Context, ownerID uuid.UUID, incoming int64) error {
	if s.quota <= 0 {
		return nil
	}

	used, err := s.files.SumOwnerActiveSize(ctx, ownerID)
	if err != nil {
		return err
	}
	if used+incoming > s.quota {
		return apperrors.QuotaExceeded(msgQuotaExceeded)
	}
	return nil
}

func (s *FileService) ensureActiveFolder(ctx context.Context, ownerID, folderID uuid.UUID) error {
	folder, err := s.folders.GetOwned(ctx, folderID, ownerID)
	if err != nil {
		return err
	}
	if folder.IsTrashed() {
		return apperrors.Validation(msgParentTrashed)
	}
	return nil
}

func (s *FileService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Error().Err(err).Str("blob_key", key).Msg("failed to remove orphaned blob")
	}
}

func (s *FileService) Get(ctx context.Context, ownerID, id uuid.UUID) (*file.File, error) {
	return s.files.GetOwned(ctx, id, ownerID)
}

// Open returns the file and a reader over its content for download or
// preview, and records the access. The caller closes the reader.
func (s *FileService) Open(ctx context.Context, ownerID, id uuid.UUID) (*file.File, io.ReadCloser, error) {
	f, err := s.files.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if f.IsTrashed() {
		return nil, nil, apperrors.NotFound(msgFileNotFound)
	}

	return openAndMark(ctx, s.files, s.blobs, f, s.now())
}

func openAndMark(ctx context.Context, files FileStore, blobs storage.BlobStore, f *file.File, now time.Time) (*file.File, io.ReadCloser, error) {
	body, err := blobs.Open(ctx, f.BlobKey)
	if err != nil {
		return nil, nil, apperrors.Storage(msgDownloadFailed, err)
	}

	if err := files.MarkAccessed(ctx, f.ID, now); err != nil {
		_ = body.Close()
		return nil, nil, err
	}
	f.LastAccessedAt = &now

	return f, body, nil
}

func (s *FileService) Rename(ctx context.Context, ownerID, id uuid.UUID, name string) (*file.File, error) {
	name = strings.TrimSpace(name)
	if err := validator.FileName(name); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var renamed *file.File
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, err := s.files.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if err := s.files.UpdateName(ctx, f.ID, name); err != nil {
			return err
		}
		f.Name = name
		renamed = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	return renamed, nil
}

// Move places the file in folderID, or at the root level when it is nil.
func (s *FileService) Move(ctx context.Context, ownerID, id uuid.UUID, folderID *uuid.UUID) (*file.File, error) {
	var moved *file.File
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, err := s.files.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if folderID != nil {
			if err := s.ensureActiveFolder(ctx, ownerID, *folderID); err != nil {
				return err
			}
		}

		if err := s.files.UpdateFolder(ctx, f.ID, folderID); err != nil {
			return err
		}
		f.FolderID = folderID
		moved = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	return moved, nil
}

func (s *FileService) MoveToTrash(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, err := s.files.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		now := s.now()
		return s.files.SetDeletedAt(ctx, f.ID, &now)
	})
}

// RestoreFromTrash clears the trash stamp. A file whose folder is still
// trashed is restored to the root level.
func (s *FileService) RestoreFromTrash(ctx context.Context, ownerID, id uuid.UUID) (*file.File, error) {
	var restored *file.File
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, err := s.files.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if f.FolderID != nil {
			folder, err := s.folders.Get(ctx, *f.FolderID)
			if err != nil {
				return err
			}
			if folder.IsTrashed() {
				if err := s.files.UpdateFolder(ctx, f.ID, nil); err != nil {
					return err
				}
				f.FolderID = nil
			}
		}

		if err := s.files.SetDeletedAt(ctx, f.ID, nil); err != nil {
			return err
		}
		f.DeletedAt = nil
		restored = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	return restored, nil
}

func (s *FileService) ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID) (*file.File, error) {
	var toggled *file.File
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, err := s.files.LockOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if err := s.files.SetFavorite(ctx, f.ID, !f.IsFavorite); err != nil {
			return err
		}
		f.IsFavorite = !f.IsFavorite
		toggled = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toggled, nil
}

// Recent lists active files by last access, most recent first.
func (s *FileService) Recent(ctx context.Context, ownerID uuid.UUID, limit int) ([]*file.File, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.files.ListRecent(ctx, ownerID, limit)
}

// DeletePermanently removes a trashed file's blob and then its record.
func (s *FileService) DeletePermanently(ctx context.Context, ownerID, id uuid.UUID) error {
	f, err := s.files.GetOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !f.IsTrashed() {
		return apperrors.Validation(msgFileNotTrashed)
	}

	if err := s.blobs.Delete(ctx, f.BlobKey); err != nil {
		return apperrors.Storage(msgDeleteBlobFailed, err)
	}

	return s.files.Delete(ctx, f.ID)
}
