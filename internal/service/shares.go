package service

import (
	"context"
	"errors"
	"io"
	"slices"
	"time"

	"docshare/internal/audit"
	"docshare/internal/domain/file"
	"docshare/internal/domain/share"
	"docshare/internal/storage"
	apperrors "docshare/pkg/errors"
	"docshare/pkg/password"
	"docshare/pkg/validator"

	"github.com/google/uuid"
)

// Visitor is the caller of a public share route plus request details kept
// for the audit trail.
type Visitor struct {
	share.Caller
	IPAddress string
	UserAgent string
	RequestID string
}

// SharedContent is what a granted share resolves to. For a folder share,
// Folder is the folder being browsed and Breadcrumbs runs from the shared
// folder down to it.
type SharedContent struct {
	Share       *share.Share
	File        *file.File
	Folder      *file.Folder
	Breadcrumbs []*file.Folder
	Folders     []*file.Folder
	Files       []*file.File
}

// ShareUpdate holds the owner-editable settings of a share. Nil fields are
// left unchanged. An empty Password removes the password.
type ShareUpdate struct {
	Password     *string
	Active       *bool
	ExpiresAt    *time.Time
	ClearExpiry  bool
	AllowedUsers *[]uuid.UUID
}

type ShareDeps struct {
	Tx              Transactor
	Shares          ShareStore
	Folders         FolderStore
	Files           FileStore
	Blobs           storage.BlobStore
	Verifications   VerificationStore
	Hasher          PasswordHasher
	Audit           AuditRecorder
	Metrics         ShareMetrics
	VerificationTTL time.Duration
}

type ShareService struct {
	tx              Transactor
	shares          ShareStore
	folders         FolderStore
	files           FileStore
	blobs           storage.BlobStore
	verifications   VerificationStore
	hasher          PasswordHasher
	audit           AuditRecorder
	metrics         ShareMetrics
	verificationTTL time.Duration
	now             Clock
}

func NewShareService(deps ShareDeps) *ShareService {
	s := &ShareService{
		tx:              deps.Tx,
		shares:          deps.Shares,
		folders:         deps.Folders,
		files:           deps.Files,
		blobs:           deps.Blobs,
		verifications:   deps.Verifications,
		hasher:          deps.Hasher,
		audit:           deps.Audit,
		metrics:         deps.Metrics,
		verificationTTL: deps.VerificationTTL,
		now:             time.Now,
	}
	if s.audit == nil {
		s.audit = discardAudit{}
	}
	if s.metrics == nil {
		s.metrics = discardMetrics{}
	}
	return s
}

// GetOrCreate returns the active share for target, creating one if none
// exists. The target row is locked first so concurrent calls for the same
// item agree on a single share.
func (s *ShareService) GetOrCreate(ctx context.Context, ownerID uuid.UUID, target share.Target) (*share.Share, bool, error) {
	if err := target.Validate(); err != nil {
		return nil, false, apperrors.Validation(err.Error())
	}

	var (
		result  *share.Share
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockTarget(ctx, ownerID, target); err != nil {
			return err
		}

		existing, err := s.shares.FindActiveByTarget(ctx, target)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		sh, err := s.shares.Create(ctx, share.CreateShareInput{OwnerID: ownerID, Target: target})
		if err != nil {
			return err
		}
		result = sh
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return result, created, nil
}

func (s *ShareService) lockTarget(ctx context.Context, ownerID uuid.UUID, target share.Target) error {
	var trashed bool
	if target.IsFile() {
		f, err := s.files.LockOwned(ctx, *target.FileID, ownerID)
		if err != nil {
			return err
		}
		trashed = f.IsTrashed()
	} else {
		folder, err := s.folders.LockOwned(ctx, *target.FolderID, ownerID)
		if err != nil {
			return err
		}
		trashed = folder.IsTrashed()
	}

	if trashed {
		return apperrors.Validation(msgShareTrashedTarget)
	}
	return nil
}

// Access runs the share gate and, when granted, resolves the shared item.
// For folder shares subfolderID selects a folder inside the shared subtree.
func (s *ShareService) Access(ctx context.Context, shareID uuid.UUID, v Visitor, subfolderID *uuid.UUID) (*SharedContent, error) {
	sh, err := s.authorize(ctx, shareID, v, audit.ActionAccess)
	if err != nil {
		return nil, err
	}

	content := &SharedContent{Share: sh}
	if sh.FileID != nil {
		if subfolderID != nil {
			return nil, apperrors.NotFound(msgFolderNotFound)
		}
		f, err := s.activeFile(ctx, *sh.FileID)
		if err != nil {
			return nil, err
		}
		content.File = f
	} else {
		browse := *sh.FolderID
		if subfolderID != nil {
			browse = *subfolderID
		}
		chain, err := s.chainWithin(ctx, browse, *sh.FolderID)
		if err != nil {
			return nil, err
		}
		current := chain[len(chain)-1]

		folders, err := s.folders.ListActive(ctx, current.OwnerID, &current.ID)
		if err != nil {
			return nil, err
		}
		files, err := s.files.ListActive(ctx, current.OwnerID, &current.ID)
		if err != nil {
			return nil, err
		}
		content.Folder = current
		content.Breadcrumbs = chain
		content.Folders = folders
		content.Files = files
	}

	if err := s.countAccess(ctx, sh); err != nil {
		return nil, err
	}
	s.metrics.IncShareGrant()
	s.record(v, sh, audit.ActionAccess, audit.StatusSuccess, "")

	return content, nil
}

// OpenSharedFile runs the share gate and opens a file for download. A file
// share serves its own file. A folder share serves fileID when it lies
// inside the shared subtree.
func (s *ShareService) OpenSharedFile(ctx context.Context, shareID uuid.UUID, v Visitor, fileID *uuid.UUID) (*file.File, io.ReadCloser, error) {
	sh, err := s.authorize(ctx, shareID, v, audit.ActionDownload)
	if err != nil {
		return nil, nil, err
	}

	var f *file.File
	if sh.FileID != nil {
		if fileID != nil && *fileID != *sh.FileID {
			return nil, nil, apperrors.NotFound(msgFileNotFound)
		}
		f, err = s.activeFile(ctx, *sh.FileID)
	} else {
		if fileID == nil {
			return nil, nil, apperrors.Validation(msgShareFileRequired)
		}
		f, err = s.fileWithin(ctx, *fileID, *sh.FolderID)
	}
	if err != nil {
		return nil, nil, err
	}

	f, body, err := openAndMark(ctx, s.files, s.blobs, f, s.now())
	if err != nil {
		return nil, nil, err
	}

	if err := s.countAccess(ctx, sh); err != nil {
		_ = body.Close()
		return nil, nil, err
	}
	s.metrics.IncShareGrant()
	s.record(v, sh, audit.ActionDownload, audit.StatusSuccess, "")

	return f, body, nil
}

// VerifyPassword checks a candidate password and remembers a success for
// the visitor's session. Shares without a password always accept.
func (s *ShareService) VerifyPassword(ctx context.Context, shareID uuid.UUID, v Visitor, candidate string) error {
	sh, err := s.shares.Get(ctx, shareID)
	if err != nil {
		return err
	}
	if !sh.HasPassword() {
		return nil
	}
	if v.SessionID == "" {
		return apperrors.Validation(msgSessionRequired)
	}

	if !s.hasher.Verify(candidate, sh.PasswordHash) {
		s.metrics.IncPasswordFailure()
		s.record(v, sh, audit.ActionVerifyPassword, audit.StatusFailure, "incorrect password")
		return apperrors.IncorrectPassword()
	}

	fingerprint := password.Fingerprint(sh.PasswordHash)
	if err := s.verifications.Remember(ctx, sh.ID, v.SessionID, fingerprint, s.verificationTTL); err != nil {
		return apperrors.Storage(msgVerificationFailed, err)
	}
	s.record(v, sh, audit.ActionVerifyPassword, audit.StatusSuccess, "")
	return nil
}

// authorize loads the share and evaluates it for the visitor. Denials are
// counted and audited here.
func (s *ShareService) authorize(ctx context.Context, shareID uuid.UUID, v Visitor, action audit.Action) (*share.Share, error) {
	sh, err := s.shares.Get(ctx, shareID)
	if err != nil {
		return nil, err
	}

	caller := v.Caller
	if sh.HasPassword() && !caller.PasswordVerified && caller.SessionID != "" {
		ok, err := s.verifications.Verified(ctx, sh.ID, caller.SessionID, password.Fingerprint(sh.PasswordHash))
		if err != nil {
			return nil, apperrors.Storage(msgVerificationFailed, err)
		}
		caller.PasswordVerified = ok
	}

	decision := share.Evaluate(sh, caller, s.now())
	switch decision.State {
	case share.StateGranted:
		return sh, nil
	case share.StatePasswordRequired:
		return nil, apperrors.PasswordRequired()
	default:
		s.metrics.IncShareDenial()
		s.record(v, sh, action, audit.StatusDenied, decision.State.String())
		return nil, apperrors.ShareDenied(decision.Reason)
	}
}

func (s *ShareService) countAccess(ctx context.Context, sh *share.Share) error {
	count, err := s.shares.IncrementAccessCount(ctx, sh.ID)
	if err != nil {
		return err
	}
	sh.AccessCount = count
	return nil
}

func (s *ShareService) activeFile(ctx context.Context, id uuid.UUID) (*file.File, error) {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.IsTrashed() {
		return nil, apperrors.NotFound(msgFileNotFound)
	}
	return f, nil
}

func (s *ShareService) fileWithin(ctx context.Context, fileID, rootID uuid.UUID) (*file.File, error) {
	f, err := s.activeFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.FolderID == nil {
		return nil, apperrors.NotFound(msgFileNotFound)
	}
	if _, err := s.chainWithin(ctx, *f.FolderID, rootID); err != nil {
		return nil, apperrors.NotFound(msgFileNotFound)
	}
	return f, nil
}

// chainWithin walks up from folderID to rootID and returns the active
// folders on the way, root first. Anything outside the subtree, or any
// trashed folder on the path, is reported as not found.
func (s *ShareService) chainWithin(ctx context.Context, folderID, rootID uuid.UUID) ([]*file.Folder, error) {
	var chain []*file.Folder
	seen := make(map[uuid.UUID]struct{})

	for current := folderID; ; {
		if _, ok := seen[current]; ok {
			return nil, apperrors.NotFound(msgFolderNotFound)
		}
		seen[current] = struct{}{}

		folder, err := s.folders.Get(ctx, current)
		if err != nil {
			return nil, err
		}
		if folder.IsTrashed() {
			return nil, apperrors.NotFound(msgFolderNotFound)
		}
		chain = append(chain, folder)

		if folder.ID == rootID {
			slices.Reverse(chain)
			return chain, nil
		}
		if folder.ParentID == nil {
			return nil, apperrors.NotFound(msgFolderNotFound)
		}
		current = *folder.ParentID
	}
}

func (s *ShareService) List(ctx context.Context, ownerID uuid.UUID) ([]*share.Share, error) {
	return s.shares.ListByOwner(ctx, ownerID)
}

func (s *ShareService) Get(ctx context.Context, ownerID, id uuid.UUID) (*share.Share, error) {
	return s.shares.GetOwned(ctx, id, ownerID)
}

// Update applies every set field of u in one transaction.
func (s *ShareService) Update(ctx context.Context, ownerID, id uuid.UUID, u ShareUpdate) (*share.Share, error) {
	var updated *share.Share
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if u.Password != nil {
			if err := s.SetPassword(ctx, ownerID, id, *u.Password); err != nil {
				return err
			}
		}
		if u.Active != nil {
			if err := s.SetActive(ctx, ownerID, id, *u.Active); err != nil {
				return err
			}
		}
		if u.ExpiresAt != nil || u.ClearExpiry {
			if err := s.SetExpiry(ctx, ownerID, id, u.ExpiresAt); err != nil {
				return err
			}
		}
		if u.AllowedUsers != nil {
			if err := s.SetAllowedUsers(ctx, ownerID, id, *u.AllowedUsers); err != nil {
				return err
			}
		}

		sh, err := s.shares.GetOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		updated = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// SetPassword hashes and stores a new password. An empty password removes
// password protection. Either way earlier verifications stop matching.
func (s *ShareService) SetPassword(ctx context.Context, ownerID, id uuid.UUID, plain string) error {
	hash := ""
	if plain != "" {
		if err := validator.SharePassword(plain); err != nil {
			return apperrors.Validation(err.Error())
		}
		h, err := s.hasher.Hash(plain)
		if err != nil {
			return apperrors.InternalServer(msgHashPasswordFailed, err)
		}
		hash = h
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sh, err := s.shares.GetOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		return s.shares.UpdatePassword(ctx, sh.ID, hash)
	})
}

func (s *ShareService) SetActive(ctx context.Context, ownerID, id uuid.UUID, active bool) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sh, err := s.shares.GetOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		return s.shares.UpdateActive(ctx, sh.ID, active)
	})
}

// SetExpiry sets or, with nil, clears the expiry. A new expiry must lie in
// the future.
func (s *ShareService) SetExpiry(ctx context.Context, ownerID, id uuid.UUID, expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return apperrors.Validation(msgShareExpiryInPast)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sh, err := s.shares.GetOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		return s.shares.UpdateExpiry(ctx, sh.ID, expiresAt)
	})
}

// SetAllowedUsers replaces the allow-list. An empty list opens the share to
// every visitor that passes the other checks.
func (s *ShareService) SetAllowedUsers(ctx context.Context, ownerID, id uuid.UUID, users []uuid.UUID) error {
	unique := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if u != uuid.Nil && !slices.Contains(unique, u) {
			unique = append(unique, u)
		}
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sh, err := s.shares.GetOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		return s.shares.ReplaceAllowedUsers(ctx, sh.ID, unique)
	})
}

func (s *ShareService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sh, err := s.shares.GetOwned(ctx, id, ownerID)
		if err != nil {
			return err
		}
		return s.shares.Delete(ctx, sh.ID)
	})
}

func (s *ShareService) record(v Visitor, sh *share.Share, action audit.Action, status audit.Status, detail string) {
	id := sh.ID
	targetType := audit.ResourceTypeFolder
	if sh.FileID != nil {
		targetType = audit.ResourceTypeFile
	}

	s.audit.Record(audit.Event{
		ActorID:      v.UserID,
		ResourceType: audit.ResourceTypeShare,
		ResourceID:   &id,
		Action:       action,
		Status:       status,
		IPAddress:    v.IPAddress,
		UserAgent:    v.UserAgent,
		RequestID:    v.RequestID,
		ErrorMessage: detail,
		Metadata: map[string]any{
			"target_type":  string(targetType),
			"access_count": sh.AccessCount,
		},
	})
}

type discardAudit struct{}

func (discardAudit) Record(audit.Event) {}

type discardMetrics struct{}

func (discardMetrics) IncShareGrant()      {}
func (discardMetrics) IncShareDenial()     {}
func (discardMetrics) IncPasswordFailure() {}
