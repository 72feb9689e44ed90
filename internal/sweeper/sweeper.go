package sweeper

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"docshare/internal/audit"
	"docshare/internal/domain/file"
	"docshare/internal/storage"
	apperrors "docshare/pkg/errors"
	"docshare/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultWindow is how long trashed items are kept.
	DefaultWindow = 30 * 24 * time.Hour

	msgSweepRunning   = "trash sweep already running"
	msgNegativeWindow = "retention window cannot be negative"
)

type FolderStore interface {
	ListTrashedBefore(ctx context.Context, cutoff time.Time, ownerID *uuid.UUID) ([]file.TrashedItem, error)
	ListChildIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	// DeleteTrashedBefore removes the folder only while it is still trashed
	// before cutoff and has no children. It reports whether it did.
	DeleteTrashedBefore(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

type FileStore interface {
	ListTrashedBefore(ctx context.Context, cutoff time.Time, ownerID *uuid.UUID) ([]file.TrashedItem, error)
	// DeleteTrashedBefore removes the row only while it is still trashed
	// before cutoff and returns its blob key. Otherwise it returns a
	// not-found error.
	DeleteTrashedBefore(ctx context.Context, id uuid.UUID, cutoff time.Time) (string, error)
}

// Locker keeps sweeps in different processes from overlapping.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

type Metrics interface {
	RecordSweep(deleted, failures int)
}

type AuditRecorder interface {
	Record(event audit.Event)
}

type Options struct {
	Window time.Duration
	DryRun bool
	// Now defaults to the current time.
	Now time.Time
	// OwnerID limits the sweep to one owner's trash.
	OwnerID *uuid.UUID
}

type Item struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Report describes one sweep. In a dry run Files and Folders list the
// candidates. Otherwise they list what was deleted.
type Report struct {
	Cutoff          time.Time `json:"cutoff"`
	DryRun          bool      `json:"dry_run"`
	FilesDeleted    int       `json:"files_deleted"`
	FoldersDeleted  int       `json:"folders_deleted"`
	FoldersRetained int       `json:"folders_retained"`
	BytesFreed      int64     `json:"bytes_freed"`
	Failures        int       `json:"failures"`
	Files           []Item    `json:"files"`
	Folders         []Item    `json:"folders"`
}

// Sweeper permanently removes items that have been in the trash longer
// than the retention window. Files go first, then folders from the deepest
// up. Every delete re-checks the trash state in the database, so an item
// restored after it was listed is left alone, as is a folder that still has
// any child row.
type Sweeper struct {
	folders FolderStore
	files   FileStore
	blobs   storage.BlobStore
	locker  Locker
	metrics Metrics
	audit   AuditRecorder
	log     zerolog.Logger

	running sync.Mutex
}

// New builds a sweeper. locker, metrics and recorder may be nil.
func New(folders FolderStore, files FileStore, blobs storage.BlobStore, locker Locker, metrics Metrics, recorder AuditRecorder) *Sweeper {
	return &Sweeper{
		folders: folders,
		files:   files,
		blobs:   blobs,
		locker:  locker,
		metrics: metrics,
		audit:   recorder,
		log:     logger.With("sweeper"),
	}
}

// Run performs one sweep. A sweep that is already running, in this process
// or another one holding the lock, makes Run return a conflict error.
func (s *Sweeper) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Window < 0 {
		return nil, apperrors.Validation(msgNegativeWindow)
	}

	if !s.running.TryLock() {
		return nil, apperrors.Conflict(msgSweepRunning)
	}
	defer s.running.Unlock()

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, apperrors.Conflict(msgSweepRunning)
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	report := &Report{
		Cutoff:  now.Add(-opts.Window),
		DryRun:  opts.DryRun,
		Files:   make([]Item, 0),
		Folders: make([]Item, 0),
	}

	files, err := s.files.ListTrashedBefore(ctx, report.Cutoff, opts.OwnerID)
	if err != nil {
		return nil, err
	}
	folders, err := s.folders.ListTrashedBefore(ctx, report.Cutoff, opts.OwnerID)
	if err != nil {
		return nil, err
	}

	// ids of rows removed by this run, or that a dry run would remove.
	gone := make(map[uuid.UUID]struct{}, len(files)+len(folders))

	for _, f := range files {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		s.sweepFile(ctx, f, report, gone)
	}

	for _, folder := range deepestFirst(folders) {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		s.sweepFolder(ctx, folder, report, gone)
	}

	if !opts.DryRun && s.metrics != nil {
		s.metrics.RecordSweep(report.FilesDeleted+report.FoldersDeleted, report.Failures)
	}

	s.log.Info().
		Time("cutoff", report.Cutoff).
		Bool("dry_run", report.DryRun).
		Int("files_deleted", report.FilesDeleted).
		Int("folders_deleted", report.FoldersDeleted).
		Int("folders_retained", report.FoldersRetained).
		Int64("bytes_freed", report.BytesFreed).
		Int("failures", report.Failures).
		Msg("trash sweep finished")

	return report, nil
}

// sweepFile removes the row first and then its blob, so a file restored
// after listing keeps both. A blob that cannot be removed once its row is
// gone is counted as a failure and logged as orphaned.
func (s *Sweeper) sweepFile(ctx context.Context, f file.TrashedItem, report *Report, gone map[uuid.UUID]struct{}) {
	item := itemFrom(f)
	if report.DryRun {
		gone[f.ID] = struct{}{}
		report.Files = append(report.Files, item)
		return
	}

	blobKey, err := s.files.DeleteTrashedBefore(ctx, f.ID, report.Cutoff)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Debug().Str("file_id", f.ID.String()).Msg("file restored or already removed, skipped")
			return
		}
		report.Failures++
		s.log.Error().Err(err).Str("file_id", f.ID.String()).Msg("failed to delete file record")
		return
	}

	gone[f.ID] = struct{}{}
	report.FilesDeleted++
	report.BytesFreed += f.SizeBytes
	report.Files = append(report.Files, item)
	s.recordPurge(audit.ResourceTypeFile, f)

	if err := s.blobs.Delete(ctx, blobKey); err != nil {
		report.Failures++
		s.log.Error().Err(err).Str("file_id", f.ID.String()).Str("blob_key", blobKey).Msg("file record removed, blob left orphaned")
	}
}

// sweepFolder removes a folder once nothing references it. A dry run
// counts a folder as deletable only when every child is one the run
// would remove too.
func (s *Sweeper) sweepFolder(ctx context.Context, folder file.TrashedItem, report *Report, gone map[uuid.UUID]struct{}) {
	item := itemFrom(folder)
	if report.DryRun {
		children, err := s.folders.ListChildIDs(ctx, folder.ID)
		if err != nil {
			report.Failures++
			s.log.Error().Err(err).Str("folder_id", folder.ID.String()).Msg("failed to list folder children")
			return
		}
		for _, child := range children {
			if _, ok := gone[child]; !ok {
				report.FoldersRetained++
				return
			}
		}
		gone[folder.ID] = struct{}{}
		report.Folders = append(report.Folders, item)
		return
	}

	deleted, err := s.folders.DeleteTrashedBefore(ctx, folder.ID, report.Cutoff)
	if err != nil {
		report.Failures++
		s.log.Error().Err(err).Str("folder_id", folder.ID.String()).Msg("failed to delete folder")
		return
	}
	if !deleted {
		report.FoldersRetained++
		s.log.Debug().Str("folder_id", folder.ID.String()).Msg("folder restored or still has children, kept")
		return
	}

	gone[folder.ID] = struct{}{}
	report.FoldersDeleted++
	report.Folders = append(report.Folders, item)
	s.recordPurge(audit.ResourceTypeFolder, folder)
}

func (s *Sweeper) recordPurge(kind audit.ResourceType, t file.TrashedItem) {
	if s.audit == nil {
		return
	}
	id := t.ID
	s.audit.Record(audit.Event{
		ActorType:    audit.ActorTypeSystem,
		ResourceType: kind,
		ResourceID:   &id,
		Action:       audit.ActionPurge,
		Status:       audit.StatusSuccess,
		Metadata: map[string]any{
			"owner_id":   t.OwnerID.String(),
			"name":       t.Name,
			"size_bytes": t.SizeBytes,
			"deleted_at": t.DeletedAt,
		},
	})
}

// deepestFirst orders folders so that every selected descendant comes
// before its selected ancestors.
func deepestFirst(folders []file.TrashedItem) []file.TrashedItem {
	byID := make(map[uuid.UUID]file.TrashedItem, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	depth := make(map[uuid.UUID]int, len(folders))
	var depthOf func(id uuid.UUID, seen map[uuid.UUID]struct{}) int
	depthOf = func(id uuid.UUID, seen map[uuid.UUID]struct{}) int {
		if d, ok := depth[id]; ok {
			return d
		}
		f := byID[id]
		d := 0
		if f.ParentID != nil {
			if _, selected := byID[*f.ParentID]; selected {
				if _, loop := seen[*f.ParentID]; !loop {
					seen[id] = struct{}{}
					d = depthOf(*f.ParentID, seen) + 1
				}
			}
		}
		depth[id] = d
		return d
	}

	ordered := make([]file.TrashedItem, len(folders))
	copy(ordered, folders)
	for _, f := range ordered {
		depthOf(f.ID, make(map[uuid.UUID]struct{}))
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return depth[ordered[i].ID] > depth[ordered[j].ID]
	})
	return ordered
}

func itemFrom(t file.TrashedItem) Item {
	return Item{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Name:      t.Name,
		SizeBytes: t.SizeBytes,
		DeletedAt: t.DeletedAt,
	}
}
