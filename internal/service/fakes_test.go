package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"docshare/internal/domain/file"
	"docshare/internal/domain/share"
	"docshare/internal/storage"
	apperrors "docshare/pkg/errors"
	"docshare/pkg/validator"

	"github.com/google/uuid"
)

// memDB backs the in-memory stores used by the service tests. Stores hand
// out copies so services cannot mutate rows without going through a store.
type memDB struct {
	mu      sync.Mutex
	folders map[uuid.UUID]*file.Folder
	files   map[uuid.UUID]*file.File
	shares  map[uuid.UUID]*share.Share
	created time.Time
}

func newMemDB() *memDB {
	return &memDB{
		folders: make(map[uuid.UUID]*file.Folder),
		files:   make(map[uuid.UUID]*file.File),
		shares:  make(map[uuid.UUID]*share.Share),
		created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing creation times so ordering is stable.
func (db *memDB) tick() time.Time {
	db.created = db.created.Add(time.Second)
	return db.created
}

type fakeTx struct {
	calls int
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyFolder(f *file.Folder) *file.Folder {
	cp := *f
	return &cp
}

func copyFile(f *file.File) *file.File {
	cp := *f
	return &cp
}

func copyShare(s *share.Share) *share.Share {
	cp := *s
	cp.AllowedUsers = append([]uuid.UUID(nil), s.AllowedUsers...)
	return &cp
}

// ============================================================================
// Folders
// ============================================================================

type fakeFolders struct{ db *memDB }

func (r fakeFolders) Create(_ context.Context, in file.CreateFolderInput) (*file.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, f := range r.db.folders {
		if f.OwnerID == in.OwnerID && sameParent(f.ParentID, in.ParentID) && f.Name == in.Name {
			return nil, apperrors.Validation(msgFolderNameTaken)
		}
	}

	now := r.db.tick()
	f := &file.Folder{ID: uuid.New(), OwnerID: in.OwnerID, ParentID: in.ParentID, Name: in.Name, CreatedAt: now, UpdatedAt: now}
	r.db.folders[f.ID] = f
	return copyFolder(f), nil
}

func (r fakeFolders) Get(_ context.Context, id uuid.UUID) (*file.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	f, ok := r.db.folders[id]
	if !ok {
		return nil, apperrors.NotFound(msgFolderNotFound)
	}
	return copyFolder(f), nil
}

func (r fakeFolders) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.Folder, error) {
	f, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != ownerID {
		return nil, apperrors.NotFound(msgFolderNotFound)
	}
	return f, nil
}

func (r fakeFolders) LockOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.Folder, error) {
	return r.GetOwned(ctx, id, ownerID)
}

func (r fakeFolders) ListChildren(_ context.Context, parentID uuid.UUID) ([]*file.Folder, error) {
	return r.filter(func(f *file.Folder) bool { return f.ParentID != nil && *f.ParentID == parentID }), nil
}

func (r fakeFolders) ListActive(_ context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*file.Folder, error) {
	return r.filter(func(f *file.Folder) bool {
		return f.OwnerID == ownerID && sameParent(f.ParentID, parentID) && !f.IsTrashed()
	}), nil
}

func (r fakeFolders) NameExists(_ context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	matches := r.filter(func(f *file.Folder) bool {
		if excludeID != nil && f.ID == *excludeID {
			return false
		}
		return f.OwnerID == ownerID && sameParent(f.ParentID, parentID) && f.Name == name
	})
	return len(matches) > 0, nil
}

func (r fakeFolders) mutate(id uuid.UUID, fn func(f *file.Folder)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	f, ok := r.db.folders[id]
	if !ok {
		return apperrors.NotFound(msgFolderNotFound)
	}
	fn(f)
	return nil
}

func (r fakeFolders) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	return r.mutate(id, func(f *file.Folder) { f.Name = name })
}

func (r fakeFolders) UpdateParent(_ context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	return r.mutate(id, func(f *file.Folder) { f.ParentID = parentID })
}

func (r fakeFolders) SetDeletedAt(_ context.Context, id uuid.UUID, at *time.Time) error {
	return r.mutate(id, func(f *file.Folder) { f.DeletedAt = at })
}

func (r fakeFolders) SetFavorite(_ context.Context, id uuid.UUID, favorite bool) error {
	return r.mutate(id, func(f *file.Folder) { f.IsFavorite = favorite })
}

func (r fakeFolders) SelectOwnedActive(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	matched := make([]uuid.UUID, 0)
	for _, id := range ids {
		if f, ok := r.db.folders[id]; ok && f.OwnerID == ownerID && !f.IsTrashed() {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func (r fakeFolders) SetFavoriteByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, favorite bool) (int64, error) {
	var n int64
	for _, id := range ids {
		err := r.mutate(id, func(f *file.Folder) {
			if f.OwnerID == ownerID {
				f.IsFavorite = favorite
				n++
			}
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r fakeFolders) ListFavorites(_ context.Context, ownerID uuid.UUID) ([]*file.Folder, error) {
	return r.filter(func(f *file.Folder) bool { return f.OwnerID == ownerID && f.IsFavorite && !f.IsTrashed() }), nil
}

func (r fakeFolders) ListTrashed(_ context.Context, ownerID uuid.UUID) ([]*file.Folder, error) {
	return r.filter(func(f *file.Folder) bool {
		if f.OwnerID != ownerID || !f.IsTrashed() {
			return false
		}
		if f.ParentID == nil {
			return true
		}
		parent, ok := r.db.folders[*f.ParentID]
		return !ok || !parent.IsTrashed()
	}), nil
}

func (r fakeFolders) Search(_ context.Context, ownerID uuid.UUID, term string, limit int) ([]*file.Folder, error) {
	term = strings.ToLower(term)
	found := r.filter(func(f *file.Folder) bool {
		return f.OwnerID == ownerID && !f.IsTrashed() && strings.Contains(strings.ToLower(f.Name), term)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r fakeFolders) CountActive(_ context.Context, ownerID uuid.UUID) (int64, error) {
	return int64(len(r.filter(func(f *file.Folder) bool { return f.OwnerID == ownerID && !f.IsTrashed() }))), nil
}

// filter must be called without the lock held.
func (r fakeFolders) filter(keep func(f *file.Folder) bool) []*file.Folder {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]*file.Folder, 0)
	for _, f := range r.db.folders {
		if keep(f) {
			out = append(out, copyFolder(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ============================================================================
// Files
// ============================================================================

type fakeFiles struct{ db *memDB }

func (r fakeFiles) Create(_ context.Context, in file.CreateFileInput) (*file.File, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := r.db.tick()
	f := &file.File{
		ID: id, OwnerID: in.OwnerID, FolderID: in.FolderID, Name: in.Name, BlobKey: in.BlobKey,
		SizeBytes: in.SizeBytes, MimeType: in.MimeType, CreatedAt: now, UpdatedAt: now,
	}
	r.db.files[id] = f
	return copyFile(f), nil
}

func (r fakeFiles) Get(_ context.Context, id uuid.UUID) (*file.File, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	f, ok := r.db.files[id]
	if !ok {
		return nil, apperrors.NotFound(msgFileNotFound)
	}
	return copyFile(f), nil
}

func (r fakeFiles) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.File, error) {
	f, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != ownerID {
		return nil, apperrors.NotFound(msgFileNotFound)
	}
	return f, nil
}

func (r fakeFiles) LockOwned(ctx context.Context, id, ownerID uuid.UUID) (*file.File, error) {
	return r.GetOwned(ctx, id, ownerID)
}

func (r fakeFiles) ListActive(_ context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]*file.File, error) {
	return r.filter(func(f *file.File) bool {
		return f.OwnerID == ownerID && sameParent(f.FolderID, folderID) && !f.IsTrashed()
	}), nil
}

func (r fakeFiles) mutate(id uuid.UUID, fn func(f *file.File)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	f, ok := r.db.files[id]
	if !ok {
		return apperrors.NotFound(msgFileNotFound)
	}
	fn(f)
	return nil
}

func (r fakeFiles) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	return r.mutate(id, func(f *file.File) { f.Name = name })
}

func (r fakeFiles) UpdateFolder(_ context.Context, id uuid.UUID, folderID *uuid.UUID) error {
	return r.mutate(id, func(f *file.File) { f.FolderID = folderID })
}

func (r fakeFiles) SetDeletedAt(_ context.Context, id uuid.UUID, at *time.Time) error {
	return r.mutate(id, func(f *file.File) { f.DeletedAt = at })
}

func (r fakeFiles) SetFavorite(_ context.Context, id uuid.UUID, favorite bool) error {
	return r.mutate(id, func(f *file.File) { f.IsFavorite = favorite })
}

func (r fakeFiles) MarkAccessed(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(id, func(f *file.File) { f.LastAccessedAt = &at })
}

func (r fakeFiles) SetDeletedAtByFolder(_ context.Context, folderID uuid.UUID, at *time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, f := range r.db.files {
		if f.FolderID != nil && *f.FolderID == folderID {
			f.DeletedAt = at
			n++
		}
	}
	return n, nil
}

func (r fakeFiles) SelectOwnedActive(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	matched := make([]uuid.UUID, 0)
	for _, id := range ids {
		if f, ok := r.db.files[id]; ok && f.OwnerID == ownerID && !f.IsTrashed() {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func (r fakeFiles) byIDs(ownerID uuid.UUID, ids []uuid.UUID, fn func(f *file.File)) (int64, error) {
	var n int64
	for _, id := range ids {
		err := r.mutate(id, func(f *file.File) {
			if f.OwnerID == ownerID {
				fn(f)
				n++
			}
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r fakeFiles) SetDeletedAtByIDs(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID, at *time.Time) (int64, error) {
	return r.byIDs(ownerID, ids, func(f *file.File) { f.DeletedAt = at })
}

func (r fakeFiles) SetFavoriteByIDs(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID, favorite bool) (int64, error) {
	return r.byIDs(ownerID, ids, func(f *file.File) { f.IsFavorite = favorite })
}

func (r fakeFiles) MoveByIDs(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID, folderID *uuid.UUID) (int64, error) {
	return r.byIDs(ownerID, ids, func(f *file.File) { f.FolderID = folderID })
}

func (r fakeFiles) SumActiveSize(_ context.Context, folderID uuid.UUID) (int64, error) {
	var total int64
	for _, f := range r.filter(func(f *file.File) bool { return f.FolderID != nil && *f.FolderID == folderID && !f.IsTrashed() }) {
		total += f.SizeBytes
	}
	return total, nil
}

func (r fakeFiles) SumOwnerActiveSize(_ context.Context, ownerID uuid.UUID) (int64, error) {
	var total int64
	for _, f := range r.filter(func(f *file.File) bool { return f.OwnerID == ownerID && !f.IsTrashed() }) {
		total += f.SizeBytes
	}
	return total, nil
}

func (r fakeFiles) CountActive(_ context.Context, ownerID uuid.UUID) (int64, error) {
	return int64(len(r.filter(func(f *file.File) bool { return f.OwnerID == ownerID && !f.IsTrashed() }))), nil
}

func (r fakeFiles) ListFavorites(_ context.Context, ownerID uuid.UUID) ([]*file.File, error) {
	return r.filter(func(f *file.File) bool { return f.OwnerID == ownerID && f.IsFavorite && !f.IsTrashed() }), nil
}

func (r fakeFiles) ListRecent(_ context.Context, ownerID uuid.UUID, limit int) ([]*file.File, error) {
	out := r.filter(func(f *file.File) bool { return f.OwnerID == ownerID && !f.IsTrashed() && f.LastAccessedAt != nil })
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessedAt.After(*out[j].LastAccessedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeFiles) ListTrashed(_ context.Context, ownerID uuid.UUID) ([]*file.File, error) {
	return r.filter(func(f *file.File) bool {
		if f.OwnerID != ownerID || !f.IsTrashed() {
			return false
		}
		if f.FolderID == nil {
			return true
		}
		folder, ok := r.db.folders[*f.FolderID]
		return !ok || !folder.IsTrashed()
	}), nil
}

func (r fakeFiles) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.files[id]; !ok {
		return apperrors.NotFound(msgFileNotFound)
	}
	delete(r.db.files, id)
	return nil
}

func (r fakeFiles) Search(_ context.Context, ownerID uuid.UUID, term string, limit int) ([]*file.File, error) {
	term = strings.ToLower(term)
	found := r.filter(func(f *file.File) bool {
		return f.OwnerID == ownerID && !f.IsTrashed() && strings.Contains(strings.ToLower(f.Name), term)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r fakeFiles) filter(keep func(f *file.File) bool) []*file.File {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]*file.File, 0)
	for _, f := range r.db.files {
		if keep(f) {
			out = append(out, copyFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ============================================================================
// Shares
// ============================================================================

type fakeShares struct{ db *memDB }

func (r fakeShares) Create(_ context.Context, in share.CreateShareInput) (*share.Share, error) {
	if err := in.Target.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.tick()
	s := &share.Share{
		ID: uuid.New(), OwnerID: in.OwnerID, FileID: in.Target.FileID, FolderID: in.Target.FolderID,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	r.db.shares[s.ID] = s
	return copyShare(s), nil
}

func (r fakeShares) Get(_ context.Context, id uuid.UUID) (*share.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.shares[id]
	if !ok {
		return nil, apperrors.NotFound("share not found")
	}
	return copyShare(s), nil
}

func (r fakeShares) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*share.Share, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, apperrors.NotFound("share not found")
	}
	return s, nil
}

func (r fakeShares) FindActiveByTarget(_ context.Context, target share.Target) (*share.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var found *share.Share
	for _, s := range r.db.shares {
		if !s.IsActive || !sameParent(s.FileID, target.FileID) || !sameParent(s.FolderID, target.FolderID) {
			continue
		}
		if found == nil || s.CreatedAt.Before(found.CreatedAt) {
			found = s
		}
	}
	if found == nil {
		return nil, apperrors.NotFound("share not found")
	}
	return copyShare(found), nil
}

func (r fakeShares) mutate(id uuid.UUID, fn func(s *share.Share)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.shares[id]
	if !ok {
		return apperrors.NotFound("share not found")
	}
	fn(s)
	return nil
}

func (r fakeShares) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.mutate(id, func(s *share.Share) { s.PasswordHash = hash })
}

func (r fakeShares) UpdateActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.mutate(id, func(s *share.Share) { s.IsActive = active })
}

func (r fakeShares) UpdateExpiry(_ context.Context, id uuid.UUID, expiresAt *time.Time) error {
	return r.mutate(id, func(s *share.Share) { s.ExpiresAt = expiresAt })
}

func (r fakeShares) ReplaceAllowedUsers(_ context.Context, id uuid.UUID, users []uuid.UUID) error {
	return r.mutate(id, func(s *share.Share) { s.AllowedUsers = append([]uuid.UUID(nil), users...) })
}

func (r fakeShares) IncrementAccessCount(_ context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.mutate(id, func(s *share.Share) {
		s.AccessCount++
		count = s.AccessCount
	})
	return count, err
}

func (r fakeShares) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*share.Share, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]*share.Share, 0)
	for _, s := range r.db.shares {
		if s.OwnerID == ownerID {
			out = append(out, copyShare(s))
		}
	}
	return out, nil
}

func (r fakeShares) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.shares[id]; !ok {
		return apperrors.NotFound("share not found")
	}
	delete(r.db.shares, id)
	return nil
}

// ============================================================================
// Blobs
// ============================================================================

var errBlobBackendDown = errors.New("blob backend unavailable")

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failPut   bool
	failSize  bool
	failOpen  bool
	deleted   []string
	putCalled int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.putCalled++
	if b.failPut {
		return errBlobBackendDown
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failOpen {
		return nil, errBlobBackendDown
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deleted = append(b.deleted, key)
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobs) Size(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failSize {
		return 0, errBlobBackendDown
	}
	data, ok := b.objects[key]
	if !ok {
		return 0, storage.ErrObjectNotFound
	}
	return int64(len(data)), nil
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// ============================================================================
// Share collaborators
// ============================================================================

type countingMetrics struct {
	grants, denials, passwordFailures int
}

func (m *countingMetrics) IncShareGrant()      { m.grants++ }
func (m *countingMetrics) IncShareDenial()     { m.denials++ }
func (m *countingMetrics) IncPasswordFailure() { m.passwordFailures++ }

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Verify(candidate, hash string) bool { return hash == "hashed:"+candidate }

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	db      *memDB
	tx      *fakeTx
	folders fakeFolders
	files   fakeFiles
	shares  fakeShares
	blobs   *fakeBlobs
	now     time.Time
}

func newFixture() *fixture {
	db := newMemDB()
	return &fixture{
		db:      db,
		tx:      &fakeTx{},
		folders: fakeFolders{db: db},
		files:   fakeFiles{db: db},
		shares:  fakeShares{db: db},
		blobs:   newFakeBlobs(),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) folderService() *FolderService {
	s := NewFolderService(f.tx, f.folders, f.files, 25)
	s.now = f.clock
	return s
}

func (f *fixture) fileService(maxUpload, quota int64) *FileService {
	return f.fileServiceWithPolicy(maxUpload, quota, validator.UploadPolicy{})
}

func (f *fixture) fileServiceWithPolicy(maxUpload, quota int64, policy validator.UploadPolicy) *FileService {
	s := NewFileService(f.tx, f.folders, f.files, f.blobs, maxUpload, quota, policy)
	s.now = f.clock
	return s
}

func (f *fixture) addFolder(owner uuid.UUID, parent *uuid.UUID, name string) *file.Folder {
	folder, err := f.folders.Create(context.Background(), file.CreateFolderInput{OwnerID: owner, ParentID: parent, Name: name})
	if err != nil {
		panic(err)
	}
	return folder
}

func (f *fixture) addFile(owner uuid.UUID, folder *uuid.UUID, name string, size int64) *file.File {
	id := uuid.New()
	key := "files/test/" + id.String()
	f.blobs.objects[key] = bytes.Repeat([]byte{'x'}, int(size))
	created, err := f.files.Create(context.Background(), file.CreateFileInput{
		ID: id, OwnerID: owner, FolderID: folder, Name: name, BlobKey: key, SizeBytes: size,
		MimeType: file.DetectMimeType(name),
	})
	if err != nil {
		panic(err)
	}
	return created
}

func (f *fixture) folder(id uuid.UUID) *file.Folder {
	folder, err := f.folders.Get(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return folder
}

func (f *fixture) file(id uuid.UUID) *file.File {
	got, err := f.files.Get(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return got
}

func ptr[T any](v T) *T {
	return &v
}
