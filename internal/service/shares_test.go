package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"docshare/internal/domain/share"
	"docshare/internal/infra/cache"
	apperrors "docshare/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shareFixture struct {
	*fixture
	svc     *ShareService
	metrics *countingMetrics
	owner   uuid.UUID
}

func newShareFixture() *shareFixture {
	fx := newFixture()
	metrics := &countingMetrics{}
	svc := NewShareService(ShareDeps{
		Tx:              fx.tx,
		Shares:          fx.shares,
		Folders:         fx.folders,
		Files:           fx.files,
		Blobs:           fx.blobs,
		Verifications:   cache.NewVerificationCache(),
		Hasher:          fakeHasher{},
		Metrics:         metrics,
		VerificationTTL: time.Hour,
	})
	svc.now = fx.clock
	return &shareFixture{fixture: fx, svc: svc, metrics: metrics, owner: uuid.New()}
}

func visitor(session string) Visitor {
	return Visitor{Caller: share.Caller{SessionID: session}}
}

func TestShareGetOrCreateIsIdempotent(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)

	first, created, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, sf.svc.SetActive(ctx, sf.owner, first.ID, false))
	third, created, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)
	assert.True(t, created, "a deactivated share is not reused")
	assert.NotEqual(t, first.ID, third.ID)
}

func TestShareGetOrCreateRejections(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	folder := sf.addFolder(sf.owner, nil, "docs")
	trashed := sf.addFile(sf.owner, nil, "t.txt", 1)
	require.NoError(t, sf.fileService(0, 0).MoveToTrash(ctx, sf.owner, trashed.ID))

	tests := []struct {
		name     string
		owner    uuid.UUID
		target   share.Target
		sentinel error
	}{
		{"Neither target", sf.owner, share.Target{}, apperrors.ErrValidation},
		{"Both targets", sf.owner, share.Target{FileID: &f.ID, FolderID: &folder.ID}, apperrors.ErrValidation},
		{"Not the owner", uuid.New(), share.FileTarget(f.ID), apperrors.ErrNotFound},
		{"Trashed target", sf.owner, share.FileTarget(trashed.ID), apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sf.svc.GetOrCreate(ctx, tt.owner, tt.target)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
	assert.Empty(t, sf.db.shares)
}

func TestShareAccessGrantedCountsAccess(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)

	content, err := sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	require.NoError(t, err)
	assert.Equal(t, f.ID, content.File.ID)
	assert.Equal(t, int64(1), content.Share.AccessCount)

	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sf.db.shares[sh.ID].AccessCount)
	assert.Equal(t, 2, sf.metrics.grants)
}

func TestShareExpiredBeatsPassword(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)

	require.NoError(t, sf.svc.SetPassword(ctx, sf.owner, sh.ID, "secret"))
	require.NoError(t, sf.svc.SetExpiry(ctx, sf.owner, sh.ID, ptr(sf.now.Add(time.Hour))))
	sf.now = sf.now.Add(2 * time.Hour)

	_, err = sf.svc.Access(ctx, sh.ID, visitor("s1"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrShareDenied))
	assert.False(t, errors.Is(err, apperrors.ErrPasswordRequired))
	assert.Equal(t, share.ReasonExpired, apperrors.PublicMessage(err, ""))
	assert.Zero(t, sf.db.shares[sh.ID].AccessCount, "denied access is not counted")
	assert.Equal(t, 1, sf.metrics.denials)
}

func TestShareInactive(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)
	require.NoError(t, sf.svc.SetActive(ctx, sf.owner, sh.ID, false))

	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	assert.Equal(t, share.ReasonInactive, apperrors.PublicMessage(err, ""))
}

func TestSharePasswordFlow(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)
	require.NoError(t, sf.svc.SetPassword(ctx, sf.owner, sh.ID, "secret"))

	_, err = sf.svc.Access(ctx, sh.ID, visitor("s1"), nil)
	assert.True(t, errors.Is(err, apperrors.ErrPasswordRequired))

	err = sf.svc.VerifyPassword(ctx, sh.ID, visitor("s1"), "wrong")
	assert.True(t, errors.Is(err, apperrors.ErrShareDenied))
	assert.Equal(t, 1, sf.metrics.passwordFailures)

	require.NoError(t, sf.svc.VerifyPassword(ctx, sh.ID, visitor("s1"), "secret"))

	_, err = sf.svc.Access(ctx, sh.ID, visitor("s1"), nil)
	assert.NoError(t, err, "the verified session skips the prompt")

	_, err = sf.svc.Access(ctx, sh.ID, visitor("s2"), nil)
	assert.True(t, errors.Is(err, apperrors.ErrPasswordRequired), "other sessions are still prompted")

	require.NoError(t, sf.svc.SetPassword(ctx, sf.owner, sh.ID, "changed"))
	_, err = sf.svc.Access(ctx, sh.ID, visitor("s1"), nil)
	assert.True(t, errors.Is(err, apperrors.ErrPasswordRequired), "changing the password voids verifications")

	require.NoError(t, sf.svc.SetPassword(ctx, sf.owner, sh.ID, ""))
	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	assert.NoError(t, err)
	assert.NoError(t, sf.svc.VerifyPassword(ctx, sh.ID, visitor(""), "anything"), "no password always verifies")
}

func TestShareAllowList(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)

	friend := uuid.New()
	require.NoError(t, sf.svc.SetAllowedUsers(ctx, sf.owner, sh.ID, []uuid.UUID{friend, friend, uuid.Nil}))
	assert.Equal(t, []uuid.UUID{friend}, sf.db.shares[sh.ID].AllowedUsers)

	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	assert.Equal(t, share.ReasonNotAuthorized, apperrors.PublicMessage(err, ""))

	other := uuid.New()
	_, err = sf.svc.Access(ctx, sh.ID, Visitor{Caller: share.Caller{UserID: &other}}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrShareDenied))

	_, err = sf.svc.Access(ctx, sh.ID, Visitor{Caller: share.Caller{UserID: &friend}}, nil)
	assert.NoError(t, err)
}

func TestShareTrashedTargetIsNotFound(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)
	require.NoError(t, sf.fileService(0, 0).MoveToTrash(ctx, sf.owner, f.ID))

	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Zero(t, sf.db.shares[sh.ID].AccessCount)
}

func TestShareFolderBrowsing(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()

	shared := sf.addFolder(sf.owner, nil, "shared")
	sub := sf.addFolder(sf.owner, &shared.ID, "sub")
	hidden := sf.addFolder(sf.owner, &shared.ID, "hidden")
	outside := sf.addFolder(sf.owner, nil, "outside")
	inSub := sf.addFile(sf.owner, &sub.ID, "in-sub.txt", 4)
	inHidden := sf.addFile(sf.owner, &hidden.ID, "in-hidden.txt", 4)
	outsideFile := sf.addFile(sf.owner, &outside.ID, "outside.txt", 4)
	require.NoError(t, sf.folderService().MoveToTrash(ctx, sf.owner, hidden.ID))

	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FolderTarget(shared.ID))
	require.NoError(t, err)

	content, err := sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	require.NoError(t, err)
	assert.Equal(t, shared.ID, content.Folder.ID)
	require.Len(t, content.Folders, 1, "trashed subfolders are hidden")
	assert.Equal(t, sub.ID, content.Folders[0].ID)

	content, err = sf.svc.Access(ctx, sh.ID, visitor(""), &sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared", "sub"}, folderNames(content.Breadcrumbs))
	require.Len(t, content.Files, 1)

	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), &outside.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "folders outside the share are not reachable")

	f, body, err := sf.svc.OpenSharedFile(ctx, sh.ID, visitor(""), &inSub.ID)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "xxxx", string(data))
	assert.NotNil(t, sf.file(f.ID).LastAccessedAt)

	for _, id := range []uuid.UUID{outsideFile.ID, inHidden.ID} {
		_, _, err = sf.svc.OpenSharedFile(ctx, sh.ID, visitor(""), &id)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	}

	_, _, err = sf.svc.OpenSharedFile(ctx, sh.ID, visitor(""), nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestShareOpenSharedFile(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 2)
	other := sf.addFile(sf.owner, nil, "b.txt", 2)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)

	got, body, err := sf.svc.OpenSharedFile(ctx, sh.ID, visitor(""), nil)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, int64(1), sf.db.shares[sh.ID].AccessCount)

	_, _, err = sf.svc.OpenSharedFile(ctx, sh.ID, visitor(""), &other.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	sf.blobs.failOpen = true
	_, _, err = sf.svc.OpenSharedFile(ctx, sh.ID, visitor(""), nil)
	assert.True(t, errors.Is(err, apperrors.ErrStorage))
}

func TestShareOwnerManagement(t *testing.T) {
	sf := newShareFixture()
	ctx := context.Background()
	f := sf.addFile(sf.owner, nil, "a.txt", 1)
	sh, _, err := sf.svc.GetOrCreate(ctx, sf.owner, share.FileTarget(f.ID))
	require.NoError(t, err)

	expiry := sf.now.Add(24 * time.Hour)
	friend := uuid.New()
	updated, err := sf.svc.Update(ctx, sf.owner, sh.ID, ShareUpdate{
		Password:     ptr("secret"),
		ExpiresAt:    &expiry,
		AllowedUsers: &[]uuid.UUID{friend},
	})
	require.NoError(t, err)
	assert.True(t, updated.HasPassword())
	assert.Equal(t, expiry, *updated.ExpiresAt)
	assert.Equal(t, []uuid.UUID{friend}, updated.AllowedUsers)

	updated, err = sf.svc.Update(ctx, sf.owner, sh.ID, ShareUpdate{ClearExpiry: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ExpiresAt)

	err = sf.svc.SetExpiry(ctx, sf.owner, sh.ID, ptr(sf.now.Add(-time.Minute)))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	err = sf.svc.SetPassword(ctx, sf.owner, sh.ID, "ab")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = sf.svc.Get(ctx, uuid.New(), sh.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.True(t, errors.Is(sf.svc.Delete(ctx, uuid.New(), sh.ID), apperrors.ErrNotFound))

	list, err := sf.svc.List(ctx, sf.owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, sf.svc.Delete(ctx, sf.owner, sh.ID))
	_, err = sf.svc.Access(ctx, sh.ID, visitor(""), nil)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
