package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docshare/internal/auth"
	"docshare/internal/domain/file"
	"docshare/internal/domain/share"
	"docshare/internal/http/middleware"
	"docshare/internal/service"
	apperrors "docshare/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Helpers
// ============================================================================

type request struct {
	method      string
	target      string
	body        io.Reader
	contentType string
	userID      *uuid.UUID
	session     string
	params      map[string]string
}

func serve(t *testing.T, r request, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(r.method, r.target, r.body)
	if r.contentType != "" {
		req.Header.Set(echo.HeaderContentType, r.contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(r.params))
	values := make([]string, 0, len(r.params))
	for k, v := range r.params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if r.userID != nil {
		c.Set(auth.ContextKeyUserID, *r.userID)
		c.Set(auth.ContextKeyAuthType, auth.AuthTypeJWT)
	}
	if r.session != "" {
		c.Set(middleware.ShareSessionContextKey, r.session)
	}

	require.NoError(t, h(c))
	return rec
}

func jsonBody(v any) io.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ============================================================================
// Fakes
// ============================================================================

type fakeFolders struct {
	FolderManager
	renamed    *string
	reparented bool
	newParent  *uuid.UUID
	err        error
}

func (f *fakeFolders) Rename(_ context.Context, owner, id uuid.UUID, name string) (*file.Folder, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.renamed = &name
	return &file.Folder{ID: id, OwnerID: owner, Name: name}, nil
}

func (f *fakeFolders) Reparent(_ context.Context, owner, id uuid.UUID, parent *uuid.UUID) (*file.Folder, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reparented = true
	f.newParent = parent
	return &file.Folder{ID: id, OwnerID: owner, ParentID: parent, Name: "moved"}, nil
}

type fakeFiles struct {
	FileManager
	uploaded service.UploadInput
	content  string
	body     string
}

func (f *fakeFiles) Upload(_ context.Context, in service.UploadInput) (*file.File, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.uploaded = in
	f.content = string(data)
	return &file.File{ID: uuid.New(), OwnerID: in.OwnerID, FolderID: in.FolderID, Name: in.Name, SizeBytes: in.Size, MimeType: "text/plain"}, nil
}

func (f *fakeFiles) Open(_ context.Context, owner, id uuid.UUID) (*file.File, io.ReadCloser, error) {
	return &file.File{ID: id, OwnerID: owner, Name: "report final.txt", SizeBytes: int64(len(f.body)), MimeType: "text/plain"},
		io.NopCloser(strings.NewReader(f.body)), nil
}

type fakeShares struct {
	ShareManager
	created bool
	update  service.ShareUpdate
}

func (f *fakeShares) GetOrCreate(_ context.Context, owner uuid.UUID, target share.Target) (*share.Share, bool, error) {
	return &share.Share{ID: uuid.New(), OwnerID: owner, FileID: target.FileID, FolderID: target.FolderID, PasswordHash: "secret-hash", IsActive: true}, f.created, nil
}

func (f *fakeShares) Update(_ context.Context, owner, id uuid.UUID, u service.ShareUpdate) (*share.Share, error) {
	f.update = u
	return &share.Share{ID: id, OwnerID: owner, IsActive: true, ExpiresAt: u.ExpiresAt}, nil
}

type fakePortal struct {
	accessErr error
	visitor   service.Visitor
	password  string
}

func (f *fakePortal) Access(_ context.Context, shareID uuid.UUID, v service.Visitor, _ *uuid.UUID) (*service.SharedContent, error) {
	f.visitor = v
	if f.accessErr != nil {
		return nil, f.accessErr
	}
	fileID := uuid.New()
	return &service.SharedContent{
		Share: &share.Share{ID: shareID, FileID: &fileID, IsActive: true},
		File:  &file.File{ID: fileID, Name: "a.pdf", SizeBytes: 2048, MimeType: "application/pdf"},
	}, nil
}

func (f *fakePortal) OpenSharedFile(context.Context, uuid.UUID, service.Visitor, *uuid.UUID) (*file.File, io.ReadCloser, error) {
	return nil, nil, apperrors.NotFound("file not found")
}

func (f *fakePortal) VerifyPassword(_ context.Context, _ uuid.UUID, v service.Visitor, candidate string) error {
	f.visitor = v
	f.password = candidate
	if candidate != "open sesame" {
		return apperrors.IncorrectPassword()
	}
	return nil
}

// ============================================================================
// Error mapping
// ============================================================================

func TestMapToPublicError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"Validation", apperrors.Validation("name is required"), http.StatusBadRequest, "name is required"},
		{"Quota", apperrors.QuotaExceeded("storage quota exceeded"), http.StatusBadRequest, "storage quota exceeded"},
		{"Not found", apperrors.NotFound("folder not found"), http.StatusNotFound, "folder not found"},
		{"Share denied", apperrors.ShareDenied(share.ReasonExpired), http.StatusForbidden, share.ReasonExpired},
		{"Incorrect password", apperrors.IncorrectPassword(), http.StatusForbidden, "incorrect password"},
		{"Password required", apperrors.PasswordRequired(), http.StatusUnauthorized, "this link is password protected"},
		{"Conflict", apperrors.Conflict("trash sweep already running"), http.StatusConflict, "trash sweep already running"},
		{"Storage", apperrors.Storage("could not store the file, please try again later", errors.New("s3: connection reset")), http.StatusServiceUnavailable, "could not store the file, please try again later"},
		{"Unknown", errors.New("pq: relation does not exist"), http.StatusInternalServerError, msgInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := MapToPublicError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}

// ============================================================================
// Folders and files
// ============================================================================

func TestUpdateFolderDistinguishesNullParent(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	params := map[string]string{paramID: id.String()}

	folders := &fakeFolders{}
	h := NewFolderHandler(folders)
	rec := serve(t, request{
		method: http.MethodPatch, target: "/api/folders/" + id.String(),
		body: strings.NewReader(`{"name":"renamed"}`), contentType: contentTypeJSON,
		userID: &owner, params: params,
	}, h.UpdateFolder)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, folders.renamed)
	assert.Equal(t, "renamed", *folders.renamed)
	assert.False(t, folders.reparented, "omitted parent_id leaves the folder in place")

	folders = &fakeFolders{}
	h = NewFolderHandler(folders)
	rec = serve(t, request{
		method: http.MethodPatch, target: "/api/folders/" + id.String(),
		body: strings.NewReader(`{"parent_id":null}`), contentType: contentTypeJSON,
		userID: &owner, params: params,
	}, h.UpdateFolder)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, folders.reparented)
	assert.Nil(t, folders.newParent, "null parent_id moves to the root level")

	rec = serve(t, request{
		method: http.MethodPatch, target: "/api/folders/" + id.String(),
		body: strings.NewReader(`{}`), contentType: contentTypeJSON,
		userID: &owner, params: params,
	}, h.UpdateFolder)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateFolderRendersServiceErrors(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	h := NewFolderHandler(&fakeFolders{err: apperrors.Validation("a folder with this name already exists here")})

	rec := serve(t, request{
		method: http.MethodPatch, target: "/api/folders/" + id.String(),
		body: strings.NewReader(`{"name":"dup"}`), contentType: contentTypeJSON,
		userID: &owner, params: map[string]string{paramID: id.String()},
	}, h.UpdateFolder)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "a folder with this name already exists here", decode(t, rec)[jsonKeyError])
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	owner := uuid.New()
	h := NewFileHandler(&fakeFiles{})

	rec := serve(t, request{
		method: http.MethodGet, target: "/api/files/nope",
		userID: &owner, params: map[string]string{paramID: "nope"},
	}, h.GetFile)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidFileID, decode(t, rec)[jsonKeyError])
}

func TestUploadFileMultipart(t *testing.T) {
	owner := uuid.New()
	folderID := uuid.New()
	files := &fakeFiles{}
	h := NewFileHandler(files)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField(formFolderID, folderID.String()))
	part, err := w.CreateFormFile(formFile, "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rec := serve(t, request{
		method: http.MethodPost, target: "/api/files",
		body: &body, contentType: w.FormDataContentType(), userID: &owner,
	}, h.UploadFile)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "notes.txt", files.uploaded.Name)
	assert.Equal(t, int64(5), files.uploaded.Size)
	assert.Equal(t, folderID, *files.uploaded.FolderID)
	assert.Equal(t, "hello", files.content)

	resp := decode(t, rec)
	assert.Equal(t, "5.0 B", resp["size_formatted"])
	assert.NotContains(t, resp, "blob_key")
}

func TestUploadFileRequiresFilePart(t *testing.T) {
	owner := uuid.New()
	h := NewFileHandler(&fakeFiles{})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	rec := serve(t, request{
		method: http.MethodPost, target: "/api/files",
		body: &body, contentType: w.FormDataContentType(), userID: &owner,
	}, h.UploadFile)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadSetsHeaders(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	h := NewFileHandler(&fakeFiles{body: "file bytes"})
	params := map[string]string{paramID: id.String()}

	rec := serve(t, request{method: http.MethodGet, target: "/x", userID: &owner, params: params}, h.DownloadFile)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "file bytes", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="report final.txt"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "10", rec.Header().Get(echo.HeaderContentLength))

	rec = serve(t, request{method: http.MethodGet, target: "/x", userID: &owner, params: params}, h.PreviewFile)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), "inline"))
}

// ============================================================================
// Shares
// ============================================================================

func TestCreateShareStatus(t *testing.T) {
	owner := uuid.New()
	fileID := uuid.New()

	tests := []struct {
		name    string
		created bool
		status  int
	}{
		{"New share", true, http.StatusCreated},
		{"Existing share", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewShareHandler(&fakeShares{created: tt.created}, nil)
			rec := serve(t, request{
				method: http.MethodPost, target: "/api/shares",
				body: jsonBody(map[string]any{"file_id": fileID}), contentType: contentTypeJSON,
				userID: &owner,
			}, h.CreateShare)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, true, resp["has_password"])
			assert.NotContains(t, resp, "password_hash")
		})
	}
}

func TestCreateShareRejectsAmbiguousTarget(t *testing.T) {
	owner := uuid.New()
	h := NewShareHandler(&fakeShares{}, nil)

	for _, body := range []any{
		map[string]any{},
		map[string]any{"file_id": uuid.New(), "folder_id": uuid.New()},
	} {
		rec := serve(t, request{
			method: http.MethodPost, target: "/api/shares",
			body: jsonBody(body), contentType: contentTypeJSON, userID: &owner,
		}, h.CreateShare)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestUpdateShareExpiry(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	params := map[string]string{paramID: id.String()}

	shares := &fakeShares{}
	h := NewShareHandler(shares, nil)
	rec := serve(t, request{
		method: http.MethodPatch, target: "/x",
		body: strings.NewReader(`{"expires_at":null}`), contentType: contentTypeJSON,
		userID: &owner, params: params,
	}, h.UpdateShare)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, shares.update.ClearExpiry)
	assert.Nil(t, shares.update.ExpiresAt)

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	rec = serve(t, request{
		method: http.MethodPatch, target: "/x",
		body: jsonBody(map[string]any{"expires_at": expiry, "is_active": false}), contentType: contentTypeJSON,
		userID: &owner, params: params,
	}, h.UpdateShare)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, shares.update.ClearExpiry)
	require.NotNil(t, shares.update.ExpiresAt)
	assert.True(t, expiry.Equal(*shares.update.ExpiresAt))
	require.NotNil(t, shares.update.Active)
	assert.False(t, *shares.update.Active)
}

func TestPublicViewPasswordRequired(t *testing.T) {
	shareID := uuid.New()
	portal := &fakePortal{accessErr: apperrors.PasswordRequired()}
	h := NewPublicShareHandler(portal)

	rec := serve(t, request{
		method: http.MethodGet, target: "/s/" + shareID.String(),
		session: "visitor-session", params: map[string]string{paramID: shareID.String()},
	}, h.View)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, true, resp[jsonKeyPasswordRequired])
	assert.Equal(t, "password_required", resp[jsonKeyState])
	assert.Equal(t, "visitor-session", portal.visitor.SessionID)
	assert.Nil(t, portal.visitor.UserID)
}

func TestPublicViewDeniedShowsReason(t *testing.T) {
	shareID := uuid.New()
	h := NewPublicShareHandler(&fakePortal{accessErr: apperrors.ShareDenied(share.ReasonInactive)})

	rec := serve(t, request{
		method: http.MethodGet, target: "/s/x",
		params: map[string]string{paramID: shareID.String()},
	}, h.View)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, share.ReasonInactive, decode(t, rec)[jsonKeyError])
}

func TestPublicViewGranted(t *testing.T) {
	shareID := uuid.New()
	user := uuid.New()
	portal := &fakePortal{}
	h := NewPublicShareHandler(portal)

	rec := serve(t, request{
		method: http.MethodGet, target: "/s/x",
		userID: &user, params: map[string]string{paramID: shareID.String()},
	}, h.View)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "granted", resp["state"])
	assert.Equal(t, "a.pdf", resp["file"].(map[string]any)["name"])
	require.NotNil(t, portal.visitor.UserID)
	assert.Equal(t, user, *portal.visitor.UserID)
}

func TestSubmitPassword(t *testing.T) {
	shareID := uuid.New()
	params := map[string]string{paramID: shareID.String()}
	portal := &fakePortal{}
	h := NewPublicShareHandler(portal)

	rec := serve(t, request{
		method: http.MethodPost, target: "/s/x",
		body: strings.NewReader("password=open+sesame"), contentType: echo.MIMEApplicationForm,
		session: "s1", params: params,
	}, h.SubmitPassword)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open sesame", portal.password)

	rec = serve(t, request{
		method: http.MethodPost, target: "/s/x",
		body: strings.NewReader("password=guess"), contentType: echo.MIMEApplicationForm,
		session: "s1", params: params,
	}, h.SubmitPassword)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "incorrect password", decode(t, rec)[jsonKeyError])
}
