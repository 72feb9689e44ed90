package handler

import (
	"errors"
	"net/http"
	"time"

	"docshare/internal/domain/file"
	"docshare/internal/domain/share"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyError: message})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyMessage: message})
}

func handleHTTPError(c echo.Context, err error) error {
	if he, ok := err.(*echo.HTTPError); ok {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		return respondError(c, he.Code, msg)
	}

	return respondError(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// fail renders request parsing errors and service errors alike.
func fail(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return handleHTTPError(c, he)
	}
	return respondServiceError(c, err)
}

type FolderResponse struct {
	ID         uuid.UUID  `json:"id"`
	ParentID   *uuid.UUID `json:"parent_id"`
	Name       string     `json:"name"`
	IsFavorite bool       `json:"is_favorite"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type FileResponse struct {
	ID             uuid.UUID  `json:"id"`
	FolderID       *uuid.UUID `json:"folder_id"`
	Name           string     `json:"name"`
	SizeBytes      int64      `json:"size_bytes"`
	SizeFormatted  string     `json:"size_formatted"`
	MimeType       string     `json:"mime_type"`
	IsFavorite     bool       `json:"is_favorite"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type ContentsResponse struct {
	Folder  *FolderResponse  `json:"folder,omitempty"`
	Folders []FolderResponse `json:"folders"`
	Files   []FileResponse   `json:"files"`
}

// ShareResponse never carries the password hash, only whether one is set.
type ShareResponse struct {
	ID           uuid.UUID   `json:"id"`
	FileID       *uuid.UUID  `json:"file_id,omitempty"`
	FolderID     *uuid.UUID  `json:"folder_id,omitempty"`
	ExpiresAt    *time.Time  `json:"expires_at"`
	HasPassword  bool        `json:"has_password"`
	AllowedUsers []uuid.UUID `json:"allowed_users"`
	AccessCount  int64       `json:"access_count"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func toFolderResponse(f *file.Folder) FolderResponse {
	return FolderResponse{
		ID:         f.ID,
		ParentID:   f.ParentID,
		Name:       f.Name,
		IsFavorite: f.IsFavorite,
		DeletedAt:  f.DeletedAt,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

func toFileResponse(f *file.File) FileResponse {
	return FileResponse{
		ID:             f.ID,
		FolderID:       f.FolderID,
		Name:           f.Name,
		SizeBytes:      f.SizeBytes,
		SizeFormatted:  f.FormattedSize(),
		MimeType:       f.MimeType,
		IsFavorite:     f.IsFavorite,
		DeletedAt:      f.DeletedAt,
		LastAccessedAt: f.LastAccessedAt,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func toFolderResponses(folders []*file.Folder) []FolderResponse {
	out := make([]FolderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, toFolderResponse(f))
	}
	return out
}

func toFileResponses(files []*file.File) []FileResponse {
	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}

func toContentsResponse(c *file.Contents) ContentsResponse {
	resp := ContentsResponse{
		Folders: toFolderResponses(c.Folders),
		Files:   toFileResponses(c.Files),
	}
	if c.Folder != nil {
		folder := toFolderResponse(c.Folder)
		resp.Folder = &folder
	}
	return resp
}

func toShareResponse(s *share.Share) ShareResponse {
	allowed := s.AllowedUsers
	if allowed == nil {
		allowed = []uuid.UUID{}
	}
	return ShareResponse{
		ID:           s.ID,
		FileID:       s.FileID,
		FolderID:     s.FolderID,
		ExpiresAt:    s.ExpiresAt,
		HasPassword:  s.HasPassword(),
		AllowedUsers: allowed,
		AccessCount:  s.AccessCount,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
