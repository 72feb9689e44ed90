package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"docshare/internal/auth"
	"docshare/internal/domain/file"
	"docshare/internal/service"
	"docshare/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type FileHandler struct {
	files FileManager
}

func NewFileHandler(files FileManager) *FileHandler {
	return &FileHandler{files: files}
}

// UpdateFileRequest renames and/or moves a file. A folder_id of null moves
// the file to the root level; omitting it leaves the folder alone.
type UpdateFileRequest struct {
	Name     *string             `json:"name"`
	FolderID nullable[uuid.UUID] `json:"folder_id"`
}

// UploadFile accepts a multipart form with the bytes in "file" and an
// optional "folder_id".
func (h *FileHandler) UploadFile(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	folderID, err := parseOptionalID(c.FormValue(formFolderID), msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	header, err := c.FormFile(formFile)
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgMissingUploadFile)
	}
	src, err := header.Open()
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgOpenUploadFailed)
	}
	defer src.Close()

	created, err := h.files.Upload(c.Request().Context(), service.UploadInput{
		OwnerID:     ownerID,
		FolderID:    folderID,
		Name:        header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Size:        header.Size,
		Body:        src,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, toFileResponse(created))
}

func (h *FileHandler) GetFile(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFileID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	f, err := h.files.Get(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toFileResponse(f))
}

func (h *FileHandler) DownloadFile(c echo.Context) error {
	return h.serve(c, dispositionAttachment)
}

func (h *FileHandler) PreviewFile(c echo.Context) error {
	return h.serve(c, dispositionInline)
}

func (h *FileHandler) serve(c echo.Context, disposition string) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFileID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	f, body, err := h.files.Open(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return streamFile(c, f, body, disposition)
}

func (h *FileHandler) UpdateFile(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFileID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	var req UpdateFileRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	if req.Name == nil && !req.FolderID.Set {
		return respondError(c, http.StatusBadRequest, msgPatchEmpty)
	}

	ctx := c.Request().Context()
	var f *file.File
	if req.Name != nil {
		if f, err = h.files.Rename(ctx, ownerID, id, *req.Name); err != nil {
			return fail(c, err)
		}
	}
	if req.FolderID.Set {
		if f, err = h.files.Move(ctx, ownerID, id, req.FolderID.Value); err != nil {
			return fail(c, err)
		}
	}

	return c.JSON(http.StatusOK, toFileResponse(f))
}

func (h *FileHandler) TrashFile(c echo.Context) error {
	ownerID, id, err := h.ownedID(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.files.MoveToTrash(c.Request().Context(), ownerID, id); err != nil {
		return fail(c, err)
	}
	return respondMessage(c, http.StatusOK, msgFileTrashed)
}

func (h *FileHandler) RestoreFile(c echo.Context) error {
	ownerID, id, err := h.ownedID(c)
	if err != nil {
		return fail(c, err)
	}

	f, err := h.files.RestoreFromTrash(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toFileResponse(f))
}

func (h *FileHandler) ToggleFavorite(c echo.Context) error {
	ownerID, id, err := h.ownedID(c)
	if err != nil {
		return fail(c, err)
	}

	f, err := h.files.ToggleFavorite(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toFileResponse(f))
}

// DeleteFile removes a trashed file and its bytes for good.
func (h *FileHandler) DeleteFile(c echo.Context) error {
	ownerID, id, err := h.ownedID(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.files.DeletePermanently(c.Request().Context(), ownerID, id); err != nil {
		return fail(c, err)
	}
	return respondMessage(c, http.StatusOK, msgFileDeleted)
}

func (h *FileHandler) ownedID(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := parseIDParam(c, paramID, msgInvalidFileID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return ownerID, id, nil
}

// streamFile writes the blob body with headers describing f. The body is
// always closed.
func streamFile(c echo.Context, f *file.File, body io.ReadCloser, disposition string) error {
	defer body.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType(disposition, map[string]string{"filename": f.Name}))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(f.SizeBytes, 10))
	header.Set("X-Content-Type-Options", "nosniff")

	if err := c.Stream(http.StatusOK, f.MimeType, body); err != nil {
		logger.Warn().Err(err).Str("file_id", f.ID.String()).Msg("file stream interrupted")
	}
	return nil
}
