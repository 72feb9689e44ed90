package handler

import (
	"net/http"

	"docshare/internal/auth"
	"docshare/internal/domain/file"
	"docshare/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type FolderHandler struct {
	folders FolderManager
}

func NewFolderHandler(folders FolderManager) *FolderHandler {
	return &FolderHandler{folders: folders}
}

type CreateFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// UpdateFolderRequest renames and/or moves a folder. A parent_id of null
// moves the folder to the root level; omitting it leaves the parent alone.
type UpdateFolderRequest struct {
	Name     *string             `json:"name"`
	ParentID nullable[uuid.UUID] `json:"parent_id"`
}

type FolderDetailResponse struct {
	Folder        FolderResponse   `json:"folder"`
	Breadcrumbs   []FolderResponse `json:"breadcrumbs"`
	Path          string           `json:"path"`
	SizeBytes     int64            `json:"size_bytes"`
	SizeFormatted string           `json:"size_formatted"`
	Folders       []FolderResponse `json:"folders"`
	Files         []FileResponse   `json:"files"`
}

func (h *FolderHandler) CreateFolder(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	var req CreateFolderRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	folder, err := h.folders.Create(c.Request().Context(), ownerID, req.Name, req.ParentID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, toFolderResponse(folder))
}

// GetFolder returns the folder with its breadcrumbs, path, recursive size
// and active contents.
func (h *FolderHandler) GetFolder(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	ctx := c.Request().Context()
	contents, err := h.folders.Contents(ctx, ownerID, &id)
	if err != nil {
		return fail(c, err)
	}
	crumbs, err := h.folders.Breadcrumbs(ctx, ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	size, err := h.folders.Size(ctx, ownerID, id)
	if err != nil {
		return fail(c, err)
	}

	names := make([]string, len(crumbs))
	for i, f := range crumbs {
		names[i] = f.Name
	}

	return c.JSON(http.StatusOK, FolderDetailResponse{
		Folder:        toFolderResponse(contents.Folder),
		Breadcrumbs:   toFolderResponses(crumbs),
		Path:          service.JoinPath(names),
		SizeBytes:     size,
		SizeFormatted: file.FormatSize(size),
		Folders:       toFolderResponses(contents.Folders),
		Files:         toFileResponses(contents.Files),
	})
}

// ListRoot returns the active folders and files at the root level.
func (h *FolderHandler) ListRoot(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	contents, err := h.folders.Contents(c.Request().Context(), ownerID, nil)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toContentsResponse(contents))
}

func (h *FolderHandler) UpdateFolder(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	var req UpdateFolderRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	if req.Name == nil && !req.ParentID.Set {
		return respondError(c, http.StatusBadRequest, msgPatchEmpty)
	}

	ctx := c.Request().Context()
	var folder *file.Folder
	if req.Name != nil {
		if folder, err = h.folders.Rename(ctx, ownerID, id, *req.Name); err != nil {
			return fail(c, err)
		}
	}
	if req.ParentID.Set {
		if folder, err = h.folders.Reparent(ctx, ownerID, id, req.ParentID.Value); err != nil {
			return fail(c, err)
		}
	}

	return c.JSON(http.StatusOK, toFolderResponse(folder))
}

func (h *FolderHandler) TrashFolder(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	if err := h.folders.MoveToTrash(c.Request().Context(), ownerID, id); err != nil {
		return fail(c, err)
	}
	return respondMessage(c, http.StatusOK, msgFolderTrashed)
}

func (h *FolderHandler) RestoreFolder(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	folder, err := h.folders.RestoreFromTrash(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toFolderResponse(folder))
}

func (h *FolderHandler) ToggleFavorite(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	folder, err := h.folders.ToggleFavorite(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toFolderResponse(folder))
}
