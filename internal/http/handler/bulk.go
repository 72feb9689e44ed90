package handler

import (
	"net/http"

	"docshare/internal/auth"
	"docshare/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type BulkHandler struct {
	bulk BulkApplier
}

func NewBulkHandler(bulk BulkApplier) *BulkHandler {
	return &BulkHandler{bulk: bulk}
}

type BulkActionRequest struct {
	Action         string      `json:"action"`
	IDs            []uuid.UUID `json:"ids"`
	TargetFolderID *uuid.UUID  `json:"target_folder_id"`
}

func (r BulkActionRequest) toService() service.BulkRequest {
	return service.BulkRequest{
		Action:         service.BulkAction(r.Action),
		IDs:            r.IDs,
		TargetFolderID: r.TargetFolderID,
	}
}

func (h *BulkHandler) Files(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	var req BulkActionRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	result, err := h.bulk.ApplyToFiles(c.Request().Context(), ownerID, req.toService())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *BulkHandler) Folders(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	var req BulkActionRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	result, err := h.bulk.ApplyToFolders(c.Request().Context(), ownerID, req.toService())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
