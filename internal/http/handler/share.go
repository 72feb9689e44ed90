package handler

import (
	"net/http"
	"time"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/domain/share"
	"docshare/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ShareHandler serves the owner side of share links.
type ShareHandler struct {
	shares ShareManager
	events ShareEventQuerier
}

func NewShareHandler(shares ShareManager, events ShareEventQuerier) *ShareHandler {
	return &ShareHandler{shares: shares, events: events}
}

type CreateShareRequest struct {
	FileID   *uuid.UUID `json:"file_id"`
	FolderID *uuid.UUID `json:"folder_id"`
}

// UpdateShareRequest edits share settings. An empty password removes the
// password and an expires_at of null removes the expiry.
type UpdateShareRequest struct {
	Password     *string             `json:"password"`
	IsActive     *bool               `json:"is_active"`
	ExpiresAt    nullable[time.Time] `json:"expires_at"`
	AllowedUsers *[]uuid.UUID        `json:"allowed_users"`
}

// CreateShare returns the existing active share for the target, or creates
// one. The status is 201 only when a share was created.
func (h *ShareHandler) CreateShare(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	var req CreateShareRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	target := share.Target{FileID: req.FileID, FolderID: req.FolderID}
	if target.Validate() != nil {
		return respondError(c, http.StatusBadRequest, msgShareTargetRequired)
	}

	sh, created, err := h.shares.GetOrCreate(c.Request().Context(), ownerID, target)
	if err != nil {
		return fail(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, toShareResponse(sh))
}

func (h *ShareHandler) ListShares(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	shares, err := h.shares.List(c.Request().Context(), ownerID)
	if err != nil {
		return fail(c, err)
	}

	resp := make([]ShareResponse, 0, len(shares))
	for _, sh := range shares {
		resp = append(resp, toShareResponse(sh))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ShareHandler) GetShare(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	sh, err := h.shares.Get(c.Request().Context(), ownerID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toShareResponse(sh))
}

func (h *ShareHandler) UpdateShare(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	var req UpdateShareRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	if req.Password == nil && req.IsActive == nil && !req.ExpiresAt.Set && req.AllowedUsers == nil {
		return respondError(c, http.StatusBadRequest, msgPatchEmpty)
	}

	update := service.ShareUpdate{
		Password:     req.Password,
		Active:       req.IsActive,
		AllowedUsers: req.AllowedUsers,
	}
	if req.ExpiresAt.Set {
		update.ExpiresAt = req.ExpiresAt.Value
		update.ClearExpiry = req.ExpiresAt.Value == nil
	}

	sh, err := h.shares.Update(c.Request().Context(), ownerID, id, update)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toShareResponse(sh))
}

func (h *ShareHandler) DeleteShare(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	if err := h.shares.Delete(c.Request().Context(), ownerID, id); err != nil {
		return fail(c, err)
	}
	return respondMessage(c, http.StatusOK, msgShareDeleted)
}

// ListShareEvents returns the most recent access audit events of a share
// the caller owns.
func (h *ShareHandler) ListShareEvents(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	ctx := c.Request().Context()
	if _, err := h.shares.Get(ctx, ownerID, id); err != nil {
		return fail(c, err)
	}

	resourceType := audit.ResourceTypeShare
	events, err := h.events.Query(ctx, audit.QueryFilter{
		ResourceType: &resourceType,
		ResourceID:   &id,
		Limit:        shareEventsLimit,
	})
	if err != nil {
		return fail(c, err)
	}
	if events == nil {
		events = []*audit.Event{}
	}
	return c.JSON(http.StatusOK, events)
}
