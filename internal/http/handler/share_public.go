package handler

import (
	"net/http"
	"time"

	"docshare/internal/auth"
	"docshare/internal/domain/share"
	"docshare/internal/http/middleware"
	"docshare/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PublicShareHandler serves share links to visitors. Authentication is
// optional; anonymous visitors are identified by their share session.
type PublicShareHandler struct {
	portal SharePortal
}

func NewPublicShareHandler(portal SharePortal) *PublicShareHandler {
	return &PublicShareHandler{portal: portal}
}

// SharedContentResponse is what a visitor sees once access is granted.
type SharedContentResponse struct {
	State       string           `json:"state"`
	ShareID     uuid.UUID        `json:"share_id"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	File        *FileResponse    `json:"file,omitempty"`
	Folder      *FolderResponse  `json:"folder,omitempty"`
	Breadcrumbs []FolderResponse `json:"breadcrumbs,omitempty"`
	Folders     []FolderResponse `json:"folders,omitempty"`
	Files       []FileResponse   `json:"files,omitempty"`
}

// View runs the access checks and, when granted, returns the shared file or
// the contents of the shared folder. ?folder_id= browses a subfolder.
func (h *PublicShareHandler) View(c echo.Context) error {
	shareID, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}
	subfolderID, err := parseOptionalID(c.QueryParam(queryFolderID), msgInvalidFolderID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	content, err := h.portal.Access(c.Request().Context(), shareID, visitorFrom(c), subfolderID)
	if err != nil {
		return fail(c, err)
	}

	resp := SharedContentResponse{
		State:     share.StateGranted.String(),
		ShareID:   content.Share.ID,
		ExpiresAt: content.Share.ExpiresAt,
	}
	if content.File != nil {
		f := toFileResponse(content.File)
		resp.File = &f
	}
	if content.Folder != nil {
		folder := toFolderResponse(content.Folder)
		resp.Folder = &folder
		resp.Breadcrumbs = toFolderResponses(content.Breadcrumbs)
		resp.Folders = toFolderResponses(content.Folders)
		resp.Files = toFileResponses(content.Files)
	}
	return c.JSON(http.StatusOK, resp)
}

// SubmitPassword checks the "password" form field. On success the
// visitor's session is remembered for this share.
func (h *PublicShareHandler) SubmitPassword(c echo.Context) error {
	shareID, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	if err := h.portal.VerifyPassword(c.Request().Context(), shareID, visitorFrom(c), c.FormValue(formPassword)); err != nil {
		return fail(c, err)
	}
	return respondMessage(c, http.StatusOK, msgPasswordAccepted)
}

// Download streams the shared file of a file share.
func (h *PublicShareHandler) Download(c echo.Context) error {
	shareID, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	f, body, err := h.portal.OpenSharedFile(c.Request().Context(), shareID, visitorFrom(c), nil)
	if err != nil {
		return fail(c, err)
	}
	return streamFile(c, f, body, dispositionAttachment)
}

// DownloadFromFolder streams a file that lives inside a shared folder.
func (h *PublicShareHandler) DownloadFromFolder(c echo.Context) error {
	shareID, err := parseIDParam(c, paramID, msgInvalidShareID)
	if err != nil {
		return handleHTTPError(c, err)
	}
	fileID, err := parseIDParam(c, paramFileID, msgInvalidFileID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	f, body, err := h.portal.OpenSharedFile(c.Request().Context(), shareID, visitorFrom(c), &fileID)
	if err != nil {
		return fail(c, err)
	}
	return streamFile(c, f, body, dispositionAttachment)
}

func visitorFrom(c echo.Context) service.Visitor {
	return service.Visitor{
		Caller: share.Caller{
			UserID:    auth.OptionalUserID(c),
			SessionID: middleware.GetShareSession(c),
		},
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
}
