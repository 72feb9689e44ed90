package handler

import (
	"net/http"
	"strconv"

	"docshare/internal/auth"
	"docshare/internal/sweeper"

	"github.com/labstack/echo/v4"
)

// LibraryHandler serves the cross-folder views of a user's library:
// favorites, recent files, trash, search and storage usage.
type LibraryHandler struct {
	lists   LibraryLister
	recent  RecentLister
	usage   UsageReporter
	sweeper TrashSweeper
}

func NewLibraryHandler(lists LibraryLister, recent RecentLister, usage UsageReporter, sweep TrashSweeper) *LibraryHandler {
	return &LibraryHandler{lists: lists, recent: recent, usage: usage, sweeper: sweep}
}

func (h *LibraryHandler) Favorites(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	contents, err := h.lists.Favorites(c.Request().Context(), ownerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toContentsResponse(contents))
}

func (h *LibraryHandler) Recent(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}
	limit, err := parseLimit(c)
	if err != nil {
		return handleHTTPError(c, err)
	}

	files, err := h.recent.Recent(c.Request().Context(), ownerID, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toFileResponses(files))
}

func (h *LibraryHandler) Trash(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	contents, err := h.lists.Trash(c.Request().Context(), ownerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toContentsResponse(contents))
}

// EmptyTrash purges everything the caller has in the trash right away.
// With ?dry_run=true it only reports what would be removed.
func (h *LibraryHandler) EmptyTrash(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	dryRun := false
	if raw := c.QueryParam(queryDryRun); raw != "" {
		if dryRun, err = strconv.ParseBool(raw); err != nil {
			return respondError(c, http.StatusBadRequest, msgInvalidRequestBody)
		}
	}

	report, err := h.sweeper.Run(c.Request().Context(), sweeper.Options{
		DryRun:  dryRun,
		OwnerID: &ownerID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *LibraryHandler) Search(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	contents, err := h.lists.Search(c.Request().Context(), ownerID, c.QueryParam(querySearch))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toContentsResponse(contents))
}

func (h *LibraryHandler) Usage(c echo.Context) error {
	ownerID, err := auth.GetUserID(c)
	if err != nil {
		return fail(c, err)
	}

	usage, err := h.usage.Usage(c.Request().Context(), ownerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, usage)
}
