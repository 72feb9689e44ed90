package handler

import (
	"errors"
	"net/http"

	"docshare/internal/domain/share"
	apperrors "docshare/pkg/errors"
	"docshare/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MapToPublicError maps service errors to a status code and a message that
// is safe to show. Client errors carry the AppError message; server errors
// never expose their cause.
func MapToPublicError(err error) (int, string) {
	status := http.StatusInternalServerError
	fallback := msgInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrPasswordRequired):
		status, fallback = http.StatusUnauthorized, "password required"
	case errors.Is(err, apperrors.ErrShareDenied):
		status, fallback = http.StatusForbidden, "access denied"
	case errors.Is(err, apperrors.ErrNotFound):
		status, fallback = http.StatusNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		status, fallback = http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, fallback = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		status, fallback = http.StatusForbidden, "access denied"
	case errors.Is(err, apperrors.ErrConflict):
		status, fallback = http.StatusConflict, "resource conflict"
	case errors.Is(err, apperrors.ErrStorage):
		return http.StatusServiceUnavailable, apperrors.PublicMessage(err, msgStorageUnavailable)
	default:
		return status, fallback
	}

	return status, apperrors.PublicMessage(err, fallback)
}

// respondServiceError renders err in the common error body. Server side
// failures are logged with their cause.
func respondServiceError(c echo.Context, err error) error {
	status, msg := MapToPublicError(err)
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", requestID).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Int("status", status).
			Msg("request failed")
	}

	body := map[string]any{
		jsonKeyError:     msg,
		jsonKeyRequestID: requestID,
	}
	if errors.Is(err, apperrors.ErrPasswordRequired) {
		body[jsonKeyPasswordRequired] = true
		body[jsonKeyState] = share.StatePasswordRequired.String()
	}
	return c.JSON(status, body)
}
