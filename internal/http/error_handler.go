package http

import (
	"errors"
	"fmt"
	"net/http"

	"docshare/internal/http/handler"
	"docshare/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CustomHTTPErrorHandler handles errors that reach echo: routing and
// middleware errors plus anything a handler returned instead of rendering.
// Service errors are mapped the same way handlers map them, and 5xx details
// never reach the client.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var code int
	var message string

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	} else {
		code, message = handler.MapToPublicError(err)
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = "unknown"
	}

	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", requestID).
			Int("status", code).
			Msg("internal_server_error")
		if httpErr == nil {
			message = http.StatusText(code)
		}
	} else {
		logger.Debug().Err(err).
			Str("request_id", requestID).
			Int("status", code).
			Msg("client_error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]interface{}{
			"error":      message,
			"request_id": requestID,
		})
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to write error response")
	}
}
