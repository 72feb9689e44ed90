package middleware

import (
	"net/http"
	"time"

	"docshare/pkg/logger"
	"docshare/pkg/token"

	"github.com/labstack/echo/v4"
)

const (
	// ShareSessionCookie identifies an anonymous share visitor across
	// requests so a password only has to be entered once.
	ShareSessionCookie     = "share_session"
	ShareSessionContextKey = "share_session"
)

// ShareSession makes sure every public share request carries a session id.
// A missing or malformed cookie is replaced with a fresh one.
func ShareSession(maxAge time.Duration, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sessionID string
			if cookie, err := c.Cookie(ShareSessionCookie); err == nil && token.IsValidSessionID(cookie.Value) {
				sessionID = cookie.Value
			}

			if sessionID == "" {
				generated, err := token.GenerateSessionID()
				if err != nil {
					// Without a session the visitor can still open links that have no password.
					logger.Error().Err(err).Msg("failed to generate share session id")
					return next(c)
				}
				sessionID = generated
				c.SetCookie(&http.Cookie{
					Name:     ShareSessionCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(ShareSessionContextKey, sessionID)
			return next(c)
		}
	}
}

// GetShareSession returns the visitor's share session id, or "" when none
// was established.
func GetShareSession(c echo.Context) string {
	if id, ok := c.Get(ShareSessionContextKey).(string); ok {
		return id
	}
	return ""
}
