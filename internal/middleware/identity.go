package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok {
		return s
	}
	return ""
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	if s, ok := c.Get(ContextRole).(string); ok {
		return s
	}
	return ""
}

// callerKey identifies the caller for rate limit and cache keys.
func callerKey(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
