package api

import (
	echo "github.com/labstack/echo/v5"
)

// userIDHeader is the oauth2-proxy header carrying the authenticated
// user's id, consistent with the teacher's original extractAuthor
// pattern for X-Forwarded-User.
const userIDHeader = "X-Forwarded-User"

// extractUserID reads the authenticated user id from the oauth2-proxy
// header. A nil return means the request is unauthenticated, which is
// legal for legacy/unowned sessions (spec.md §3 "user_id = ∅").
func extractUserID(c *echo.Context) *string {
	if id := c.Request().Header.Get(userIDHeader); id != "" {
		return &id
	}
	return nil
}
