package handler

import "github.com/labstack/echo/v4"

// Identity arrives pre-verified from the gateway in front of this
// service; these headers are trusted, never re-checked here.
const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
	HeaderUserRole  = "X-User-Role"

	RoleOperator = "operator"
)

func userID(c echo.Context) string {
	return c.Request().Header.Get(HeaderUserID)
}

func sessionID(c echo.Context) string {
	return c.Request().Header.Get(HeaderSessionID)
}

func hasRole(c echo.Context, role string) bool {
	return c.Request().Header.Get(HeaderUserRole) == role
}
