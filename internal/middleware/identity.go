package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// Context keys written by JWTAuth.
const (
	ctxClaims = "claims"
	ctxUserID = "user_id"
)

// Claims returns the verified access token claims of the request, or nil
// on unauthenticated routes.
func Claims(c echo.Context) *token.Claims {
	cl, _ := c.Get(ctxClaims).(*token.Claims)
	return cl
}

// UserID returns the authenticated user id, "" when there is none.
func UserID(c echo.Context) string {
	if cl := Claims(c); cl != nil {
		return cl.UserID
	}
	return ""
}

// Role returns the authenticated role, "" when there is none.
func Role(c echo.Context) model.Role {
	if cl := Claims(c); cl != nil {
		return cl.Role
	}
	return ""
}
