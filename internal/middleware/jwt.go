// Package middleware holds the Echo middleware of the API: authentication,
// authorization, rate limiting, response caching, request logging and
// metrics.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// JWTAuth requires a valid Bearer access token and stores its claims on
// the context.  Failures carry a reason code so clients can tell an expired
// token (refresh and retry) from an invalid one (sign in again).
func JWTAuth(tm *token.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return apperr.Token(apperr.CodeTokenMissing, "missing bearer token")
			}
			claims, err := tm.VerifyAccess(raw)
			if err != nil {
				return token.AsAppError(err)
			}
			c.Set(ctxClaims, claims)
			c.Set(ctxUserID, claims.UserID)
			return next(c)
		}
	}
}
