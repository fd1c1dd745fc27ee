package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
)

// RequireRole lets the request through only when the authenticated role is
// one of roles.  It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Role(c).In(roles...) {
				return apperr.Forbidden("you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}

// RequireVerified rejects accounts whose email is not verified.  The flag
// is read from the access token, so it takes effect on the next refresh
// after verification.
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl := Claims(c)
			if cl == nil || cl.Verify != model.Verified {
				return apperr.Forbidden("email is not verified")
			}
			return next(c)
		}
	}
}
