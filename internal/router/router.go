// Package router builds the Echo instance and registers the API routes.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// maxBody admits the largest video upload plus multipart overhead.
const maxBody = "110M"

// New returns an Echo instance with validation, error rendering and the
// global middleware chain installed.
func New(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	// RequestLogger renders errors itself, so Metrics and Recover sit
	// inside it.
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(maxBody))
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers /v1/auth.  Credential endpoints pass through
// limiter; the rest of the group requires an access token, and the user
// directory is admin only.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tm *token.Manager, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)
	g.POST("/refresh-token", a.RefreshToken, limiter)
	g.POST("/logout", a.Logout)
	g.POST("/verify-email", a.VerifyEmail)
	g.POST("/forgot-password", a.ForgotPassword, limiter)
	g.POST("/verify-forgot-password", a.VerifyForgotPassword, limiter)
	g.POST("/reset-password", a.ResetPassword, limiter)
	g.GET("/oauth/google/url", a.GoogleURL)
	g.GET("/oauth/google", a.GoogleCallback)

	authed := g.Group("", middleware.JWTAuth(tm))
	authed.POST("/logout-all", a.LogoutAll)
	authed.POST("/resend-verify-email", a.ResendVerifyEmail, limiter)
	authed.POST("/change-password", a.ChangePassword, limiter)
	authed.GET("/me", a.Me)
	authed.POST("/update-me", a.UpdateMe)
	authed.GET("/profile/:id", a.Profile)

	admin := authed.Group("/users", middleware.RequireRole(model.RoleAdmin))
	admin.GET("", a.ListUsers)
	admin.DELETE("/:id", a.DeleteUser)
	admin.PATCH("/:id/status", a.ToggleStatus)
}
