package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/service"
)

// AuthAPI is the account flow used by AuthHandler.
type AuthAPI interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.PublicUser, error)
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, raw string) (*service.TokenPair, error)
	Logout(ctx context.Context, raw string) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	VerifyEmail(ctx context.Context, raw string) error
	ResendVerifyEmail(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyForgotPassword(ctx context.Context, raw string) error
	ResetPassword(ctx context.Context, raw, password, confirm string) error
	ChangePassword(ctx context.Context, userID, current, password, confirm string) error
	GoogleURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, code, state string) (*service.OAuthResult, error)
}

// UserAPI is the profile and user directory used by AuthHandler.
type UserAPI interface {
	Get(ctx context.Context, id string) (*model.PublicUser, error)
	UpdateProfile(ctx context.Context, id string, in service.ProfileInput) (*model.PublicUser, error)
	List(ctx context.Context, p model.Page) ([]model.PublicUser, model.Pagination, error)
	Delete(ctx context.Context, actorID, id string) error
	ToggleStatus(ctx context.Context, actorID, id string) (*model.PublicUser, error)
}

// AuthHandler serves /v1/auth.
type AuthHandler struct {
	auth      AuthAPI
	users     UserAPI
	clientURL string
	log       zerolog.Logger
}

func NewAuthHandler(auth AuthAPI, users UserAPI, clientURL string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, clientURL: strings.TrimRight(clientURL, "/"), log: log}
}

// dateOnly accepts "2006-01-02" as well as RFC 3339 timestamps.
type dateOnly struct{ t *time.Time }

func (d *dateOnly) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.t = nil
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.t = &t
			return nil
		}
	}
	return apperr.Validation("dateOfBirth must be a date (YYYY-MM-DD)")
}

type registerReq struct {
	Name            string    `json:"name" validate:"omitempty,max=100"`
	Email           string    `json:"email" validate:"required,email"`
	Password        string    `json:"password" validate:"required,min=6,max=20"`
	ConfirmPassword string    `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string    `json:"role"`
	DateOfBirth     *dateOnly `json:"dateOfBirth"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=20"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyEmailReq struct {
	Token string `json:"email_verify_token" validate:"required"`
}

type forgotTokenReq struct {
	Token string `json:"forgot_password_token" validate:"required"`
}

type resetPasswordReq struct {
	Token           string `json:"forgot_password_token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type updateMeReq struct {
	Name        *string   `json:"name" validate:"omitempty,max=100"`
	Gender      *string   `json:"gender"`
	DateOfBirth *dateOnly `json:"dateOfBirth"`
	Bio         *string   `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string   `json:"avatarUrl" validate:"omitempty,url"`
}

func (d *dateOnly) value() *time.Time {
	if d == nil {
		return nil
	}
	return d.t
}

// Register creates an account and sends the verification mail.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.auth.Register(ctx, service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		DateOfBirth: req.DateOfBirth.value(),
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "registered, check your email to verify the account", u)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	pair, err := h.auth.Login(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "login successful", pair)
}

// RefreshToken rotates the presented refresh token.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	pair, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "token refreshed", pair)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.Logout(ctx, req.RefreshToken); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.auth.LogoutAll(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "all sessions ended", echo.Map{"sessions": n})
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.VerifyEmail(ctx, req.Token); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "email verified", nil)
}

func (h *AuthHandler) ResendVerifyEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.ResendVerifyEmail(ctx, middleware.UserID(c)); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "verification email sent", nil)
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.ForgotPassword(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "password reset email sent", nil)
}

func (h *AuthHandler) VerifyForgotPassword(c echo.Context) error {
	var req forgotTokenReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.VerifyForgotPassword(ctx, req.Token); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "reset token is valid", nil)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.auth.ResetPassword(ctx, req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "password has been reset", nil)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	err := h.auth.ChangePassword(ctx, middleware.UserID(c), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "password changed", nil)
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.users.Get(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", u)
}

func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req updateMeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.users.UpdateProfile(ctx, middleware.UserID(c), service.ProfileInput{
		Name:        req.Name,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth.value(),
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "profile updated", u)
}

// Profile shows another user's public profile.
func (h *AuthHandler) Profile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", u)
}

func (h *AuthHandler) ListUsers(c echo.Context) error {
	var q Paging
	if err := bind(c, &q); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, pg, err := h.users.List(ctx, q.page())
	if err != nil {
		return err
	}
	return list(c, users, pg)
}

func (h *AuthHandler) DeleteUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.users.Delete(ctx, middleware.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "user deleted", nil)
}

func (h *AuthHandler) ToggleStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.users.ToggleStatus(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "status updated", u)
}

// GoogleURL returns the consent page to send the browser to.
func (h *AuthHandler) GoogleURL(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.auth.GoogleURL(ctx)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"url": u})
}

// GoogleCallback finishes the consent round trip and redirects the browser
// back to the client with the tokens, or with an error message.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if msg := c.QueryParam("error"); msg != "" {
		return c.Redirect(http.StatusFound, h.oauthRedirect(url.Values{"error": {msg}}))
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.auth.GoogleCallback(ctx, c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		msg := "google sign-in failed"
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
			msg = ae.Message
		} else {
			h.log.Error().Err(err).Msg("google callback")
		}
		return c.Redirect(http.StatusFound, h.oauthRedirect(url.Values{"error": {msg}}))
	}
	newUser := "0"
	if res.NewUser {
		newUser = "1"
	}
	return c.Redirect(http.StatusFound, h.oauthRedirect(url.Values{
		"access_token":  {res.AccessToken},
		"refresh_token": {res.RefreshToken},
		"new_user":      {newUser},
		"verify":        {strconv.Itoa(res.Verify)},
	}))
}

func (h *AuthHandler) oauthRedirect(q url.Values) string {
	return h.clientURL + "/oauth?" + q.Encode()
}
