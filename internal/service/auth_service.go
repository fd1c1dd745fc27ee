package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/mail"
	"github.com/iliyamo/course-marketplace/internal/metrics"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/oauth"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/token"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

const mailTimeout = 5 * time.Second

// TokenPair is what a successful sign-in returns.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// OAuthResult is a token pair plus what the client needs to route the user
// after a federated sign-in.
type OAuthResult struct {
	TokenPair
	NewUser bool
	Verify  int
}

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	DateOfBirth *time.Time
}

// AuthDeps groups the collaborators of AuthService.  Google and States may
// be nil when federation is not configured.
type AuthDeps struct {
	Users    UserStore
	Sessions SessionStore
	Tokens   *token.Manager
	Hasher   PasswordHasher
	Mailer   Mailer
	Composer mail.Composer
	Google   GoogleProvider
	States   StateStore
	Log      zerolog.Logger
}

// AuthService runs registration, sign-in, token rotation, email
// verification, password reset and Google federation.
type AuthService struct {
	AuthDeps
	now func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	return &AuthService{AuthDeps: d, now: time.Now}
}

// Register creates an unverified account and mails a verification link.
// No session is opened.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error) {
	role := model.RoleUser
	if in.Role != "" {
		r, ok := model.ParseRole(in.Role)
		if !ok || r == model.RoleAdmin {
			return nil, apperr.Validation("role must be User or Instructor")
		}
		role = r
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("lookup user", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u := &model.User{
		ID:            utils.NewID(),
		Name:          name,
		Username:      utils.GenerateUsername(name),
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Verify:        model.Unverified,
		StatusAccount: model.StatusActive,
		DateOfBirth:   in.DateOfBirth,
	}
	verify, err := s.Tokens.SignPurpose(u.ID, token.KindEmailVerify)
	if err != nil {
		return nil, apperr.Internal("sign verify token", err)
	}
	u.EmailVerifyToken = &verify.Token

	if err := s.Users.Create(ctx, u); err != nil {
		metrics.AuthEvent("register", err)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already exists")
		}
		return nil, apperr.Internal("create user", err)
	}
	metrics.AuthEvent("register", nil)

	s.sendMail(ctx, "verify_email", func() (mail.Message, error) {
		return s.Composer.VerifyEmail(u.Email, verify.Token)
	})
	pub := u.Public()
	return &pub, nil
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	pair, err := s.login(ctx, email, password)
	metrics.AuthEvent("login", err)
	return pair, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if !s.Hasher.Compare(password, u.PasswordHash) {
		return nil, apperr.Unauthorized("password is incorrect")
	}
	if !u.IsActive() {
		return nil, apperr.Forbidden("account is inactive")
	}
	if n, err := s.Sessions.PurgeExpired(ctx, u.ID, s.now()); err != nil {
		s.Log.Warn().Err(err).Str("user_id", u.ID).Msg("purge expired sessions failed")
	} else if n > 0 {
		s.Log.Debug().Int64("purged", n).Str("user_id", u.ID).Msg("expired sessions purged")
	}
	return s.issuePair(ctx, u)
}

// issuePair signs a new access/refresh pair and records the refresh token.
// It is the only place sessions are created.
func (s *AuthService) issuePair(ctx context.Context, u *model.User) (*TokenPair, error) {
	pair, err := s.Tokens.SignPair(token.Payload{UserID: u.ID, Role: u.Role, Verify: u.Verify})
	if err != nil {
		return nil, apperr.Internal("sign tokens", err)
	}
	err = s.Sessions.Create(ctx, model.RefreshToken{
		ID:        utils.NewID(),
		UserID:    u.ID,
		TokenHash: utils.HashToken(pair.Refresh.Token),
		ExpiresAt: pair.Refresh.ExpiresAt,
	})
	if err != nil {
		return nil, apperr.Internal("store session", err)
	}
	return &TokenPair{
		AccessToken:      pair.Access.Token,
		RefreshToken:     pair.Refresh.Token,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token.  The presented token is deleted before
// a new pair is issued; a token that is no longer stored fails as revoked
// whether it was rotated, logged out or never issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, raw)
	metrics.AuthEvent("refresh", err)
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, raw string) (*TokenPair, error) {
	claims, err := s.Tokens.VerifyRefresh(raw)
	if err != nil {
		return nil, token.AsAppError(err)
	}
	ok, err := s.Sessions.DeleteByHash(ctx, utils.HashToken(strings.TrimSpace(raw)))
	if err != nil {
		return nil, apperr.Internal("delete session", err)
	}
	if !ok {
		return nil, apperr.Token(apperr.CodeTokenRevoked, "refresh token has been revoked")
	}

	u, err := s.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Token(apperr.CodeTokenRevoked, "account no longer exists")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if !u.IsActive() {
		return nil, apperr.Forbidden("account is inactive")
	}
	return s.issuePair(ctx, u)
}

// Logout ends the session of raw.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if _, err := s.Tokens.VerifyRefresh(raw); err != nil {
		return token.AsAppError(err)
	}
	ok, err := s.Sessions.DeleteByHash(ctx, utils.HashToken(strings.TrimSpace(raw)))
	if err != nil {
		return apperr.Internal("delete session", err)
	}
	if !ok {
		return apperr.Token(apperr.CodeTokenRevoked, "refresh token has been revoked")
	}
	metrics.AuthEvent("logout", nil)
	return nil
}

// LogoutAll ends every session of userID and reports how many there were.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.Sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("delete sessions", err)
	}
	return n, nil
}

// VerifyEmail consumes an email verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := s.purposeUser(ctx, raw, token.KindEmailVerify, func(u *model.User) *string { return u.EmailVerifyToken })
	if err != nil {
		return err
	}
	err = s.Users.ConsumeEmailVerifyToken(ctx, u.ID, raw)
	if errors.Is(err, repository.ErrNotFound) {
		return invalidToken("invalid verification token")
	}
	if err != nil {
		return apperr.Internal("verify email", err)
	}
	metrics.AuthEvent("verify_email", nil)
	return nil
}

// ResendVerifyEmail replaces the verification token of userID and mails it
// again.  The previous token stops working.
func (s *AuthService) ResendVerifyEmail(ctx context.Context, userID string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return storeErr(err, "user not found")
	}
	if u.IsVerified() {
		return apperr.Conflict("email is already verified")
	}
	tok, err := s.Tokens.SignPurpose(u.ID, token.KindEmailVerify)
	if err != nil {
		return apperr.Internal("sign verify token", err)
	}
	if err := s.Users.SetEmailVerifyToken(ctx, u.ID, &tok.Token); err != nil {
		return storeErr(err, "user not found")
	}
	s.sendMail(ctx, "verify_email", func() (mail.Message, error) {
		return s.Composer.VerifyEmail(u.Email, tok.Token)
	})
	return nil
}

// ForgotPassword stores a reset token for email and mails it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return storeErr(err, "email not found")
	}
	tok, err := s.Tokens.SignPurpose(u.ID, token.KindPasswordReset)
	if err != nil {
		return apperr.Internal("sign reset token", err)
	}
	if err := s.Users.SetForgotPasswordToken(ctx, u.ID, &tok.Token); err != nil {
		return storeErr(err, "email not found")
	}
	s.sendMail(ctx, "reset_password", func() (mail.Message, error) {
		return s.Composer.ResetPassword(u.Email, tok.Token)
	})
	metrics.AuthEvent("forgot_password", nil)
	return nil
}

// VerifyForgotPassword checks a reset token without consuming it.
func (s *AuthService) VerifyForgotPassword(ctx context.Context, raw string) error {
	_, err := s.purposeUser(ctx, strings.TrimSpace(raw), token.KindPasswordReset,
		func(u *model.User) *string { return u.ForgotPasswordToken })
	return err
}

// ResetPassword consumes a reset token and sets a new password.  Every open
// session of the user is ended.
func (s *AuthService) ResetPassword(ctx context.Context, raw, password, confirm string) error {
	if password != confirm {
		return apperr.Validation("confirm password does not match")
	}
	raw = strings.TrimSpace(raw)
	u, err := s.purposeUser(ctx, raw, token.KindPasswordReset, func(u *model.User) *string { return u.ForgotPasswordToken })
	if err != nil {
		return err
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	err = s.Users.ConsumeForgotPasswordToken(ctx, u.ID, raw, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return invalidToken("invalid reset token")
	}
	if err != nil {
		return apperr.Internal("reset password", err)
	}
	if _, err := s.Sessions.DeleteAllForUser(ctx, u.ID); err != nil {
		s.Log.Warn().Err(err).Str("user_id", u.ID).Msg("end sessions after reset failed")
	}
	metrics.AuthEvent("reset_password", nil)
	return nil
}

// ChangePassword replaces the password of a signed-in user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, password, confirm string) error {
	if password != confirm {
		return apperr.Validation("confirm password does not match")
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return storeErr(err, "user not found")
	}
	if !s.Hasher.Compare(current, u.PasswordHash) {
		return apperr.Validation("current password is incorrect")
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	return storeErr(s.Users.UpdatePassword(ctx, userID, hash), "user not found")
}

// purposeUser verifies raw as a purpose token of kind and requires it to
// equal the token currently stored for the user.
func (s *AuthService) purposeUser(ctx context.Context, raw string, kind token.Kind,
	stored func(*model.User) *string) (*model.User, error) {
	claims, err := s.Tokens.VerifyPurpose(raw, kind)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, invalidToken("token has expired")
		}
		return nil, invalidToken("invalid token")
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalidToken("invalid token")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if cur := stored(u); cur == nil || *cur != raw {
		return nil, invalidToken("invalid token")
	}
	return u, nil
}

// GoogleURL starts a federated sign-in and returns the consent page URL.
func (s *AuthService) GoogleURL(ctx context.Context) (string, error) {
	if s.Google == nil || s.States == nil {
		return "", apperr.Unavailable("google sign-in is not configured", nil)
	}
	state, err := utils.RandomHex(16)
	if err != nil {
		return "", apperr.Internal("generate state", err)
	}
	if err := s.States.Put(ctx, state); err != nil {
		return "", apperr.Unavailable("google sign-in is unavailable", err)
	}
	return s.Google.AuthCodeURL(state), nil
}

// GoogleCallback completes a federated sign-in.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (*OAuthResult, error) {
	if s.Google == nil || s.States == nil {
		return nil, apperr.Unavailable("google sign-in is not configured", nil)
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperr.Validation("authorization code is required")
	}
	ok, err := s.States.Consume(ctx, state)
	if err != nil {
		return nil, apperr.Unavailable("google sign-in is unavailable", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("invalid oauth state")
	}
	p, err := s.Google.Profile(ctx, code)
	if err != nil {
		metrics.AuthEvent("oauth", err)
		if errors.Is(err, oauth.ErrExchange) {
			return nil, apperr.Unauthorized("failed to exchange google authorization code")
		}
		return nil, apperr.Unavailable("failed to fetch google profile", err)
	}
	res, err := s.OAuthLogin(ctx, p)
	metrics.AuthEvent("oauth", err)
	return res, err
}

// OAuthLogin signs in the local account owning the provider-verified email
// of p, creating it on first sight.  Email is the identity key, so an
// existing password account with the same address is signed in as is.
func (s *AuthService) OAuthLogin(ctx context.Context, p *oauth.Profile) (*OAuthResult, error) {
	if !p.EmailVerified {
		return nil, apperr.Unauthorized("google account email is not verified")
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, apperr.Unauthorized("google account has no email")
	}

	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.oauthPair(ctx, u, false)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Internal("lookup user", err)
	}

	secret, err := utils.RandomHex(32)
	if err != nil {
		return nil, apperr.Internal("generate password", err)
	}
	hash, err := s.Hasher.Hash(secret)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u = &model.User{
		ID:            utils.NewID(),
		Name:          name,
		Username:      utils.GenerateUsername(name),
		Email:         email,
		PasswordHash:  hash,
		Role:          model.RoleUser,
		Verify:        model.Verified,
		StatusAccount: model.StatusActive,
	}
	if p.Picture != "" {
		u.AvatarURL = &p.Picture
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Internal("create user", err)
		}
		// lost a race with a concurrent first sign-in
		existing, gerr := s.Users.GetByEmail(ctx, email)
		if gerr != nil {
			return nil, storeErr(gerr, "user not found")
		}
		return s.oauthPair(ctx, existing, false)
	}
	return s.oauthPair(ctx, u, true)
}

func (s *AuthService) oauthPair(ctx context.Context, u *model.User, created bool) (*OAuthResult, error) {
	if !u.IsActive() {
		return nil, apperr.Forbidden("account is inactive")
	}
	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, err
	}
	return &OAuthResult{TokenPair: *pair, NewUser: created, Verify: u.Verify}, nil
}

// sendMail renders and dispatches a message.  Failures are logged and never
// fail the calling request.
func (s *AuthService) sendMail(ctx context.Context, kind string, build func() (mail.Message, error)) {
	m, err := build()
	if err != nil {
		s.Log.Error().Err(err).Str("mail", kind).Msg("render mail failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := s.Mailer.Send(ctx, m); err != nil {
		s.Log.Error().Err(err).Str("mail", kind).Str("to", m.To).Msg("dispatch mail failed")
	}
}
