// Package token mints and verifies the HS256 JWTs used by the API.  Access
// and refresh tokens are signed with independent secrets and lifetimes.
// Purpose tokens (email verification, password reset) reuse the access
// secret but carry their own type claim, so none of the kinds can be
// presented in place of another.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
)

// Kind is stored in the "typ" claim.
type Kind string

const (
	KindAccess        Kind = "access"
	KindRefresh       Kind = "refresh"
	KindEmailVerify   Kind = "email_verify"
	KindPasswordReset Kind = "password_reset"
)

// Verification failures.  Callers branch on these: only ErrExpired is worth
// a silent refresh.
var (
	ErrMissing = errors.New("token missing")
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Payload is what the API embeds in a token.
type Payload struct {
	UserID string
	Role   model.Role
	Verify int
}

// Claims is the JWT body.
type Claims struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role,omitempty"`
	Verify int        `json:"verify"`
	Type   Kind       `json:"typ"`
	jwt.RegisteredClaims
}

// Payload extracts the API payload from c.
func (c *Claims) Payload() Payload {
	return Payload{UserID: c.UserID, Role: c.Role, Verify: c.Verify}
}

// Signed is a serialized token with its expiry.
type Signed struct {
	Token     string
	ExpiresAt time.Time
}

// Pair is an access/refresh couple handed to clients.
type Pair struct {
	Access  Signed
	Refresh Signed
}

// Config holds the secrets and lifetimes.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	PurposeTTL    time.Duration
	Issuer        string
}

// Manager signs and verifies tokens.  It is safe for concurrent use.
type Manager struct {
	cfg Config
	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.PurposeTTL <= 0 {
		cfg.PurposeTTL = cfg.AccessTTL
	}
	return &Manager{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of m reading time from now; tests use it to
// produce expired tokens.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// SignAccess mints a short-lived access token.
func (m *Manager) SignAccess(p Payload) (Signed, error) {
	return m.sign(p, KindAccess, m.cfg.AccessSecret, m.cfg.AccessTTL)
}

// SignRefresh mints a long-lived refresh token.
func (m *Manager) SignRefresh(p Payload) (Signed, error) {
	return m.sign(p, KindRefresh, m.cfg.RefreshSecret, m.cfg.RefreshTTL)
}

// SignPurpose mints a one-shot token for email verification or password
// reset.  Only the userId is embedded.
func (m *Manager) SignPurpose(userID string, kind Kind) (Signed, error) {
	if kind != KindEmailVerify && kind != KindPasswordReset {
		return Signed{}, fmt.Errorf("not a purpose token kind: %s", kind)
	}
	return m.sign(Payload{UserID: userID}, kind, m.cfg.AccessSecret, m.cfg.PurposeTTL)
}

// SignPair signs an access and a refresh token concurrently.
func (m *Manager) SignPair(p Payload) (Pair, error) {
	var pair Pair
	var g errgroup.Group
	g.Go(func() error {
		s, err := m.SignAccess(p)
		pair.Access = s
		return err
	})
	g.Go(func() error {
		s, err := m.SignRefresh(p)
		pair.Refresh = s
		return err
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// VerifyAccess checks signature, expiry and type of an access token.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	return m.parse(raw, m.cfg.AccessSecret, KindAccess)
}

// VerifyRefresh checks signature, expiry and type of a refresh token.
func (m *Manager) VerifyRefresh(raw string) (*Claims, error) {
	return m.parse(raw, m.cfg.RefreshSecret, KindRefresh)
}

// VerifyPurpose checks a purpose token of the given kind.
func (m *Manager) VerifyPurpose(raw string, kind Kind) (*Claims, error) {
	return m.parse(raw, m.cfg.AccessSecret, kind)
}

func (m *Manager) sign(p Payload, kind Kind, secret string, ttl time.Duration) (Signed, error) {
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: p.UserID,
		Role:   p.Role,
		Verify: p.Verify,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(), // keeps two tokens minted in the same second distinct
			Subject:   p.UserID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return Signed{}, err
	}
	// exp is carried at second precision in the token
	return Signed{Token: signed, ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}, nil
}

func (m *Manager) parse(raw, secret string, want Kind) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissing
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid || claims.Type != want || claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// AsAppError classifies a verification error for the HTTP boundary.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMissing):
		return apperr.Token(apperr.CodeTokenMissing, "token is missing")
	case errors.Is(err, ErrExpired):
		return apperr.Token(apperr.CodeTokenExpired, "token has expired")
	default:
		return apperr.Token(apperr.CodeTokenInvalid, "token is invalid")
	}
}
