// Package service holds the business rules of the marketplace.  Services
// depend on the small store interfaces below rather than on concrete
// repositories, return *apperr.Error for every expected failure and wrap
// anything else as Internal.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/mail"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/oauth"
	"github.com/iliyamo/course-marketplace/internal/repository"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, p model.Page) ([]model.PublicUser, int, error)
	SetEmailVerifyToken(ctx context.Context, id string, token *string) error
	SetForgotPasswordToken(ctx context.Context, id string, token *string) error
	ConsumeEmailVerifyToken(ctx context.Context, id, token string) error
	ConsumeForgotPasswordToken(ctx context.Context, id, token, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, p repository.ProfileUpdate) error
	SetStatus(ctx context.Context, id string, status model.AccountStatus) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists one row per live refresh token.
type SessionStore interface {
	Create(ctx context.Context, t model.RefreshToken) error
	DeleteByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	PurgeExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) bool
}

// Mailer hands a rendered message to the mail transport.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}

// GoogleProvider runs the external half of Google sign-in.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Profile(ctx context.Context, code string) (*oauth.Profile, error)
}

// StateStore holds pending OAuth state values.
type StateStore interface {
	Put(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}

// storeErr maps repository sentinels to apperr kinds.  notFound is the
// message used when the row is missing.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	}
	return apperr.Wrap(err, "store failure")
}

// invalidToken is returned for purpose tokens that are malformed, expired,
// replaced or already consumed.  The client cannot retry any of them, so
// they all surface as a bad request.
func invalidToken(msg string) error {
	e := apperr.Validation(msg)
	e.Code = apperr.CodeTokenInvalid
	return e
}

func pageOf(p model.Page) model.Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}
