package model

import (
	"strings"
	"time"
)

// Role is the closed set of account roles.  Authorization checks compare
// against these values only; the storage column is an ENUM of the same names.
type Role string

const (
	RoleUser       Role = "User"
	RoleInstructor Role = "Instructor"
	RoleAdmin      Role = "Admin"
)

// ParseRole accepts the canonical names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch {
	case strings.EqualFold(s, string(RoleUser)):
		return RoleUser, true
	case strings.EqualFold(s, string(RoleInstructor)):
		return RoleInstructor, true
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, true
	}
	return "", false
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// AccountStatus toggles whether a user may sign in.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
)

// Verification flag values stored in users.verify.
const (
	Unverified = 0
	Verified   = 1
)

// User represents a row of the `users` table.  PasswordHash and the two
// purpose tokens never leave the service layer; handlers render PublicUser.
//
// Fields:
//  ID                  – uuid primary key.
//  Email, Username     – unique identifiers.
//  PasswordHash        – bcrypt digest.
//  Verify              – 0 unverified, 1 verified.
//  EmailVerifyToken    – the single live email verification token, nil once consumed.
//  ForgotPasswordToken – the single live password reset token, nil once consumed.
type User struct {
	ID                  string
	Name                string
	Username            string
	Email               string
	PasswordHash        string
	Role                Role
	Verify              int
	StatusAccount       AccountStatus
	Gender              *string
	DateOfBirth         *time.Time
	Bio                 *string
	AvatarURL           *string
	EmailVerifyToken    *string
	ForgotPasswordToken *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsVerified reports whether the email address was confirmed.
func (u User) IsVerified() bool { return u.Verify == Verified }

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool { return u.StatusAccount != StatusInactive }

// PublicUser is the sanitized projection returned to clients.
type PublicUser struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Username      string        `json:"username"`
	Email         string        `json:"email"`
	Role          Role          `json:"role"`
	Verify        int           `json:"verify"`
	StatusAccount AccountStatus `json:"status_account"`
	Gender        *string       `json:"gender,omitempty"`
	DateOfBirth   *time.Time    `json:"dateOfBirth,omitempty"`
	Bio           *string       `json:"bio,omitempty"`
	AvatarURL     *string       `json:"avatarUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Public strips credentials from u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		Verify:        u.Verify,
		StatusAccount: u.StatusAccount,
		Gender:        u.Gender,
		DateOfBirth:   u.DateOfBirth,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table: one row per
// live refresh token.  The token itself is not stored, only its SHA-256 hex
// digest, so a leaked table cannot be replayed.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
