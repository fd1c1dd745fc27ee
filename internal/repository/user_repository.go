package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// UserRepo is the credential store: users, hashed passwords and the two
// single-use purpose tokens.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, username, email, password_hash, role, verify, status_account,
	gender, date_of_birth, bio, avatar_url, email_verify_token, forgot_password_token,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Verify, &u.StatusAccount,
		&u.Gender, &u.DateOfBirth, &u.Bio, &u.AvatarURL, &u.EmailVerifyToken, &u.ForgotPasswordToken,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// Create inserts u.  Email is normalized; a taken email or username returns
// ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.StatusAccount == "" {
		u.StatusAccount = model.StatusActive
	}
	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, username, email, password_hash, role, verify, status_account,
			gender, date_of_birth, bio, avatar_url, email_verify_token, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash, u.Role, u.Verify, u.StatusAccount,
		u.Gender, u.DateOfBirth, u.Bio, u.AvatarURL, u.EmailVerifyToken, now, now)
	if err != nil {
		return classify(err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// List returns one page of users, newest first, and the total count.
func (r *UserRepo) List(ctx context.Context, p model.Page) ([]model.PublicUser, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.PublicUser, 0, p.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u.Public())
	}
	return out, total, rows.Err()
}

// SetEmailVerifyToken replaces the live verification token.  Writing a new
// one invalidates the previous token because consumers compare against the
// stored value.
func (r *UserRepo) SetEmailVerifyToken(ctx context.Context, id string, token *string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET email_verify_token=? WHERE id=?", token, id))
}

// SetForgotPasswordToken replaces the live reset token.
func (r *UserRepo) SetForgotPasswordToken(ctx context.Context, id string, token *string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET forgot_password_token=? WHERE id=?", token, id))
}

// ConsumeEmailVerifyToken marks the user verified and clears the token, but
// only while the stored token still equals token.  ErrNotFound means the
// token was already consumed or replaced.
func (r *UserRepo) ConsumeEmailVerifyToken(ctx context.Context, id, token string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET verify=?, email_verify_token=NULL WHERE id=? AND email_verify_token=?",
		model.Verified, id, token))
}

// ConsumeForgotPasswordToken stores a new password hash and clears the reset
// token under the same compare-and-clear rule.
func (r *UserRepo) ConsumeForgotPasswordToken(ctx context.Context, id, token, passwordHash string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, forgot_password_token=NULL WHERE id=? AND forgot_password_token=?",
		passwordHash, id, token))
}

// UpdatePassword stores a new hash.  Callers hash before calling.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, id))
}

// ProfileUpdate lists the self-service profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name        *string
	Gender      *string
	DateOfBirth *time.Time
	Bio         *string
	AvatarURL   *string
}

// UpdateProfile writes the set fields of p.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) error {
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		set = append(set, col+"=?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Gender != nil {
		add("gender", *p.Gender)
	}
	if p.DateOfBirth != nil {
		add("date_of_birth", *p.DateOfBirth)
	}
	if p.Bio != nil {
		add("bio", *p.Bio)
	}
	if p.AvatarURL != nil {
		add("avatar_url", *p.AvatarURL)
	}
	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...))
}

// SetStatus activates or deactivates an account.
func (r *UserRepo) SetStatus(ctx context.Context, id string, status model.AccountStatus) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE users SET status_account=? WHERE id=?", status, id))
}

// Delete hard-deletes a user; refresh tokens, carts and courses cascade.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
