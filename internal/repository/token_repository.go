package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// TokenRepo is the session store: one row per live refresh token, keyed by
// the token's SHA-256 hex digest ('token_hash').
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh token row.
func (r *TokenRepo) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES (?,?,?,?)",
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UTC())
	return classify(err)
}

// FindByHash returns the row for tokenHash or ErrNotFound.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

// DeleteByHash removes the row for tokenHash and reports whether this call
// was the one that removed it.  The single DELETE is the rotation gate: of
// two concurrent callers holding the same token only one sees true.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAllForUser ends every session of userID.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpired drops rows of userID whose expiry has passed.
func (r *TokenRepo) PurgeExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND expires_at <= ?", userID, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
