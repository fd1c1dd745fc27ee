package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// LevelRepo persists difficulty levels.
type LevelRepo struct {
	db *sql.DB
}

func NewLevelRepo(db *sql.DB) *LevelRepo { return &LevelRepo{db: db} }

// List returns every level ordered by name.
func (r *LevelRepo) List(ctx context.Context) ([]model.Level, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM levels ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Level{}
	for rows.Next() {
		var l model.Level
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Get returns one level.
func (r *LevelRepo) Get(ctx context.Context, id string) (*model.Level, error) {
	var l model.Level
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM levels WHERE id = ?", id).
		Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &l, nil
}

// Exists reports whether a level with id exists.
func (r *LevelRepo) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM levels WHERE id = ?", id)
}

// Create inserts l; a taken name returns ErrDuplicate.
func (r *LevelRepo) Create(ctx context.Context, l *model.Level) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO levels (id, name, description, created_at, updated_at) VALUES (?,?,?,?,?)",
		l.ID, l.Name, l.Description, now, now)
	if err != nil {
		return classify(err)
	}
	l.CreatedAt, l.UpdatedAt = now, now
	return nil
}

// Update rewrites name and description; a taken name returns ErrDuplicate.
func (r *LevelRepo) Update(ctx context.Context, l *model.Level) error {
	return affected(r.db.ExecContext(ctx,
		"UPDATE levels SET name = ?, description = ? WHERE id = ?", l.Name, l.Description, l.ID))
}

// Delete removes a level; courses keep existing with level_id cleared.
func (r *LevelRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM levels WHERE id = ?", id))
}
