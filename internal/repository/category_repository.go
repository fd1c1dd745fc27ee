package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// CategoryRepo persists course categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns a page of categories whose name contains query (case
// insensitive, empty matches all) with the number of courses in each.
func (r *CategoryRepo) List(ctx context.Context, query string, p model.Page) ([]model.Category, int, error) {
	cond, args := "1=1", []any{}
	if q := strings.TrimSpace(query); q != "" {
		cond = "LOWER(c.name) LIKE ?"
		args = append(args, "%"+strings.ToLower(q)+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories c WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT c.id, c.name, c.description, c.created_at, c.updated_at, COUNT(co.id)
		FROM categories c
		LEFT JOIN courses co ON co.category_id = c.id
		WHERE ` + cond + `
		GROUP BY c.id, c.name, c.description, c.created_at, c.updated_at
		ORDER BY c.name
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Category, 0, p.Limit)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.CourseCount); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Get returns a category with its course count.
func (r *CategoryRepo) Get(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM courses co WHERE co.category_id = c.id)
		 FROM categories c WHERE c.id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.CourseCount)
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

// Exists reports whether a category with id exists.
func (r *CategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM categories WHERE id = ?", id)
}

// Create inserts c; a taken name returns ErrDuplicate.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (id, name, description, created_at, updated_at) VALUES (?,?,?,?,?)",
		c.ID, c.Name, c.Description, now, now)
	if err != nil {
		return classify(err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// Update rewrites name and description.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	return affected(r.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, description = ? WHERE id = ?", c.Name, c.Description, c.ID))
}

// Delete removes a category.  ErrConflict when courses still reference it.
func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id))
}

func exists(ctx context.Context, db *sql.DB, q string, args ...any) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
