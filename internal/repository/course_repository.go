package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// CourseRepo persists courses and translates CourseFilter into SQL.
type CourseRepo struct {
	db *sql.DB
}

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseSelect = `SELECT co.id, co.title, co.description, co.price, co.rating, co.thumbnail_url,
		co.banner_url, co.is_published, co.instructor_id, co.category_id, co.level_id,
		co.created_at, co.updated_at, u.id, u.name, u.username, u.avatar_url
	FROM courses co
	JOIN users u ON u.id = co.instructor_id`

func scanCourse(s scanner) (*model.Course, error) {
	var c model.Course
	var a model.Author
	err := s.Scan(&c.ID, &c.Title, &c.Description, &c.Price, &c.Rating, &c.ThumbnailURL,
		&c.BannerURL, &c.IsPublished, &c.InstructorID, &c.CategoryID, &c.LevelID,
		&c.CreatedAt, &c.UpdatedAt, &a.ID, &a.Name, &a.Username, &a.AvatarURL)
	if err != nil {
		return nil, classify(err)
	}
	c.Instructor = &a
	return &c, nil
}

// filterSQL turns the set fields of f into a WHERE condition.
func filterSQL(f model.CourseFilter) (string, []any) {
	where := []string{}
	args := []any{}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(LOWER(co.title) LIKE ? OR LOWER(co.description) LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	if f.CategoryID != nil {
		where = append(where, "co.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.LevelID != nil {
		where = append(where, "co.level_id = ?")
		args = append(args, *f.LevelID)
	}
	if f.MinPrice != nil {
		where = append(where, "co.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "co.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.MinRating != nil {
		where = append(where, "co.rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.MaxRating != nil {
		where = append(where, "co.rating <= ?")
		args = append(args, *f.MaxRating)
	}
	if len(where) == 0 {
		return "1=1", args
	}
	return strings.Join(where, " AND "), args
}

// List returns a page of courses matching f, newest first, and the total.
func (r *CourseRepo) List(ctx context.Context, f model.CourseFilter, p model.Page) ([]model.Course, int, error) {
	cond, args := filterSQL(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses co WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		courseSelect+" WHERE "+cond+" ORDER BY co.created_at DESC, co.id LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Course, 0, p.Limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// Get returns a course with its instructor.
func (r *CourseRepo) Get(ctx context.Context, id string) (*model.Course, error) {
	return scanCourse(r.db.QueryRowContext(ctx, courseSelect+" WHERE co.id = ?", id))
}

// Create inserts c.  ErrNotFound when a referenced row is missing.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, description, price, rating, thumbnail_url, banner_url,
			is_published, instructor_id, category_id, level_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Title, c.Description, c.Price, c.Rating, c.ThumbnailURL, c.BannerURL,
		c.IsPublished, c.InstructorID, c.CategoryID, c.LevelID, now, now)
	if err != nil {
		return classify(err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// Update rewrites the editable columns of c.
func (r *CourseRepo) Update(ctx context.Context, c *model.Course) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE courses SET title = ?, description = ?, price = ?, thumbnail_url = ?, banner_url = ?,
			is_published = ?, category_id = ?, level_id = ?
		 WHERE id = ?`,
		c.Title, c.Description, c.Price, c.ThumbnailURL, c.BannerURL,
		c.IsPublished, c.CategoryID, c.LevelID, c.ID))
}

// Delete removes a course with its lessons, videos and cart items.
func (r *CourseRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id))
}
