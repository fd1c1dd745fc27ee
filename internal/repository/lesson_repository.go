package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/ordering"
)

// LessonRepo persists lessons.  Every write that touches the position
// column goes through the ordering maintainer.
type LessonRepo struct {
	db  *sql.DB
	ord *ordering.Maintainer
}

func NewLessonRepo(db *sql.DB, ord *ordering.Maintainer) *LessonRepo {
	return &LessonRepo{db: db, ord: ord}
}

const lessonColumns = "id, course_id, title, content, position, created_at, updated_at"

func scanLesson(s scanner) (*model.Lesson, error) {
	var l model.Lesson
	if err := s.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Order, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, classify(err)
	}
	return &l, nil
}

// ListByCourse returns a page of lessons ordered by position.
func (r *LessonRepo) ListByCourse(ctx context.Context, courseID string, p model.Page) ([]model.Lesson, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lessons WHERE course_id = ?", courseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE course_id = ? ORDER BY position LIMIT ? OFFSET ?",
		courseID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Lesson, 0, p.Limit)
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

// Get returns a lesson.
func (r *LessonRepo) Get(ctx context.Context, id string) (*model.Lesson, error) {
	return scanLesson(r.db.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id))
}

// Create inserts l at position requested (0 appends).  l.Order receives the
// final position.  ErrNotFound when the course does not exist.
func (r *LessonRepo) Create(ctx context.Context, l *model.Lesson, requested int) error {
	now := time.Now().UTC().Truncate(time.Second)
	pos, err := r.ord.Insert(ctx, ordering.Lessons, l.CourseID, requested,
		func(ctx context.Context, tx ordering.TxExec, pos int) error {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO lessons (id, course_id, title, content, position, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
				l.ID, l.CourseID, l.Title, l.Content, pos, now, now)
			return err
		})
	if err != nil {
		return orderingErr(err)
	}
	l.Order, l.CreatedAt, l.UpdatedAt = pos, now, now
	return nil
}

// LessonUpdate lists editable fields; nil means unchanged.  A set Order
// moves the lesson.
type LessonUpdate struct {
	Title   *string
	Content *string
	Order   *int
}

// Update applies u to lesson id.
func (r *LessonRepo) Update(ctx context.Context, id string, u LessonUpdate) error {
	set, args := lessonSet(u)
	if u.Order == nil {
		if len(set) == 0 {
			return nil
		}
		return affected(r.db.ExecContext(ctx,
			"UPDATE lessons SET "+strings.Join(set, ", ")+" WHERE id = ?", append(args, id)...))
	}
	_, err := r.ord.Move(ctx, ordering.Lessons, id, *u.Order,
		func(ctx context.Context, tx ordering.TxExec, _ int) error {
			if len(set) == 0 {
				return nil
			}
			_, err := tx.ExecContext(ctx,
				"UPDATE lessons SET "+strings.Join(set, ", ")+" WHERE id = ?", append(args, id)...)
			return err
		})
	return orderingErr(err)
}

// Delete removes a lesson and closes the gap in its course.
func (r *LessonRepo) Delete(ctx context.Context, id string) error {
	return orderingErr(r.ord.Remove(ctx, ordering.Lessons, id))
}

func lessonSet(u LessonUpdate) ([]string, []any) {
	set := []string{}
	args := []any{}
	if u.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Content != nil {
		set = append(set, "content = ?")
		args = append(args, *u.Content)
	}
	return set, args
}

// orderingErr maps maintainer sentinels onto repository ones.
func orderingErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ordering.ErrNotFound), errors.Is(err, ordering.ErrParentNotFound):
		return ErrNotFound
	}
	return classify(err)
}
