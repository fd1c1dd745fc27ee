package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/ordering"
)

// VideoRepo persists videos ordered within their lesson by order_lesson.
type VideoRepo struct {
	db  *sql.DB
	ord *ordering.Maintainer
}

func NewVideoRepo(db *sql.DB, ord *ordering.Maintainer) *VideoRepo {
	return &VideoRepo{db: db, ord: ord}
}

const videoColumns = "id, lesson_id, course_id, title, description, video_url, duration, order_lesson, created_at, updated_at"

func scanVideo(s scanner) (*model.Video, error) {
	var v model.Video
	err := s.Scan(&v.ID, &v.LessonID, &v.CourseID, &v.Title, &v.Description, &v.VideoURL,
		&v.Duration, &v.OrderLesson, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &v, nil
}

// ListByLesson returns the videos of a lesson in order.
func (r *VideoRepo) ListByLesson(ctx context.Context, lessonID string) ([]model.Video, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE lesson_id = ? ORDER BY order_lesson", lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Get returns one video.
func (r *VideoRepo) Get(ctx context.Context, id string) (*model.Video, error) {
	return scanVideo(r.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id))
}

// Create inserts v at position requested (0 appends).  v.CourseID must be
// the course of v.LessonID.
func (r *VideoRepo) Create(ctx context.Context, v *model.Video, requested int) error {
	now := time.Now().UTC().Truncate(time.Second)
	pos, err := r.ord.Insert(ctx, ordering.Videos, v.LessonID, requested,
		func(ctx context.Context, tx ordering.TxExec, pos int) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO videos (id, lesson_id, course_id, title, description, video_url, duration, order_lesson, created_at, updated_at)
				 VALUES (?,?,?,?,?,?,?,?,?,?)`,
				v.ID, v.LessonID, v.CourseID, v.Title, v.Description, v.VideoURL, v.Duration, pos, now, now)
			return err
		})
	if err != nil {
		return orderingErr(err)
	}
	v.OrderLesson, v.CreatedAt, v.UpdatedAt = pos, now, now
	return nil
}

// VideoUpdate lists editable fields; nil means unchanged.
type VideoUpdate struct {
	Title       *string
	Description *string
	VideoURL    *string
	Duration    *int
	OrderLesson *int
}

// Update applies u to video id, moving it when OrderLesson is set.
func (r *VideoRepo) Update(ctx context.Context, id string, u VideoUpdate) error {
	set, args := videoSet(u)
	stmt := "UPDATE videos SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if u.OrderLesson == nil {
		if len(set) == 0 {
			return nil
		}
		return affected(r.db.ExecContext(ctx, stmt, append(args, id)...))
	}
	_, err := r.ord.Move(ctx, ordering.Videos, id, *u.OrderLesson,
		func(ctx context.Context, tx ordering.TxExec, _ int) error {
			if len(set) == 0 {
				return nil
			}
			_, err := tx.ExecContext(ctx, stmt, append(args, id)...)
			return err
		})
	return orderingErr(err)
}

// Delete removes a video and closes the gap in its lesson.
func (r *VideoRepo) Delete(ctx context.Context, id string) error {
	return orderingErr(r.ord.Remove(ctx, ordering.Videos, id))
}

func videoSet(u VideoUpdate) ([]string, []any) {
	set := []string{}
	args := []any{}
	if u.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *u.Description)
	}
	if u.VideoURL != nil {
		set = append(set, "video_url = ?")
		args = append(args, *u.VideoURL)
	}
	if u.Duration != nil {
		set = append(set, "duration = ?")
		args = append(args, *u.Duration)
	}
	return set, args
}
