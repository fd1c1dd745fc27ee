package service

import (
	"context"
	"strings"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// LessonStore persists lessons under the dense ordering of their course.
type LessonStore interface {
	ListByCourse(ctx context.Context, courseID string, p model.Page) ([]model.Lesson, int, error)
	Get(ctx context.Context, id string) (*model.Lesson, error)
	Create(ctx context.Context, l *model.Lesson, requested int) error
	Update(ctx context.Context, id string, u repository.LessonUpdate) error
	Delete(ctx context.Context, id string) error
}

// VideoStore persists videos under the dense ordering of their lesson.
type VideoStore interface {
	ListByLesson(ctx context.Context, lessonID string) ([]model.Video, error)
	Get(ctx context.Context, id string) (*model.Video, error)
	Create(ctx context.Context, v *model.Video, requested int) error
	Update(ctx context.Context, id string, u repository.VideoUpdate) error
	Delete(ctx context.Context, id string) error
}

// LessonInput creates a lesson.  A nil Order appends.
type LessonInput struct {
	CourseID string
	Title    string
	Content  *string
	Order    *int
}

// VideoInput creates a video.  A nil OrderLesson appends.
type VideoInput struct {
	LessonID    string
	Title       string
	Description *string
	VideoURL    string
	Duration    int
	OrderLesson *int
}

// LessonService manages lessons and their videos.  Writes require the
// actor to own the parent course.
type LessonService struct {
	courses CourseStore
	lessons LessonStore
	videos  VideoStore
}

func NewLessonService(courses CourseStore, lessons LessonStore, videos VideoStore) *LessonService {
	return &LessonService{courses: courses, lessons: lessons, videos: videos}
}

// requestedOrder validates an optional position; 0 asks for an append.
func requestedOrder(o *int) (int, error) {
	if o == nil {
		return 0, nil
	}
	if *o < 1 {
		return 0, apperr.Validation("order must be a positive integer")
	}
	return *o, nil
}

func (s *LessonService) ownCourse(ctx context.Context, a Actor, courseID string) error {
	c, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return storeErr(err, "course not found")
	}
	if !a.owns(c.InstructorID) {
		return apperr.Forbidden("you do not own this course")
	}
	return nil
}

func (s *LessonService) ListLessons(ctx context.Context, courseID string, p model.Page) ([]model.Lesson, model.Pagination, error) {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return nil, model.Pagination{}, storeErr(err, "course not found")
	}
	p = pageOf(p)
	out, total, err := s.lessons.ListByCourse(ctx, courseID, p)
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("list lessons", err)
	}
	return out, model.NewPagination(total, p), nil
}

// GetLesson returns a lesson with its videos in order.
func (s *LessonService) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	l, err := s.lessons.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "lesson not found")
	}
	if l.Videos, err = s.videos.ListByLesson(ctx, id); err != nil {
		return nil, apperr.Internal("list videos", err)
	}
	return l, nil
}

// CreateLesson inserts a lesson at the requested position, shifting later
// lessons up.  Positions past the end append.
func (s *LessonService) CreateLesson(ctx context.Context, a Actor, in LessonInput) (*model.Lesson, error) {
	order, err := requestedOrder(in.Order)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := s.ownCourse(ctx, a, in.CourseID); err != nil {
		return nil, err
	}
	l := &model.Lesson{ID: utils.NewID(), CourseID: in.CourseID, Title: strings.TrimSpace(in.Title), Content: in.Content}
	if err := s.lessons.Create(ctx, l, order); err != nil {
		return nil, storeErr(err, "course not found")
	}
	return l, nil
}

// UpdateLesson edits a lesson; a set Order moves it within its course.
func (s *LessonService) UpdateLesson(ctx context.Context, a Actor, id string, u repository.LessonUpdate) (*model.Lesson, error) {
	if _, err := requestedOrder(u.Order); err != nil {
		return nil, err
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, apperr.Validation("title must not be empty")
	}
	l, err := s.lessons.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "lesson not found")
	}
	if err := s.ownCourse(ctx, a, l.CourseID); err != nil {
		return nil, err
	}
	if err := s.lessons.Update(ctx, id, u); err != nil {
		return nil, storeErr(err, "lesson not found")
	}
	return s.lessons.Get(ctx, id)
}

// DeleteLesson removes a lesson and closes the gap it leaves.
func (s *LessonService) DeleteLesson(ctx context.Context, a Actor, id string) error {
	l, err := s.lessons.Get(ctx, id)
	if err != nil {
		return storeErr(err, "lesson not found")
	}
	if err := s.ownCourse(ctx, a, l.CourseID); err != nil {
		return err
	}
	return storeErr(s.lessons.Delete(ctx, id), "lesson not found")
}

func (s *LessonService) ListVideos(ctx context.Context, lessonID string) ([]model.Video, error) {
	if _, err := s.lessons.Get(ctx, lessonID); err != nil {
		return nil, storeErr(err, "lesson not found")
	}
	out, err := s.videos.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, apperr.Internal("list videos", err)
	}
	return out, nil
}

func (s *LessonService) GetVideo(ctx context.Context, id string) (*model.Video, error) {
	v, err := s.videos.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "video not found")
	}
	return v, nil
}

// CreateVideo inserts a video into a lesson at the requested position.
func (s *LessonService) CreateVideo(ctx context.Context, a Actor, in VideoInput) (*model.Video, error) {
	order, err := requestedOrder(in.OrderLesson)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.VideoURL) == "" {
		return nil, apperr.Validation("title and videoUrl are required")
	}
	if in.Duration < 0 {
		return nil, apperr.Validation("duration must not be negative")
	}
	l, err := s.lessons.Get(ctx, in.LessonID)
	if err != nil {
		return nil, storeErr(err, "lesson not found")
	}
	if err := s.ownCourse(ctx, a, l.CourseID); err != nil {
		return nil, err
	}
	v := &model.Video{
		ID:          utils.NewID(),
		LessonID:    l.ID,
		CourseID:    l.CourseID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		VideoURL:    strings.TrimSpace(in.VideoURL),
		Duration:    in.Duration,
	}
	if err := s.videos.Create(ctx, v, order); err != nil {
		return nil, storeErr(err, "lesson not found")
	}
	return v, nil
}

// UpdateVideo edits a video; a set OrderLesson moves it within its lesson.
func (s *LessonService) UpdateVideo(ctx context.Context, a Actor, id string, u repository.VideoUpdate) (*model.Video, error) {
	if _, err := requestedOrder(u.OrderLesson); err != nil {
		return nil, err
	}
	if u.Duration != nil && *u.Duration < 0 {
		return nil, apperr.Validation("duration must not be negative")
	}
	v, err := s.videos.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "video not found")
	}
	if err := s.ownCourse(ctx, a, v.CourseID); err != nil {
		return nil, err
	}
	if err := s.videos.Update(ctx, id, u); err != nil {
		return nil, storeErr(err, "video not found")
	}
	return s.videos.Get(ctx, id)
}

// DeleteVideo removes a video and closes the gap it leaves.
func (s *LessonService) DeleteVideo(ctx context.Context, a Actor, id string) error {
	v, err := s.videos.Get(ctx, id)
	if err != nil {
		return storeErr(err, "video not found")
	}
	if err := s.ownCourse(ctx, a, v.CourseID); err != nil {
		return err
	}
	return storeErr(s.videos.Delete(ctx, id), "video not found")
}
