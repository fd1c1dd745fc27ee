package service

import (
	"context"
	"strings"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// CourseStore persists courses.
type CourseStore interface {
	List(ctx context.Context, f model.CourseFilter, p model.Page) ([]model.Course, int, error)
	Get(ctx context.Context, id string) (*model.Course, error)
	Create(ctx context.Context, c *model.Course) error
	Update(ctx context.Context, c *model.Course) error
	Delete(ctx context.Context, id string) error
}

// Actor is the authenticated caller of a write.
type Actor struct {
	UserID string
	Role   model.Role
}

// owns reports whether a may modify content of instructorID.
func (a Actor) owns(instructorID string) bool {
	return a.Role == model.RoleAdmin || a.UserID == instructorID
}

// CourseInput is a course create request.
type CourseInput struct {
	Title        string
	Description  string
	Price        float64
	ThumbnailURL string
	BannerURL    string
	IsPublished  bool
	CategoryID   string
	LevelID      *string
}

// CourseUpdate is a partial course edit; nil fields are unchanged.
type CourseUpdate struct {
	Title        *string
	Description  *string
	Price        *float64
	ThumbnailURL *string
	BannerURL    *string
	IsPublished  *bool
	CategoryID   *string
	LevelID      *string
}

// CourseService manages courses.
type CourseService struct {
	courses    CourseStore
	categories CategoryStore
	levels     LevelStore
}

func NewCourseService(courses CourseStore, categories CategoryStore, levels LevelStore) *CourseService {
	return &CourseService{courses: courses, categories: categories, levels: levels}
}

// List searches courses.  Bounds must be ordered and referenced category
// and level must exist.
func (s *CourseService) List(ctx context.Context, f model.CourseFilter, p model.Page) ([]model.Course, model.Pagination, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, model.Pagination{}, apperr.Validation("minPrice must not exceed maxPrice")
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		return nil, model.Pagination{}, apperr.Validation("minRating must not exceed maxRating")
	}
	if err := s.checkRefs(ctx, f.CategoryID, f.LevelID); err != nil {
		return nil, model.Pagination{}, err
	}
	p = pageOf(p)
	out, total, err := s.courses.List(ctx, f, p)
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("list courses", err)
	}
	return out, model.NewPagination(total, p), nil
}

func (s *CourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	c, err := s.courses.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "course not found")
	}
	return c, nil
}

// Create adds a course owned by the actor.
func (s *CourseService) Create(ctx context.Context, a Actor, in CourseInput) (*model.Course, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if in.Price < 0 {
		return nil, apperr.Validation("price must not be negative")
	}
	if err := s.checkRefs(ctx, &in.CategoryID, in.LevelID); err != nil {
		return nil, err
	}
	c := &model.Course{
		ID:           utils.NewID(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Price:        in.Price,
		ThumbnailURL: in.ThumbnailURL,
		BannerURL:    in.BannerURL,
		IsPublished:  in.IsPublished,
		InstructorID: a.UserID,
		CategoryID:   in.CategoryID,
		LevelID:      in.LevelID,
	}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, storeErr(err, "category or level not found")
	}
	return s.Get(ctx, c.ID)
}

// Update edits a course of the actor.
func (s *CourseService) Update(ctx context.Context, a Actor, id string, u CourseUpdate) (*model.Course, error) {
	c, err := s.Owned(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, u.CategoryID, u.LevelID); err != nil {
		return nil, err
	}
	if u.Title != nil {
		if c.Title = strings.TrimSpace(*u.Title); c.Title == "" {
			return nil, apperr.Validation("title is required")
		}
	}
	if u.Price != nil {
		if *u.Price < 0 {
			return nil, apperr.Validation("price must not be negative")
		}
		c.Price = *u.Price
	}
	setIf(&c.Description, u.Description)
	setIf(&c.ThumbnailURL, u.ThumbnailURL)
	setIf(&c.BannerURL, u.BannerURL)
	setIf(&c.IsPublished, u.IsPublished)
	setIf(&c.CategoryID, u.CategoryID)
	if u.LevelID != nil {
		c.LevelID = u.LevelID
	}
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, storeErr(err, "course not found")
	}
	return s.Get(ctx, id)
}

// Delete removes a course of the actor with everything under it.
func (s *CourseService) Delete(ctx context.Context, a Actor, id string) error {
	if _, err := s.Owned(ctx, a, id); err != nil {
		return err
	}
	return storeErr(s.courses.Delete(ctx, id), "course not found")
}

// Owned loads course id and requires the actor to own it.
func (s *CourseService) Owned(ctx context.Context, a Actor, id string) (*model.Course, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.owns(c.InstructorID) {
		return nil, apperr.Forbidden("you do not own this course")
	}
	return c, nil
}

func (s *CourseService) checkRefs(ctx context.Context, categoryID, levelID *string) error {
	if categoryID != nil {
		ok, err := s.categories.Exists(ctx, *categoryID)
		if err != nil {
			return apperr.Internal("lookup category", err)
		}
		if !ok {
			return apperr.Validation("category does not exist")
		}
	}
	if levelID != nil {
		ok, err := s.levels.Exists(ctx, *levelID)
		if err != nil {
			return apperr.Internal("lookup level", err)
		}
		if !ok {
			return apperr.Validation("level does not exist")
		}
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
