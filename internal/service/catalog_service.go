package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// CategoryStore persists categories.
type CategoryStore interface {
	List(ctx context.Context, query string, p model.Page) ([]model.Category, int, error)
	Get(ctx context.Context, id string) (*model.Category, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id string) error
}

// LevelStore persists levels.
type LevelStore interface {
	List(ctx context.Context) ([]model.Level, error)
	Get(ctx context.Context, id string) (*model.Level, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, l *model.Level) error
	Update(ctx context.Context, l *model.Level) error
	Delete(ctx context.Context, id string) error
}

// CategoryService manages course categories.
type CategoryService struct{ store CategoryStore }

func NewCategoryService(store CategoryStore) *CategoryService { return &CategoryService{store: store} }

func (s *CategoryService) List(ctx context.Context, query string, p model.Page) ([]model.Category, model.Pagination, error) {
	p = pageOf(p)
	out, total, err := s.store.List(ctx, query, p)
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("list categories", err)
	}
	return out, model.NewPagination(total, p), nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*model.Category, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category not found")
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name string, description *string) (*model.Category, error) {
	c := &model.Category{ID: utils.NewID(), Name: strings.TrimSpace(name), Description: description}
	if c.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, catalogErr(err, "category")
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, name *string, description *string) (*model.Category, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category not found")
	}
	if name != nil {
		if c.Name = strings.TrimSpace(*name); c.Name == "" {
			return nil, apperr.Validation("name is required")
		}
	}
	if description != nil {
		c.Description = description
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, catalogErr(err, "category")
	}
	return c, nil
}

// Delete removes a category that no course references.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return catalogErr(s.store.Delete(ctx, id), "category")
}

// LevelService manages difficulty levels.
type LevelService struct{ store LevelStore }

func NewLevelService(store LevelStore) *LevelService { return &LevelService{store: store} }

func (s *LevelService) List(ctx context.Context) ([]model.Level, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list levels", err)
	}
	return out, nil
}

func (s *LevelService) Get(ctx context.Context, id string) (*model.Level, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "level not found")
	}
	return l, nil
}

func (s *LevelService) Create(ctx context.Context, name string, description *string) (*model.Level, error) {
	l := &model.Level{ID: utils.NewID(), Name: strings.TrimSpace(name), Description: description}
	if l.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.store.Create(ctx, l); err != nil {
		return nil, catalogErr(err, "level")
	}
	return l, nil
}

func (s *LevelService) Update(ctx context.Context, id string, name *string, description *string) (*model.Level, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "level not found")
	}
	if name != nil {
		if l.Name = strings.TrimSpace(*name); l.Name == "" {
			return nil, apperr.Validation("name is required")
		}
	}
	if description != nil {
		l.Description = description
	}
	if err := s.store.Update(ctx, l); err != nil {
		return nil, catalogErr(err, "level")
	}
	return l, nil
}

func (s *LevelService) Delete(ctx context.Context, id string) error {
	return catalogErr(s.store.Delete(ctx, id), "level")
}

// catalogErr maps write errors of named entities.
func catalogErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict(entity + " name already exists")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(entity + " is still used by courses")
	}
	return storeErr(err, entity+" not found")
}
