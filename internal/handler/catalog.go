package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/service"
)

// CategoryAPI is the category catalog.
type CategoryAPI interface {
	List(ctx context.Context, query string, p model.Page) ([]model.Category, model.Pagination, error)
	Get(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, name string, description *string) (*model.Category, error)
	Update(ctx context.Context, id string, name *string, description *string) (*model.Category, error)
	Delete(ctx context.Context, id string) error
}

// LevelAPI is the level catalog.
type LevelAPI interface {
	List(ctx context.Context) ([]model.Level, error)
	Get(ctx context.Context, id string) (*model.Level, error)
	Create(ctx context.Context, name string, description *string) (*model.Level, error)
	Update(ctx context.Context, id string, name *string, description *string) (*model.Level, error)
	Delete(ctx context.Context, id string) error
}

// CourseAPI is the course catalog.
type CourseAPI interface {
	List(ctx context.Context, f model.CourseFilter, p model.Page) ([]model.Course, model.Pagination, error)
	Get(ctx context.Context, id string) (*model.Course, error)
	Create(ctx context.Context, a service.Actor, in service.CourseInput) (*model.Course, error)
	Update(ctx context.Context, a service.Actor, id string, u service.CourseUpdate) (*model.Course, error)
	Delete(ctx context.Context, a service.Actor, id string) error
}

// CatalogHandler serves categories, levels and courses.
type CatalogHandler struct {
	categories CategoryAPI
	levels     LevelAPI
	courses    CourseAPI
}

func NewCatalogHandler(categories CategoryAPI, levels LevelAPI, courses CourseAPI) *CatalogHandler {
	return &CatalogHandler{categories: categories, levels: levels, courses: courses}
}

type namedReq struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type namedPatch struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type categoryQuery struct {
	Paging
	Query string `query:"q"`
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	var q categoryQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, pg, err := h.categories.List(ctx, q.Query, q.page())
	if err != nil {
		return err
	}
	return list(c, out, pg)
}

func (h *CatalogHandler) GetCategory(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.categories.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", cat)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req namedReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.categories.Create(ctx, req.Name, req.Description)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "category created", cat)
}

func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	var req namedPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.categories.Update(ctx, c.Param("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "category updated", cat)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.categories.Delete(ctx, c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "category deleted", nil)
}

func (h *CatalogHandler) ListLevels(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.levels.List(ctx)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", out)
}

func (h *CatalogHandler) GetLevel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.levels.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", l)
}

func (h *CatalogHandler) CreateLevel(c echo.Context) error {
	var req namedReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.levels.Create(ctx, req.Name, req.Description)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "level created", l)
}

func (h *CatalogHandler) UpdateLevel(c echo.Context) error {
	var req namedPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.levels.Update(ctx, c.Param("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "level updated", l)
}

func (h *CatalogHandler) DeleteLevel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.levels.Delete(ctx, c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "level deleted", nil)
}

// courseQuery carries the listing filter.  Empty parameters do not
// constrain the search.
type courseQuery struct {
	Paging
	Query      string `query:"q"`
	CategoryID string `query:"categoryId"`
	LevelID    string `query:"levelId"`
	MinPrice   string `query:"minPrice"`
	MaxPrice   string `query:"maxPrice"`
	MinRating  string `query:"minRating"`
	MaxRating  string `query:"maxRating"`
}

func (q courseQuery) filter() (model.CourseFilter, error) {
	f := model.CourseFilter{
		Query:      strings.TrimSpace(q.Query),
		CategoryID: optString(q.CategoryID),
		LevelID:    optString(q.LevelID),
	}
	bounds := []struct {
		name string
		raw  string
		max  float64
		dst  **float64
	}{
		{"minPrice", q.MinPrice, math.MaxFloat64, &f.MinPrice},
		{"maxPrice", q.MaxPrice, math.MaxFloat64, &f.MaxPrice},
		{"minRating", q.MinRating, 5, &f.MinRating},
		{"maxRating", q.MaxRating, 5, &f.MaxRating},
	}
	for _, b := range bounds {
		if b.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(b.raw, 64)
		if err != nil || v < 0 || v > b.max {
			return model.CourseFilter{}, apperr.Validation(b.name + " is out of range")
		}
		*b.dst = &v
	}
	return f, nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

type createCourseReq struct {
	Title        string  `json:"title" validate:"required,max=255"`
	Description  string  `json:"description" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	ThumbnailURL string  `json:"thumbnailUrl" validate:"omitempty,url"`
	BannerURL    string  `json:"bannerUrl" validate:"omitempty,url"`
	IsPublished  bool    `json:"isPublished"`
	CategoryID   string  `json:"categoryId" validate:"required"`
	LevelID      *string `json:"levelId"`
}

type updateCourseReq struct {
	Title        *string  `json:"title" validate:"omitempty,max=255"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	ThumbnailURL *string  `json:"thumbnailUrl" validate:"omitempty,url"`
	BannerURL    *string  `json:"bannerUrl" validate:"omitempty,url"`
	IsPublished  *bool    `json:"isPublished"`
	CategoryID   *string  `json:"categoryId"`
	LevelID      *string  `json:"levelId"`
}

func (h *CatalogHandler) ListCourses(c echo.Context) error {
	var q courseQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	f, err := q.filter()
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, pg, err := h.courses.List(ctx, f, q.page())
	if err != nil {
		return err
	}
	return list(c, out, pg)
}

func (h *CatalogHandler) GetCourse(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	course, err := h.courses.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", course)
}

func (h *CatalogHandler) CreateCourse(c echo.Context) error {
	var req createCourseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	course, err := h.courses.Create(ctx, actor(c), service.CourseInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		ThumbnailURL: req.ThumbnailURL,
		BannerURL:    req.BannerURL,
		IsPublished:  req.IsPublished,
		CategoryID:   req.CategoryID,
		LevelID:      req.LevelID,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "course created", course)
}

func (h *CatalogHandler) UpdateCourse(c echo.Context) error {
	var req updateCourseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	course, err := h.courses.Update(ctx, actor(c), c.Param("id"), service.CourseUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		ThumbnailURL: req.ThumbnailURL,
		BannerURL:    req.BannerURL,
		IsPublished:  req.IsPublished,
		CategoryID:   req.CategoryID,
		LevelID:      req.LevelID,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "course updated", course)
}

func (h *CatalogHandler) DeleteCourse(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.courses.Delete(ctx, actor(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "course deleted", nil)
}
