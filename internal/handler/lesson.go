package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/service"
)

// LessonAPI manages lessons and videos.
type LessonAPI interface {
	ListLessons(ctx context.Context, courseID string, p model.Page) ([]model.Lesson, model.Pagination, error)
	GetLesson(ctx context.Context, id string) (*model.Lesson, error)
	CreateLesson(ctx context.Context, a service.Actor, in service.LessonInput) (*model.Lesson, error)
	UpdateLesson(ctx context.Context, a service.Actor, id string, u repository.LessonUpdate) (*model.Lesson, error)
	DeleteLesson(ctx context.Context, a service.Actor, id string) error
	ListVideos(ctx context.Context, lessonID string) ([]model.Video, error)
	GetVideo(ctx context.Context, id string) (*model.Video, error)
	CreateVideo(ctx context.Context, a service.Actor, in service.VideoInput) (*model.Video, error)
	UpdateVideo(ctx context.Context, a service.Actor, id string, u repository.VideoUpdate) (*model.Video, error)
	DeleteVideo(ctx context.Context, a service.Actor, id string) error
}

// LessonHandler serves /v1/lessons and /v1/videos.
type LessonHandler struct {
	svc LessonAPI
}

func NewLessonHandler(svc LessonAPI) *LessonHandler { return &LessonHandler{svc: svc} }

// Positions are 1-based; an absent order appends.
type createLessonReq struct {
	CourseID string  `json:"courseId" validate:"required"`
	Title    string  `json:"title" validate:"required,max=255"`
	Content  *string `json:"content"`
	Order    *int    `json:"order"`
}

type updateLessonReq struct {
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Content *string `json:"content"`
	Order   *int    `json:"order"`
}

type createVideoReq struct {
	LessonID    string  `json:"lessonId" validate:"required"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	VideoURL    string  `json:"videoUrl" validate:"required,url"`
	Duration    int     `json:"duration" validate:"gte=0"`
	OrderLesson *int    `json:"orderLesson"`
}

type updateVideoReq struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
	Duration    *int    `json:"duration" validate:"omitempty,gte=0"`
	OrderLesson *int    `json:"orderLesson"`
}

func (h *LessonHandler) ListLessons(c echo.Context) error {
	var q Paging
	if err := bind(c, &q); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, pg, err := h.svc.ListLessons(ctx, c.Param("courseId"), q.page())
	if err != nil {
		return err
	}
	return list(c, out, pg)
}

func (h *LessonHandler) GetLesson(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.svc.GetLesson(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", l)
}

func (h *LessonHandler) CreateLesson(c echo.Context) error {
	var req createLessonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.svc.CreateLesson(ctx, actor(c), service.LessonInput{
		CourseID: req.CourseID,
		Title:    req.Title,
		Content:  req.Content,
		Order:    req.Order,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "lesson created", l)
}

func (h *LessonHandler) UpdateLesson(c echo.Context) error {
	var req updateLessonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.svc.UpdateLesson(ctx, actor(c), c.Param("id"), repository.LessonUpdate{
		Title:   req.Title,
		Content: req.Content,
		Order:   req.Order,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "lesson updated", l)
}

func (h *LessonHandler) DeleteLesson(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.DeleteLesson(ctx, actor(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "lesson deleted", nil)
}

func (h *LessonHandler) ListVideos(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListVideos(ctx, c.Param("lessonId"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", out)
}

func (h *LessonHandler) GetVideo(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.svc.GetVideo(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", v)
}

func (h *LessonHandler) CreateVideo(c echo.Context) error {
	var req createVideoReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.svc.CreateVideo(ctx, actor(c), service.VideoInput{
		LessonID:    req.LessonID,
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		OrderLesson: req.OrderLesson,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "video created", v)
}

func (h *LessonHandler) UpdateVideo(c echo.Context) error {
	var req updateVideoReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.svc.UpdateVideo(ctx, actor(c), c.Param("id"), repository.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		OrderLesson: req.OrderLesson,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "video updated", v)
}

func (h *LessonHandler) DeleteVideo(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.DeleteVideo(ctx, actor(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "video deleted", nil)
}
