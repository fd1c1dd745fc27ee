package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/service"
)

// CartAPI is the shopping cart of the authenticated user.
type CartAPI interface {
	Get(ctx context.Context, userID string) (*model.Cart, error)
	Add(ctx context.Context, userID, courseID string) (*model.CartItem, error)
	Remove(ctx context.Context, userID, courseID string) error
	Clear(ctx context.Context, userID string) error
	Total(ctx context.Context, userID string, courseIDs []string) (*service.CartTotal, error)
}

// CartHandler serves /v1/cart.
type CartHandler struct {
	svc CartAPI
}

func NewCartHandler(svc CartAPI) *CartHandler { return &CartHandler{svc: svc} }

type addCartReq struct {
	CourseID string `json:"courseId" validate:"required"`
}

type cartTotalReq struct {
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
}

func (h *CartHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cart, err := h.svc.Get(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", cart)
}

func (h *CartHandler) Add(c echo.Context) error {
	var req addCartReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	item, err := h.svc.Add(ctx, middleware.UserID(c), req.CourseID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "course added to cart", item)
}

func (h *CartHandler) Remove(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.Remove(ctx, middleware.UserID(c), c.Param("courseId")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "course removed from cart", nil)
}

func (h *CartHandler) Clear(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.Clear(ctx, middleware.UserID(c)); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "cart cleared", nil)
}

func (h *CartHandler) Total(c echo.Context) error {
	var req cartTotalReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.svc.Total(ctx, middleware.UserID(c), req.CourseIDs)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", t)
}
