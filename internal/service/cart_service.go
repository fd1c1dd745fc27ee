package service

import (
	"context"
	"errors"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
)

// CartStore persists carts and their items.
type CartStore interface {
	GetOrCreate(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, cartID, courseID string, price float64) (*model.CartItem, error)
	RemoveItem(ctx context.Context, cartID, courseID string) error
	Clear(ctx context.Context, cartID string) error
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	Total(ctx context.Context, cartID string, courseIDs []string) (float64, int, error)
}

// CartTotal is the price of a selection of cart items.
type CartTotal struct {
	CourseIDs []string `json:"courseIds"`
	Total     float64  `json:"total"`
}

// CartService manages the shopping cart of a user.
type CartService struct {
	carts   CartStore
	courses CourseStore
}

func NewCartService(carts CartStore, courses CourseStore) *CartService {
	return &CartService{carts: carts, courses: courses}
}

// Get returns the user's cart, creating it on first access.
func (s *CartService) Get(ctx context.Context, userID string) (*model.Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return c, nil
}

// Add puts a course in the cart at its current price.
func (s *CartService) Add(ctx context.Context, userID, courseID string) (*model.CartItem, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "course not found")
	}
	if course.InstructorID == userID {
		return nil, apperr.Conflict("you cannot buy your own course")
	}
	enrolled, err := s.carts.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return nil, apperr.Internal("check enrollment", err)
	}
	if enrolled {
		return nil, apperr.Conflict("you are already enrolled in this course")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	it, err := s.carts.AddItem(ctx, cart.ID, courseID, course.Price)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("course is already in the cart")
	}
	if err != nil {
		return nil, storeErr(err, "course not found")
	}
	return it, nil
}

// Remove takes a course out of the cart.
func (s *CartService) Remove(ctx context.Context, userID, courseID string) error {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	return storeErr(s.carts.RemoveItem(ctx, cart.ID, courseID), "course is not in the cart")
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return apperr.Internal("clear cart", err)
	}
	return nil
}

// Total prices the given courses.  Every course must be in the cart.
func (s *CartService) Total(ctx context.Context, userID string, courseIDs []string) (*CartTotal, error) {
	ids := dedupe(courseIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation("courseIds must not be empty")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, found, err := s.carts.Total(ctx, cart.ID, ids)
	if err != nil {
		return nil, apperr.Internal("total cart", err)
	}
	if found != len(ids) {
		return nil, apperr.NotFound("some courses are not in the cart")
	}
	return &CartTotal{CourseIDs: ids, Total: total}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
