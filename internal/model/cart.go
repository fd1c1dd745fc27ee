package model

import "time"

// Cart is created lazily, one per user.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"cartItems"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CartItem snapshots the course price at the moment it was added.  A course
// appears at most once per cart.
type CartItem struct {
	ID        string      `json:"id"`
	CartID    string      `json:"cartId"`
	CourseID  string      `json:"courseId"`
	Price     float64     `json:"price"`
	Course    *CartCourse `json:"course,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CartCourse is the course summary shown inside a cart.
type CartCourse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Price        float64 `json:"price"`
	Instructor   Author  `json:"instructor"`
}
