package model

import "time"

// Category groups courses by subject.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CourseCount int       `json:"courseCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Level is a difficulty tier (Beginner, Intermediate, ...).  Names are unique.
type Level struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Course is a purchasable unit owned by an instructor.
type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Rating       float64   `json:"rating"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	BannerURL    string    `json:"bannerUrl"`
	IsPublished  bool      `json:"isPublished"`
	InstructorID string    `json:"instructorId"`
	CategoryID   string    `json:"categoryId"`
	LevelID      *string   `json:"levelId,omitempty"`
	Instructor   *Author   `json:"instructor,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the public slice of an instructor embedded in course listings.
type Author struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// CourseFilter is the optional search criteria for course listings.  Nil
// fields do not constrain the result; the repository translates the set
// fields into one WHERE clause.
type CourseFilter struct {
	Query      string
	CategoryID *string
	LevelID    *string
	MinPrice   *float64
	MaxPrice   *float64
	MinRating  *float64
	MaxRating  *float64
}

// Page is a 1-based pagination request.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Pagination is the envelope returned next to list data.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(total int, p Page) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
