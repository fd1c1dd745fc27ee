package model

import "time"

// Lesson belongs to a course.  Order is dense and 1-based within CourseID:
// for N lessons the orders are exactly {1..N}.
type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	Content   *string   `json:"content,omitempty"`
	Order     int       `json:"order"`
	Videos    []Video   `json:"videos,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Video belongs to a lesson with the same dense ordering via OrderLesson.
type Video struct {
	ID          string    `json:"id"`
	LessonID    string    `json:"lessonId"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	VideoURL    string    `json:"videoUrl"`
	Duration    int       `json:"duration"`
	OrderLesson int       `json:"orderLesson"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
