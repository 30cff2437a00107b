package model

import "time"

// Course groups a question pool under a caller-supplied identifier.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCourseRequest is the payload for creating a course.
// The ID is externally shared (it appears in question uploads and exam
// definitions), so callers pick it; uniqueness is enforced atomically.
type CreateCourseRequest struct {
	ID   string `json:"id" binding:"required,min=2,max=64"`
	Name string `json:"name" binding:"required,min=2,max=255"`
}
