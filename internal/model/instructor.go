package model

import "time"

// Instructor is a staff account that authors courses, questions and exams.
type Instructor struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// InstructorLoginRequest is the payload for instructor login.
type InstructorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// StudentLoginRequest identifies a student. Students are not stored
// server-side; identity comes from the upstream auth provider and is
// snapshotted onto attempts at join time.
type StudentLoginRequest struct {
	StudentID string `json:"student_id" binding:"required,min=2,max=128"`
	Name      string `json:"name" binding:"required,min=1,max=255"`
	Email     string `json:"email" binding:"omitempty,email"`
}
