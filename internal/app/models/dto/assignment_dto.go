package dto

import "time"

// CreateAssignmentRequest represents assignment creation data
type CreateAssignmentRequest struct {
	FormationID  int64      `json:"formationId" binding:"required,gt=0" example:"12"`
	Title        string     `json:"title" binding:"required,max=200" example:"Mini-projet"`
	Instructions *string    `json:"instructions"`
	DueAt        *time.Time `json:"dueAt" example:"2025-10-01T22:00:00Z"`
	MaxScore     int        `json:"maxScore" binding:"omitempty,min=1,max=1000" example:"20"`
}

// UpdateAssignmentRequest represents a partial assignment update
type UpdateAssignmentRequest struct {
	Title        *string    `json:"title" binding:"omitempty,max=200"`
	Instructions *string    `json:"instructions"`
	DueAt        *time.Time `json:"dueAt"`
	MaxScore     *int       `json:"maxScore" binding:"omitempty,min=1,max=1000"`
}

// SubmitRequest is a student's submission
type SubmitRequest struct {
	Content       string  `json:"content" binding:"required" example:"https://github.com/lea/mini-projet"`
	AttachmentURL *string `json:"attachmentUrl" binding:"omitempty,url"`
}

// GradeRequest scores a submission
type GradeRequest struct {
	Score    *int    `json:"score" binding:"required,min=0" example:"17"`
	Feedback *string `json:"feedback" example:"Bon travail"`
}

// AttachmentResponse is the stored location of an uploaded attachment
type AttachmentResponse struct {
	URL  string `json:"url" example:"http://localhost:8080/uploads/submissions/3f2a.pdf"`
	Size int64  `json:"size" example:"20480"`
}
