package models

import "time"

// Assignment is work given to the students of a formation
type Assignment struct {
	ID              int64      `json:"id" db:"id"`
	EstablishmentID int64      `json:"establishmentId" db:"establishment_id"`
	FormationID     int64      `json:"formationId" db:"formation_id"`
	Title           string     `json:"title" db:"title"`
	Instructions    *string    `json:"instructions,omitempty" db:"instructions"`
	DueAt           *time.Time `json:"dueAt,omitempty" db:"due_at"`
	MaxScore        int        `json:"maxScore" db:"max_score"`
	CreatedBy       *int64     `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsLate reports whether a submission at t misses the due date
func (a *Assignment) IsLate(t time.Time) bool {
	return a.DueAt != nil && t.After(*a.DueAt)
}

// Submission is a student's answer to an assignment
type Submission struct {
	ID            int64      `json:"id" db:"id"`
	AssignmentID  int64      `json:"assignmentId" db:"assignment_id"`
	StudentID     int64      `json:"studentId" db:"student_id"`
	Content       string     `json:"content" db:"content"`
	AttachmentURL *string    `json:"attachmentUrl,omitempty" db:"attachment_url"`
	SubmittedAt   time.Time  `json:"submittedAt" db:"submitted_at"`
	IsLate        bool       `json:"isLate" db:"is_late"`
	Score         *int       `json:"score,omitempty" db:"score"`
	Feedback      *string    `json:"feedback,omitempty" db:"feedback"`
	GradedAt      *time.Time `json:"gradedAt,omitempty" db:"graded_at"`
	GradedBy      *int64     `json:"gradedBy,omitempty" db:"graded_by"`
}

// Graded reports whether a trainer already scored the submission
func (s *Submission) Graded() bool {
	return s.GradedAt != nil
}
