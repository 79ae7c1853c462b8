package dto

import "time"

// CreateScheduleRequest represents schedule creation data
type CreateScheduleRequest struct {
	FormationID int64  `json:"formationId" binding:"required,gt=0" example:"12"`
	Title       string `json:"title" binding:"required,max=200" example:"Semestre 1"`
}

// CreateSlotRequest represents slot creation data
type CreateSlotRequest struct {
	StartsAt  time.Time `json:"startsAt" binding:"required" example:"2025-09-01T09:00:00Z"`
	EndsAt    time.Time `json:"endsAt" binding:"required" example:"2025-09-01T12:00:00Z"`
	ModuleID  *int64    `json:"moduleId" binding:"omitempty,gt=0"`
	TrainerID *int64    `json:"trainerId" binding:"omitempty,gt=0"`
	MeetingID *int64    `json:"meetingId" binding:"omitempty,gt=0"`
	Location  *string   `json:"location" binding:"omitempty,max=255"`
	Notes     *string   `json:"notes"`
}

// UpdateSlotRequest represents a partial slot update
type UpdateSlotRequest struct {
	StartsAt  *time.Time `json:"startsAt"`
	EndsAt    *time.Time `json:"endsAt"`
	ModuleID  *int64     `json:"moduleId" binding:"omitempty,gt=0"`
	TrainerID *int64     `json:"trainerId" binding:"omitempty,gt=0"`
	MeetingID *int64     `json:"meetingId" binding:"omitempty,gt=0"`
	Location  *string    `json:"location" binding:"omitempty,max=255"`
	Notes     *string    `json:"notes"`
}

// SlotWindowQuery selects slots between two instants
type SlotWindowQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}
