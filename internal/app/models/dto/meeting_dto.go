package dto

import "time"

// CreateMeetingRequest represents meeting creation data
type CreateMeetingRequest struct {
	FormationID *int64    `json:"formationId" binding:"omitempty,gt=0"`
	Title       string    `json:"title" binding:"required,max=200" example:"Réunion pédagogique"`
	Description *string   `json:"description"`
	StartsAt    time.Time `json:"startsAt" binding:"required"`
	EndsAt      time.Time `json:"endsAt" binding:"required"`
	MeetingURL  *string   `json:"meetingUrl" binding:"omitempty,url"`
}

// UpdateMeetingRequest represents a partial meeting update
type UpdateMeetingRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	MeetingURL  *string    `json:"meetingUrl" binding:"omitempty,url"`
}

// MeetingListQuery filters the meeting listing
type MeetingListQuery struct {
	EstablishmentID *int64     `form:"establishmentId" binding:"omitempty,gt=0"`
	FormationID     *int64     `form:"formationId" binding:"omitempty,gt=0"`
	From            *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To              *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}
