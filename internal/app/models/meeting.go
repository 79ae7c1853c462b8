package models

import "time"

// Meeting is a scheduled meeting with an external link
type Meeting struct {
	ID              int64     `json:"id" db:"id"`
	EstablishmentID int64     `json:"establishmentId" db:"establishment_id"`
	FormationID     *int64    `json:"formationId,omitempty" db:"formation_id"`
	Title           string    `json:"title" db:"title"`
	Description     *string   `json:"description,omitempty" db:"description"`
	StartsAt        time.Time `json:"startsAt" db:"starts_at"`
	EndsAt          time.Time `json:"endsAt" db:"ends_at"`
	MeetingURL      *string   `json:"meetingUrl,omitempty" db:"meeting_url"`
	CreatedBy       *int64    `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
