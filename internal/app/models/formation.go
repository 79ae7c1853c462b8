package models

import "time"

// Formation is a training course owned by an establishment
type Formation struct {
	ID              int64           `json:"id" db:"id"`
	EstablishmentID int64           `json:"establishmentId" db:"establishment_id"`
	Title           string          `json:"title" db:"title"`
	Description     *string         `json:"description,omitempty" db:"description"`
	StartDate       *time.Time      `json:"startDate,omitempty" db:"start_date"`
	EndDate         *time.Time      `json:"endDate,omitempty" db:"end_date"`
	Status          FormationStatus `json:"status" db:"status"`
	CreatedBy       *int64          `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// FormationModule is an ordered unit of a formation
type FormationModule struct {
	ID              int64     `json:"id" db:"id"`
	FormationID     int64     `json:"formationId" db:"formation_id"`
	Title           string    `json:"title" db:"title"`
	Description     *string   `json:"description,omitempty" db:"description"`
	Position        int       `json:"position" db:"position"`
	DurationMinutes int       `json:"durationMinutes" db:"duration_minutes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// FormationParticipant links a user to a formation
type FormationParticipant struct {
	FormationID int64           `json:"formationId" db:"formation_id"`
	UserID      int64           `json:"userId" db:"user_id"`
	Role        ParticipantRole `json:"role" db:"role"`
	EnrolledAt  time.Time       `json:"enrolledAt" db:"enrolled_at"`
	User        *User           `json:"user,omitempty"`
}

// FormationFilter narrows formation listings
type FormationFilter struct {
	EstablishmentID int64
	Status          *FormationStatus
	Search          string
	ParticipantID   *int64
	Page            int
	PageSize        int
}
