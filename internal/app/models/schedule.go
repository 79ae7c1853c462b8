package models

import "time"

// Schedule groups the timetable slots of a formation
type Schedule struct {
	ID              int64     `json:"id" db:"id"`
	EstablishmentID int64     `json:"establishmentId" db:"establishment_id"`
	FormationID     int64     `json:"formationId" db:"formation_id"`
	Title           string    `json:"title" db:"title"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// ScheduleSlot is one session of a schedule
type ScheduleSlot struct {
	ID         int64     `json:"id" db:"id"`
	ScheduleID int64     `json:"scheduleId" db:"schedule_id"`
	ModuleID   *int64    `json:"moduleId,omitempty" db:"module_id"`
	TrainerID  *int64    `json:"trainerId,omitempty" db:"trainer_id"`
	MeetingID  *int64    `json:"meetingId,omitempty" db:"meeting_id"`
	StartsAt   time.Time `json:"startsAt" db:"starts_at"`
	EndsAt     time.Time `json:"endsAt" db:"ends_at"`
	Location   *string   `json:"location,omitempty" db:"location"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`

	// FormationID is filled by window listings
	FormationID int64 `json:"formationId,omitempty" db:"-"`
}

// Overlaps reports whether the half-open intervals [StartsAt, EndsAt) intersect
func (s *ScheduleSlot) Overlaps(start, end time.Time) bool {
	return s.StartsAt.Before(end) && start.Before(s.EndsAt)
}

// SlotWindow selects slots in a time range
type SlotWindow struct {
	From          time.Time
	To            time.Time
	FormationID   *int64
	ParticipantID *int64 // enrolled user or assigned trainer
}
