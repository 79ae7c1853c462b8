package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	EstablishmentRepository *EstablishmentRepository
	UserRepository          *UserRepository
	FormationRepository     *FormationRepository
	ScheduleRepository      *ScheduleRepository
	MessageRepository       *MessageRepository
	AssignmentRepository    *AssignmentRepository
	MeetingRepository       *MeetingRepository
	VirtualClassRepository  *VirtualClassRepository
	SignalingRepository     *SignalingRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		EstablishmentRepository: NewEstablishmentRepository(db),
		UserRepository:          NewUserRepository(db),
		FormationRepository:     NewFormationRepository(db),
		ScheduleRepository:      NewScheduleRepository(db),
		MessageRepository:       NewMessageRepository(db),
		AssignmentRepository:    NewAssignmentRepository(db),
		MeetingRepository:       NewMeetingRepository(db),
		VirtualClassRepository:  NewVirtualClassRepository(db),
		SignalingRepository:     NewSignalingRepository(db),
	}
}
