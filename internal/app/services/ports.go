package services

import (
	"context"
	"time"

	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/email"
)

// The stores below are the parts of the repositories each service uses.
// *repositories.XxxRepository satisfies them.

// EstablishmentStore persists establishments
type EstablishmentStore interface {
	Create(ctx context.Context, e *models.Establishment) error
	GetByID(ctx context.Context, id int64) (*models.Establishment, error)
	List(ctx context.Context, activeOnly bool, page, size int) ([]models.Establishment, int64, error)
	Update(ctx context.Context, e *models.Establishment) error
}

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, u *models.User) error
}

// UserDirectory looks up active users for recipient expansion
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveByIDs(ctx context.Context, establishmentID int64, ids []int64) ([]models.User, error)
	ListActiveByRole(ctx context.Context, establishmentID int64, role models.Role) ([]models.User, error)
	ListActiveFormationMembers(ctx context.Context, formationID int64, role *models.ParticipantRole) ([]models.User, error)
}

// FormationReader is the read side of formations used by the other services
type FormationReader interface {
	GetByID(ctx context.Context, id int64) (*models.Formation, error)
	GetParticipant(ctx context.Context, formationID, userID int64) (*models.FormationParticipant, error)
}

// FormationStore persists formations, modules and enrollments
type FormationStore interface {
	FormationReader
	Create(ctx context.Context, f *models.Formation) error
	List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, int64, error)
	Update(ctx context.Context, f *models.Formation) error
	Delete(ctx context.Context, id int64) error

	CreateModule(ctx context.Context, m *models.FormationModule) error
	GetModule(ctx context.Context, id int64) (*models.FormationModule, error)
	ListModules(ctx context.Context, formationID int64) ([]models.FormationModule, error)
	UpdateModule(ctx context.Context, m *models.FormationModule) error
	DeleteModule(ctx context.Context, m *models.FormationModule) error
	ReorderModules(ctx context.Context, formationID int64, moduleIDs []int64) error

	AddParticipant(ctx context.Context, p *models.FormationParticipant) error
	RemoveParticipant(ctx context.Context, formationID, userID int64) error
	ListParticipants(ctx context.Context, formationID int64) ([]models.FormationParticipant, error)
}

// ScheduleStore persists schedules and slots
type ScheduleStore interface {
	Create(ctx context.Context, s *models.Schedule) error
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	ListByFormation(ctx context.Context, formationID int64) ([]models.Schedule, error)
	Delete(ctx context.Context, id int64) error
	CreateSlot(ctx context.Context, s *models.ScheduleSlot) error
	UpdateSlot(ctx context.Context, s *models.ScheduleSlot) error
	GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error)
	DeleteSlot(ctx context.Context, id int64) error
	ListSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleSlot, error)
	ListSlotsInWindow(ctx context.Context, establishmentID int64, w models.SlotWindow) ([]models.ScheduleSlot, error)
}

// MessageStore persists messages and their recipients
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	CreateDelivered(ctx context.Context, m *models.Message, recipientIDs []int64) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	GetInboxItem(ctx context.Context, messageID, userID int64) (*models.InboxItem, error)
	ListInbox(ctx context.Context, filter models.InboxFilter) ([]models.InboxItem, int64, error)
	ListSent(ctx context.Context, senderID int64, page, size int) ([]models.Message, int64, error)
	MarkRead(ctx context.Context, messageID, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int64, error)
	Cancel(ctx context.Context, id int64) error
}

// DispatchStore is the claim/complete cycle of scheduled messages
type DispatchStore interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.Message, error)
	MarkSent(ctx context.Context, messageID int64, recipientIDs []int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, messageID int64, reason string) error
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AssignmentStore persists assignments and submissions
type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)
	ListByFormation(ctx context.Context, formationID int64) ([]models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id int64) error
	UpsertSubmission(ctx context.Context, s *models.Submission) error
	GetSubmission(ctx context.Context, id int64) (*models.Submission, error)
	GetSubmissionByStudent(ctx context.Context, assignmentID, studentID int64) (*models.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID int64) ([]models.Submission, error)
	Grade(ctx context.Context, submissionID int64, score int, feedback *string, graderID int64, at time.Time) error
}

// MeetingStore persists meetings
type MeetingStore interface {
	Create(ctx context.Context, m *models.Meeting) error
	GetByID(ctx context.Context, id int64) (*models.Meeting, error)
	List(ctx context.Context, establishmentID int64, formationID *int64, from, to *time.Time) ([]models.Meeting, error)
	Update(ctx context.Context, m *models.Meeting) error
	Delete(ctx context.Context, id int64) error
}

// VirtualClassStore persists virtual classes
type VirtualClassStore interface {
	Create(ctx context.Context, v *models.VirtualClass) error
	GetByID(ctx context.Context, id int64) (*models.VirtualClass, error)
	ListByFormation(ctx context.Context, formationID int64) ([]models.VirtualClass, error)
	Delete(ctx context.Context, id int64) error
}

// SignalingStore persists peer presence and relayed signals
type SignalingStore interface {
	UpsertPeer(ctx context.Context, classID, userID int64, now time.Time) (*models.Peer, error)
	SetOffline(ctx context.Context, classID, userID int64) error
	Touch(ctx context.Context, classID, userID int64, now time.Time) error
	GetPeer(ctx context.Context, classID, userID int64) (*models.Peer, error)
	ListOnlinePeers(ctx context.Context, classID int64) ([]models.Peer, error)
	ExpirePeers(ctx context.Context, before time.Time) ([]models.Peer, error)
	InsertSignal(ctx context.Context, s *models.Signal) error
	ListSignals(ctx context.Context, classID, receiverID int64, since *time.Time) ([]models.Signal, error)
	DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifications are the emails sent by the services. *email.Notifier satisfies it.
type Notifications interface {
	MessageReceived(ctx context.Context, to email.Address, senderName, subject string, messageID int64) error
	AssignmentGraded(ctx context.Context, to email.Address, assignmentTitle string, score, maxScore int, feedback string) error
	VirtualClassScheduled(ctx context.Context, to email.Address, classTitle string, startsAt *time.Time, roomURL string) error
}

func addressOf(u *models.User) email.Address {
	return email.Address{Name: u.FullName(), Email: u.Email}
}
