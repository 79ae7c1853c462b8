package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

// maxSlotWindow bounds window listings
const maxSlotWindow = 366 * 24 * time.Hour

// ScheduleService defines the operations on schedules and their slots
type ScheduleService interface {
	CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*models.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	ListSchedules(ctx context.Context, formationID int64) ([]models.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error

	AddSlot(ctx context.Context, scheduleID int64, req *dto.CreateSlotRequest) (*models.ScheduleSlot, error)
	UpdateSlot(ctx context.Context, slotID int64, req *dto.UpdateSlotRequest) (*models.ScheduleSlot, error)
	DeleteSlot(ctx context.Context, slotID int64) error
	ListSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleSlot, error)
	FormationSlots(ctx context.Context, formationID int64, q dto.SlotWindowQuery) ([]models.ScheduleSlot, error)
	MySlots(ctx context.Context, q dto.SlotWindowQuery) ([]models.ScheduleSlot, error)
}

type scheduleServiceImpl struct {
	schedules  ScheduleStore
	formations FormationStore
	users      UserDirectory
	meetings   MeetingStore
	logger     zerolog.Logger
}

// NewScheduleService creates a new schedule service
func NewScheduleService(schedules ScheduleStore, formations FormationStore, users UserDirectory, meetings MeetingStore, logger zerolog.Logger) ScheduleService {
	return &scheduleServiceImpl{schedules: schedules, formations: formations, users: users, meetings: meetings, logger: logger}
}

// CreateSchedule adds a schedule to a formation
func (s *scheduleServiceImpl) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*models.Schedule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, err := teachableFormation(ctx, s.formations, p, req.FormationID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}

	sch := &models.Schedule{EstablishmentID: f.EstablishmentID, FormationID: f.ID, Title: title}
	if err := s.schedules.Create(ctx, sch); err != nil {
		return nil, fmt.Errorf("error creating schedule: %w", err)
	}
	return sch, nil
}

// GetSchedule returns a schedule of a formation visible to the caller
func (s *scheduleServiceImpl) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sch, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, sch.FormationID); err != nil {
		return nil, err
	}
	return sch, nil
}

// ListSchedules returns the schedules of a formation
func (s *scheduleServiceImpl) ListSchedules(ctx context.Context, formationID int64) ([]models.Schedule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	return s.schedules.ListByFormation(ctx, formationID)
}

func (s *scheduleServiceImpl) teachableSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sch, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanTeach(p, sch.EstablishmentID); err != nil {
		return nil, err
	}
	return sch, nil
}

// DeleteSchedule removes a schedule and its slots
func (s *scheduleServiceImpl) DeleteSchedule(ctx context.Context, id int64) error {
	if _, err := s.teachableSchedule(ctx, id); err != nil {
		return err
	}
	return s.schedules.Delete(ctx, id)
}

// checkSlot validates a slot against its schedule and the other slots of it
func (s *scheduleServiceImpl) checkSlot(ctx context.Context, sch *models.Schedule, slot *models.ScheduleSlot) error {
	if !slot.EndsAt.After(slot.StartsAt) {
		return apperrors.NewValidationError("endsAt", "slot end must be after its start")
	}
	if slot.ModuleID != nil {
		m, err := s.formations.GetModule(ctx, *slot.ModuleID)
		if err != nil {
			return err
		}
		if m.FormationID != sch.FormationID {
			return apperrors.NewValidationError("moduleId", "module belongs to another formation")
		}
	}
	if slot.TrainerID != nil {
		trainer, err := s.users.GetByID(ctx, *slot.TrainerID)
		if err != nil {
			return err
		}
		if tenantOf(trainer) != sch.EstablishmentID {
			return apperrors.ErrTenantMismatch
		}
		if trainer.Role != models.RoleTrainer && trainer.Role != models.RoleAdmin {
			return apperrors.NewValidationError("trainerId", "assigned user is not a trainer")
		}
	}
	if slot.MeetingID != nil {
		meeting, err := s.meetings.GetByID(ctx, *slot.MeetingID)
		if err != nil {
			return err
		}
		if meeting.EstablishmentID != sch.EstablishmentID {
			return apperrors.ErrTenantMismatch
		}
	}

	existing, err := s.schedules.ListSlots(ctx, sch.ID)
	if err != nil {
		return fmt.Errorf("error listing slots: %w", err)
	}
	for i := range existing {
		if existing[i].ID != slot.ID && existing[i].Overlaps(slot.StartsAt, slot.EndsAt) {
			return apperrors.ErrSlotOverlap
		}
	}
	return nil
}

// AddSlot adds a session to a schedule
func (s *scheduleServiceImpl) AddSlot(ctx context.Context, scheduleID int64, req *dto.CreateSlotRequest) (*models.ScheduleSlot, error) {
	sch, err := s.teachableSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	slot := &models.ScheduleSlot{
		ScheduleID: scheduleID,
		ModuleID:   req.ModuleID,
		TrainerID:  req.TrainerID,
		MeetingID:  req.MeetingID,
		StartsAt:   req.StartsAt.UTC(),
		EndsAt:     req.EndsAt.UTC(),
		Location:   req.Location,
		Notes:      req.Notes,
	}
	if err := s.checkSlot(ctx, sch, slot); err != nil {
		return nil, err
	}
	if err := s.schedules.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	slot.FormationID = sch.FormationID
	return slot, nil
}

// UpdateSlot applies a partial update to a slot
func (s *scheduleServiceImpl) UpdateSlot(ctx context.Context, slotID int64, req *dto.UpdateSlotRequest) (*models.ScheduleSlot, error) {
	slot, err := s.schedules.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	sch, err := s.teachableSchedule(ctx, slot.ScheduleID)
	if err != nil {
		return nil, err
	}

	if req.StartsAt != nil {
		slot.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		slot.EndsAt = req.EndsAt.UTC()
	}
	if req.ModuleID != nil {
		slot.ModuleID = req.ModuleID
	}
	if req.TrainerID != nil {
		slot.TrainerID = req.TrainerID
	}
	if req.MeetingID != nil {
		slot.MeetingID = req.MeetingID
	}
	if req.Location != nil {
		slot.Location = req.Location
	}
	if req.Notes != nil {
		slot.Notes = req.Notes
	}

	if err := s.checkSlot(ctx, sch, slot); err != nil {
		return nil, err
	}
	if err := s.schedules.UpdateSlot(ctx, slot); err != nil {
		return nil, err
	}
	slot.FormationID = sch.FormationID
	return slot, nil
}

// DeleteSlot removes a slot
func (s *scheduleServiceImpl) DeleteSlot(ctx context.Context, slotID int64) error {
	slot, err := s.schedules.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if _, err := s.teachableSchedule(ctx, slot.ScheduleID); err != nil {
		return err
	}
	return s.schedules.DeleteSlot(ctx, slotID)
}

// ListSlots returns the slots of a schedule in time order
func (s *scheduleServiceImpl) ListSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleSlot, error) {
	if _, err := s.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.schedules.ListSlots(ctx, scheduleID)
}

func slotWindow(q dto.SlotWindowQuery) (models.SlotWindow, error) {
	if !q.To.After(q.From) {
		return models.SlotWindow{}, apperrors.NewValidationError("to", "to must be after from")
	}
	if q.To.Sub(q.From) > maxSlotWindow {
		return models.SlotWindow{}, apperrors.NewValidationError("to", "window cannot exceed one year")
	}
	return models.SlotWindow{From: q.From.UTC(), To: q.To.UTC()}, nil
}

// FormationSlots returns the slots of a formation inside a window
func (s *scheduleServiceImpl) FormationSlots(ctx context.Context, formationID int64, q dto.SlotWindowQuery) ([]models.ScheduleSlot, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, err := formationFor(ctx, s.formations, p, formationID)
	if err != nil {
		return nil, err
	}
	w, err := slotWindow(q)
	if err != nil {
		return nil, err
	}
	w.FormationID = &f.ID
	return s.schedules.ListSlotsInWindow(ctx, f.EstablishmentID, w)
}

// MySlots returns the slots the caller attends or teaches inside a window
func (s *scheduleServiceImpl) MySlots(ctx context.Context, q dto.SlotWindowQuery) ([]models.ScheduleSlot, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if p.EstablishmentID == 0 {
		return []models.ScheduleSlot{}, nil
	}
	w, err := slotWindow(q)
	if err != nil {
		return nil, err
	}
	w.ParticipantID = &p.UserID
	return s.schedules.ListSlotsInWindow(ctx, p.EstablishmentID, w)
}
