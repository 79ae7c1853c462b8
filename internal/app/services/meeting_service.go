package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

// MeetingService defines the operations on meetings
type MeetingService interface {
	CreateMeeting(ctx context.Context, req *dto.CreateMeetingRequest) (*models.Meeting, error)
	GetMeeting(ctx context.Context, id int64) (*models.Meeting, error)
	ListMeetings(ctx context.Context, q dto.MeetingListQuery) ([]models.Meeting, error)
	UpdateMeeting(ctx context.Context, id int64, req *dto.UpdateMeetingRequest) (*models.Meeting, error)
	DeleteMeeting(ctx context.Context, id int64) error
}

type meetingServiceImpl struct {
	meetings   MeetingStore
	formations FormationReader
	logger     zerolog.Logger
}

// NewMeetingService creates a new meeting service
func NewMeetingService(meetings MeetingStore, formations FormationReader, logger zerolog.Logger) MeetingService {
	return &meetingServiceImpl{meetings: meetings, formations: formations, logger: logger}
}

func validateMeetingTimes(start, end time.Time) error {
	if !end.After(start) {
		return apperrors.NewValidationError("endsAt", "meeting end must be after its start")
	}
	return nil
}

// CreateMeeting schedules a meeting, optionally attached to a formation
func (s *meetingServiceImpl) CreateMeeting(ctx context.Context, req *dto.CreateMeetingRequest) (*models.Meeting, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var establishmentID int64
	if req.FormationID != nil {
		f, err := teachableFormation(ctx, s.formations, p, *req.FormationID)
		if err != nil {
			return nil, err
		}
		establishmentID = f.EstablishmentID
	} else {
		if establishmentID, err = auth.TenantScope(p, nil); err != nil {
			return nil, err
		}
		if err := auth.CanTeach(p, establishmentID); err != nil {
			return nil, err
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}
	if err := validateMeetingTimes(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}

	m := &models.Meeting{
		EstablishmentID: establishmentID,
		FormationID:     req.FormationID,
		Title:           title,
		Description:     req.Description,
		StartsAt:        req.StartsAt.UTC(),
		EndsAt:          req.EndsAt.UTC(),
		MeetingURL:      req.MeetingURL,
		CreatedBy:       &p.UserID,
	}
	if err := s.meetings.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("meetingId", m.ID).Msg("Meeting created")
	return m, nil
}

func (s *meetingServiceImpl) visibleMeeting(ctx context.Context, p auth.Principal, id int64) (*models.Meeting, error) {
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.SameTenant(p, m.EstablishmentID); err != nil {
		return nil, err
	}
	if m.FormationID != nil && p.Role == models.RoleStudent {
		if _, err := formationFor(ctx, s.formations, p, *m.FormationID); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// GetMeeting returns a meeting
func (s *meetingServiceImpl) GetMeeting(ctx context.Context, id int64) (*models.Meeting, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.visibleMeeting(ctx, p, id)
}

// ListMeetings returns the meetings of the establishment, optionally for one formation and window
func (s *meetingServiceImpl) ListMeetings(ctx context.Context, q dto.MeetingListQuery) ([]models.Meeting, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	establishmentID, err := auth.TenantScope(p, q.EstablishmentID)
	if err != nil {
		return nil, err
	}
	if q.FormationID != nil {
		if _, err := formationFor(ctx, s.formations, p, *q.FormationID); err != nil {
			return nil, err
		}
	}
	if q.From != nil && q.To != nil && !q.To.After(*q.From) {
		return nil, apperrors.NewValidationError("to", "to must be after from")
	}
	return s.meetings.List(ctx, establishmentID, q.FormationID, q.From, q.To)
}

func (s *meetingServiceImpl) teachableMeeting(ctx context.Context, id int64) (*models.Meeting, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanTeach(p, m.EstablishmentID); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMeeting applies a partial update
func (s *meetingServiceImpl) UpdateMeeting(ctx context.Context, id int64, req *dto.UpdateMeetingRequest) (*models.Meeting, error) {
	m, err := s.teachableMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title", "title cannot be empty")
		}
		m.Title = title
	}
	if req.Description != nil {
		m.Description = req.Description
	}
	if req.StartsAt != nil {
		m.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		m.EndsAt = req.EndsAt.UTC()
	}
	if req.MeetingURL != nil {
		m.MeetingURL = req.MeetingURL
	}
	if err := validateMeetingTimes(m.StartsAt, m.EndsAt); err != nil {
		return nil, err
	}
	if err := s.meetings.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMeeting removes a meeting
func (s *meetingServiceImpl) DeleteMeeting(ctx context.Context, id int64) error {
	if _, err := s.teachableMeeting(ctx, id); err != nil {
		return err
	}
	return s.meetings.Delete(ctx, id)
}
