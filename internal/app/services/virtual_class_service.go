package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	pkgauth "github.com/yigit/formatrack/internal/pkg/auth"
	"github.com/yigit/formatrack/internal/pkg/video"
)

// VirtualClassService defines the operations on virtual classes
type VirtualClassService interface {
	CreateVirtualClass(ctx context.Context, req *dto.CreateVirtualClassRequest) (*models.VirtualClass, error)
	GetVirtualClass(ctx context.Context, id int64) (*models.VirtualClass, error)
	ListVirtualClasses(ctx context.Context, formationID int64) ([]models.VirtualClass, error)
	DeleteVirtualClass(ctx context.Context, id int64) error
	Join(ctx context.Context, id int64, accessCode string) (*dto.JoinVirtualClassResponse, error)
}

type virtualClassServiceImpl struct {
	classes    VirtualClassStore
	formations FormationStore
	provider   video.Provider
	signaling  SignalingService
	notifier   Notifications
	logger     zerolog.Logger
}

// NewVirtualClassService creates a new virtual class service. notifier may be nil.
func NewVirtualClassService(
	classes VirtualClassStore,
	formations FormationStore,
	provider video.Provider,
	signaling SignalingService,
	notifier Notifications,
	logger zerolog.Logger,
) VirtualClassService {
	return &virtualClassServiceImpl{
		classes:    classes,
		formations: formations,
		provider:   provider,
		signaling:  signaling,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateVirtualClass provisions a video room for a formation and invites its participants
func (s *virtualClassServiceImpl) CreateVirtualClass(ctx context.Context, req *dto.CreateVirtualClassRequest) (*models.VirtualClass, error) {
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
	if req.StartsAt != nil && req.EndsAt != nil && !req.EndsAt.After(*req.StartsAt) {
		return nil, apperrors.NewValidationError("endsAt", "class end must be after its start")
	}

	var codeHash *string
	if req.AccessCode != nil && *req.AccessCode != "" {
		hashed, err := pkgauth.HashSecret(*req.AccessCode)
		if err != nil {
			return nil, fmt.Errorf("error hashing access code: %w", err)
		}
		codeHash = &hashed
	}

	room, err := s.provider.CreateRoom(ctx, uuid.New().String())
	if err != nil {
		s.logger.Error().Err(err).Str("provider", s.provider.Name()).Msg("Video room provisioning failed")
		return nil, fmt.Errorf("%w: %w", apperrors.ErrProviderUnavailable, err)
	}

	vc := &models.VirtualClass{
		EstablishmentID: f.EstablishmentID,
		FormationID:     f.ID,
		Title:           title,
		Provider:        s.provider.Name(),
		RoomName:        room.Name,
		RoomURL:         room.URL,
		AccessCodeHash:  codeHash,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		CreatedBy:       &p.UserID,
	}
	if err := s.classes.Create(ctx, vc); err != nil {
		if delErr := s.provider.DeleteRoom(ctx, room.Name); delErr != nil {
			s.logger.Warn().Err(delErr).Str("room", room.Name).Msg("Failed to release orphan video room")
		}
		return nil, fmt.Errorf("error creating virtual class: %w", err)
	}

	s.logger.Info().Int64("classId", vc.ID).Str("room", vc.RoomName).Msg("Virtual class created")
	s.invite(ctx, vc)
	return vc, nil
}

func (s *virtualClassServiceImpl) invite(ctx context.Context, vc *models.VirtualClass) {
	if s.notifier == nil {
		return
	}
	participants, err := s.formations.ListParticipants(ctx, vc.FormationID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("classId", vc.ID).Msg("Could not list participants to invite")
		return
	}
	failed := 0
	for _, fp := range participants {
		if fp.User == nil || !fp.User.IsActive || (vc.CreatedBy != nil && fp.UserID == *vc.CreatedBy) {
			continue
		}
		if err := s.notifier.VirtualClassScheduled(ctx, addressOf(fp.User), vc.Title, vc.StartsAt, vc.RoomURL); err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn().Int64("classId", vc.ID).Int("failed", failed).Msg("Some virtual class invitations were not sent")
	}
}

// GetVirtualClass returns a class of a formation visible to the caller
func (s *virtualClassServiceImpl) GetVirtualClass(ctx context.Context, id int64) (*models.VirtualClass, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	vc, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, vc.FormationID); err != nil {
		return nil, err
	}
	return vc, nil
}

// ListVirtualClasses returns the classes of a formation
func (s *virtualClassServiceImpl) ListVirtualClasses(ctx context.Context, formationID int64) ([]models.VirtualClass, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	return s.classes.ListByFormation(ctx, formationID)
}

// DeleteVirtualClass removes a class, then its provider room best effort
func (s *virtualClassServiceImpl) DeleteVirtualClass(ctx context.Context, id int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	vc, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CanTeach(p, vc.EstablishmentID); err != nil {
		return err
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.provider.DeleteRoom(ctx, vc.RoomName); err != nil {
		s.logger.Warn().Err(err).Str("room", vc.RoomName).Msg("Failed to delete video room")
	}
	return nil
}

// Join checks access to the class and enters the caller as an online peer
func (s *virtualClassServiceImpl) Join(ctx context.Context, id int64, accessCode string) (*dto.JoinVirtualClassResponse, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	vc, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, vc.FormationID); err != nil {
		return nil, err
	}
	// teachers of the establishment skip the code
	if vc.HasAccessCode() && auth.CanTeach(p, vc.EstablishmentID) != nil {
		if accessCode == "" || !pkgauth.CheckSecret(*vc.AccessCodeHash, accessCode) {
			return nil, apperrors.ErrInvalidAccessCode
		}
	}

	_, peers, err := s.signaling.Join(ctx, vc.ID)
	if err != nil {
		return nil, err
	}
	return &dto.JoinVirtualClassResponse{Class: vc, RoomURL: vc.RoomURL, Peers: peers}, nil
}
