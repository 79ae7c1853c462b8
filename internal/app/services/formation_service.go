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
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

// FormationService defines the operations on formations, their modules and participants
type FormationService interface {
	CreateFormation(ctx context.Context, req *dto.CreateFormationRequest) (*models.Formation, error)
	GetFormation(ctx context.Context, id int64) (*models.Formation, error)
	ListFormations(ctx context.Context, q dto.FormationListQuery) (*dto.PageResponse[models.Formation], error)
	UpdateFormation(ctx context.Context, id int64, req *dto.UpdateFormationRequest) (*models.Formation, error)
	DeleteFormation(ctx context.Context, id int64) error

	AddModule(ctx context.Context, formationID int64, req *dto.CreateModuleRequest) (*models.FormationModule, error)
	ListModules(ctx context.Context, formationID int64) ([]models.FormationModule, error)
	UpdateModule(ctx context.Context, moduleID int64, req *dto.UpdateModuleRequest) (*models.FormationModule, error)
	DeleteModule(ctx context.Context, moduleID int64) error
	ReorderModules(ctx context.Context, formationID int64, moduleIDs []int64) ([]models.FormationModule, error)

	Enroll(ctx context.Context, formationID int64, req *dto.EnrollRequest) (*models.FormationParticipant, error)
	Unenroll(ctx context.Context, formationID, userID int64) error
	ListParticipants(ctx context.Context, formationID int64) ([]models.FormationParticipant, error)
}

type formationServiceImpl struct {
	formations FormationStore
	users      UserDirectory
	logger     zerolog.Logger
}

// NewFormationService creates a new formation service
func NewFormationService(formations FormationStore, users UserDirectory, logger zerolog.Logger) FormationService {
	return &formationServiceImpl{formations: formations, users: users, logger: logger}
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperrors.NewValidationError("endDate", "end date must not be before start date")
	}
	return nil
}

// CreateFormation creates a formation. A trainer creating one is enrolled as its trainer.
func (s *formationServiceImpl) CreateFormation(ctx context.Context, req *dto.CreateFormationRequest) (*models.Formation, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	establishmentID, err := auth.TenantScope(p, req.EstablishmentID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanTeach(p, establishmentID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	status := models.FormationDraft
	if req.Status != "" {
		status = models.FormationStatus(req.Status)
	}

	f := &models.Formation{
		EstablishmentID: establishmentID,
		Title:           title,
		Description:     req.Description,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Status:          status,
		CreatedBy:       &p.UserID,
	}
	if err := s.formations.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("error creating formation: %w", err)
	}

	if p.Role == models.RoleTrainer {
		err := s.formations.AddParticipant(ctx, &models.FormationParticipant{
			FormationID: f.ID,
			UserID:      p.UserID,
			Role:        models.ParticipantTrainer,
		})
		if err != nil {
			return nil, fmt.Errorf("error enrolling formation author: %w", err)
		}
	}

	s.logger.Info().Int64("formationId", f.ID).Int64("establishmentId", establishmentID).Msg("Formation created")
	return f, nil
}

// GetFormation returns a formation visible to the caller
func (s *formationServiceImpl) GetFormation(ctx context.Context, id int64) (*models.Formation, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return formationFor(ctx, s.formations, p, id)
}

// ListFormations lists the formations of the establishment. Students only see theirs.
func (s *formationServiceImpl) ListFormations(ctx context.Context, q dto.FormationListQuery) (*dto.PageResponse[models.Formation], error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	establishmentID, err := auth.TenantScope(p, q.EstablishmentID)
	if err != nil {
		return nil, err
	}

	page, size := helpers.NormalizePage(q.Page, q.Size)
	filter := models.FormationFilter{
		EstablishmentID: establishmentID,
		Search:          strings.TrimSpace(q.Search),
		Page:            page,
		PageSize:        size,
	}
	if q.Status != "" {
		status := models.FormationStatus(q.Status)
		filter.Status = &status
	}
	if q.Mine || p.Role == models.RoleStudent {
		filter.ParticipantID = &p.UserID
	}

	items, total, err := s.formations.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing formations: %w", err)
	}
	return dto.NewPageResponse(items, helpers.NewPaginationInfo(total, page, size)), nil
}

// UpdateFormation applies a partial update
func (s *formationServiceImpl) UpdateFormation(ctx context.Context, id int64, req *dto.UpdateFormationRequest) (*models.Formation, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, err := teachableFormation(ctx, s.formations, p, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title", "title cannot be empty")
		}
		f.Title = title
	}
	if req.Description != nil {
		f.Description = req.Description
	}
	if req.StartDate != nil {
		f.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		f.EndDate = req.EndDate
	}
	if req.Status != nil {
		f.Status = models.FormationStatus(*req.Status)
	}
	if err := validateDates(f.StartDate, f.EndDate); err != nil {
		return nil, err
	}

	if err := s.formations.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFormation removes a formation and everything attached to it
func (s *formationServiceImpl) DeleteFormation(ctx context.Context, id int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	f, err := s.formations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CanManageEstablishment(p, f.EstablishmentID); err != nil {
		return err
	}
	if err := s.formations.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("formationId", id).Msg("Formation deleted")
	return nil
}

// AddModule appends a module to a formation
func (s *formationServiceImpl) AddModule(ctx context.Context, formationID int64, req *dto.CreateModuleRequest) (*models.FormationModule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := teachableFormation(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}

	m := &models.FormationModule{
		FormationID:     formationID,
		Title:           title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.formations.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListModules returns the modules of a formation in order
func (s *formationServiceImpl) ListModules(ctx context.Context, formationID int64) ([]models.FormationModule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	return s.formations.ListModules(ctx, formationID)
}

func (s *formationServiceImpl) teachableModule(ctx context.Context, moduleID int64) (*models.FormationModule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.formations.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if _, err := teachableFormation(ctx, s.formations, p, m.FormationID); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateModule applies a partial update to a module
func (s *formationServiceImpl) UpdateModule(ctx context.Context, moduleID int64, req *dto.UpdateModuleRequest) (*models.FormationModule, error) {
	m, err := s.teachableModule(ctx, moduleID)
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
	if req.DurationMinutes != nil {
		m.DurationMinutes = *req.DurationMinutes
	}
	if err := s.formations.UpdateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteModule removes a module
func (s *formationServiceImpl) DeleteModule(ctx context.Context, moduleID int64) error {
	m, err := s.teachableModule(ctx, moduleID)
	if err != nil {
		return err
	}
	return s.formations.DeleteModule(ctx, m)
}

// ReorderModules sets positions 1..n in the order of moduleIDs
func (s *formationServiceImpl) ReorderModules(ctx context.Context, formationID int64, moduleIDs []int64) ([]models.FormationModule, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := teachableFormation(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	if err := s.formations.ReorderModules(ctx, formationID, moduleIDs); err != nil {
		return nil, err
	}
	return s.formations.ListModules(ctx, formationID)
}

// Enroll adds a user of the same establishment to a formation
func (s *formationServiceImpl) Enroll(ctx context.Context, formationID int64, req *dto.EnrollRequest) (*models.FormationParticipant, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, err := teachableFormation(ctx, s.formations, p, formationID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if tenantOf(user) != f.EstablishmentID {
		return nil, apperrors.ErrTenantMismatch
	}
	if !user.IsActive {
		return nil, apperrors.NewBadRequestError("inactive users cannot be enrolled")
	}

	role := models.ParticipantStudent
	if req.Role != "" {
		role = models.ParticipantRole(req.Role)
	}
	if role == models.ParticipantTrainer && user.Role == models.RoleStudent {
		return nil, apperrors.NewValidationError("role", "a student cannot be enrolled as trainer")
	}

	participant := &models.FormationParticipant{
		FormationID: formationID,
		UserID:      user.ID,
		Role:        role,
		User:        user,
	}
	if err := s.formations.AddParticipant(ctx, participant); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("formationId", formationID).Int64("userId", user.ID).Str("role", string(role)).Msg("User enrolled")
	return participant, nil
}

// Unenroll removes a user from a formation
func (s *formationServiceImpl) Unenroll(ctx context.Context, formationID, userID int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	if _, err := teachableFormation(ctx, s.formations, p, formationID); err != nil {
		return err
	}
	return s.formations.RemoveParticipant(ctx, formationID, userID)
}

// ListParticipants returns the enrollments of a formation
func (s *formationServiceImpl) ListParticipants(ctx context.Context, formationID int64) ([]models.FormationParticipant, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	return s.formations.ListParticipants(ctx, formationID)
}
