package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
	"github.com/yigit/formatrack/internal/pkg/validation"
)

// EstablishmentService defines the operations on tenants
type EstablishmentService interface {
	CreateEstablishment(ctx context.Context, req *dto.CreateEstablishmentRequest) (*models.Establishment, error)
	GetEstablishment(ctx context.Context, id int64) (*models.Establishment, error)
	GetOwnEstablishment(ctx context.Context) (*models.Establishment, error)
	ListEstablishments(ctx context.Context, activeOnly bool, q dto.PageQuery) (*dto.PageResponse[models.Establishment], error)
	UpdateEstablishment(ctx context.Context, id int64, req *dto.UpdateEstablishmentRequest) (*models.Establishment, error)
	DeactivateEstablishment(ctx context.Context, id int64) error
}

type establishmentServiceImpl struct {
	repo   EstablishmentStore
	logger zerolog.Logger
}

// NewEstablishmentService creates a new establishment service
func NewEstablishmentService(repo EstablishmentStore, logger zerolog.Logger) EstablishmentService {
	return &establishmentServiceImpl{repo: repo, logger: logger}
}

func requireSuperAdmin(ctx context.Context) (auth.Principal, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return p, err
	}
	if !p.IsSuperAdmin() {
		return p, apperrors.NewForbiddenError("super administrator role required")
	}
	return p, nil
}

// CreateEstablishment registers a new tenant
func (s *establishmentServiceImpl) CreateEstablishment(ctx context.Context, req *dto.CreateEstablishmentRequest) (*models.Establishment, error) {
	if _, err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "name cannot be empty")
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = validation.Slugify(name)
	}
	if !validation.IsValidSlug(slug) {
		return nil, apperrors.NewValidationError("slug", "slug must be lowercase letters, digits and dashes")
	}

	e := &models.Establishment{
		Name:         name,
		Slug:         slug,
		ContactEmail: req.ContactEmail,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("establishmentId", e.ID).Str("slug", e.Slug).Msg("Establishment created")
	return e, nil
}

// GetEstablishment returns an establishment the caller belongs to
func (s *establishmentServiceImpl) GetEstablishment(ctx context.Context, id int64) (*models.Establishment, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.SameTenant(p, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// GetOwnEstablishment returns the caller's establishment
func (s *establishmentServiceImpl) GetOwnEstablishment(ctx context.Context) (*models.Establishment, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if p.EstablishmentID == 0 {
		return nil, apperrors.ErrEstablishmentNotFound
	}
	return s.repo.GetByID(ctx, p.EstablishmentID)
}

// ListEstablishments lists every tenant
func (s *establishmentServiceImpl) ListEstablishments(ctx context.Context, activeOnly bool, q dto.PageQuery) (*dto.PageResponse[models.Establishment], error) {
	if _, err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	page, size := helpers.NormalizePage(q.Page, q.Size)
	items, total, err := s.repo.List(ctx, activeOnly, page, size)
	if err != nil {
		return nil, fmt.Errorf("error listing establishments: %w", err)
	}
	return dto.NewPageResponse(items, helpers.NewPaginationInfo(total, page, size)), nil
}

// UpdateEstablishment applies a partial update
func (s *establishmentServiceImpl) UpdateEstablishment(ctx context.Context, id int64, req *dto.UpdateEstablishmentRequest) (*models.Establishment, error) {
	if _, err := requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name", "name cannot be empty")
		}
		e.Name = name
	}
	if req.Slug != nil {
		if !validation.IsValidSlug(*req.Slug) {
			return nil, apperrors.NewValidationError("slug", "slug must be lowercase letters, digits and dashes")
		}
		e.Slug = *req.Slug
	}
	if req.ContactEmail != nil {
		e.ContactEmail = req.ContactEmail
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeactivateEstablishment marks a tenant inactive
func (s *establishmentServiceImpl) DeactivateEstablishment(ctx context.Context, id int64) error {
	inactive := false
	if _, err := s.UpdateEstablishment(ctx, id, &dto.UpdateEstablishmentRequest{IsActive: &inactive}); err != nil {
		return err
	}
	s.logger.Info().Int64("establishmentId", id).Msg("Establishment deactivated")
	return nil
}
