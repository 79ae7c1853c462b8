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
)

// UserService defines the interface for user operations
type UserService interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetMe(ctx context.Context) (*models.User, error)
	ListUsers(ctx context.Context, q dto.UserListQuery) (*dto.PageResponse[models.User], error)
	UpdateUser(ctx context.Context, id int64, req *dto.UpdateUserRequest) (*models.User, error)
	DeactivateUser(ctx context.Context, id int64) error
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo UserStore
	logger   zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo UserStore, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// CreateUser adds a user to the caller's establishment
func (s *userServiceImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	establishmentID, err := auth.TenantScope(p, req.EstablishmentID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanManageEstablishment(p, establishmentID); err != nil {
		return nil, err
	}

	role := models.Role(req.Role)
	if !role.Valid() || role == models.RoleSuperAdmin {
		return nil, apperrors.NewValidationError("role", "role must be ADMIN, TRAINER or STUDENT")
	}
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" {
		return nil, apperrors.NewValidationError("email", "email cannot be empty")
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, apperrors.NewValidationError("firstName", "first and last name are required")
	}

	user := &models.User{
		EstablishmentID: &establishmentID,
		Email:           emailAddr,
		FirstName:       firstName,
		LastName:        lastName,
		Role:            role,
		IsActive:        true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("userId", user.ID).
		Int64("establishmentId", establishmentID).
		Str("role", string(role)).
		Msg("User created")
	return user, nil
}

// GetUser returns a user of the caller's establishment
func (s *userServiceImpl) GetUser(ctx context.Context, id int64) (*models.User, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == p.UserID {
		return user, nil
	}
	if err := auth.SameTenant(p, tenantOf(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// GetMe returns the caller's profile
func (s *userServiceImpl) GetMe(ctx context.Context) (*models.User, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, p.UserID)
}

// ListUsers returns a filtered page of users
func (s *userServiceImpl) ListUsers(ctx context.Context, q dto.UserListQuery) (*dto.PageResponse[models.User], error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	establishmentID, err := auth.TenantScope(p, q.EstablishmentID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanTeach(p, establishmentID); err != nil {
		return nil, err
	}

	page, size := helpers.NormalizePage(q.Page, q.Size)
	filter := models.UserFilter{
		EstablishmentID: &establishmentID,
		Search:          strings.TrimSpace(q.Search),
		ActiveOnly:      q.ActiveOnly,
		Page:            page,
		PageSize:        size,
	}
	if q.Role != "" {
		role := models.Role(q.Role)
		filter.Role = &role
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return dto.NewPageResponse(users, helpers.NewPaginationInfo(total, page, size)), nil
}

// UpdateUser applies a partial update to a user of the caller's establishment
func (s *userServiceImpl) UpdateUser(ctx context.Context, id int64, req *dto.UpdateUserRequest) (*models.User, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.EstablishmentID == nil && !p.IsSuperAdmin() {
		return nil, apperrors.NewForbiddenError("super administrators can only be changed by super administrators")
	}
	if err := auth.CanManageEstablishment(p, tenantOf(user)); err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if v := strings.TrimSpace(*req.FirstName); v != "" {
			user.FirstName = v
		}
	}
	if req.LastName != nil {
		if v := strings.TrimSpace(*req.LastName); v != "" {
			user.LastName = v
		}
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		if !role.Valid() || role == models.RoleSuperAdmin {
			return nil, apperrors.NewValidationError("role", "role must be ADMIN, TRAINER or STUDENT")
		}
		user.Role = role
	}
	if req.IsActive != nil {
		if !*req.IsActive && user.ID == p.UserID {
			return nil, apperrors.NewBadRequestError("you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeactivateUser disables a user account
func (s *userServiceImpl) DeactivateUser(ctx context.Context, id int64) error {
	inactive := false
	if _, err := s.UpdateUser(ctx, id, &dto.UpdateUserRequest{IsActive: &inactive}); err != nil {
		return err
	}
	s.logger.Info().Int64("userId", id).Msg("User deactivated")
	return nil
}

func tenantOf(u *models.User) int64 {
	if u.EstablishmentID == nil {
		return 0
	}
	return *u.EstablishmentID
}
