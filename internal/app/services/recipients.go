package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

// RecipientResolver expands a recipient descriptor to concrete users
type RecipientResolver struct {
	users      UserDirectory
	formations FormationReader
}

// NewRecipientResolver creates a resolver
func NewRecipientResolver(users UserDirectory, formations FormationReader) *RecipientResolver {
	return &RecipientResolver{users: users, formations: formations}
}

// Validate checks the shape of spec and that a referenced formation belongs to establishmentID
func (r *RecipientResolver) Validate(ctx context.Context, establishmentID int64, spec models.RecipientSpec) error {
	switch spec.Type {
	case models.RecipientUsers:
		if len(spec.UserIDs) == 0 {
			return fmt.Errorf("%w: userIds must not be empty", apperrors.ErrInvalidRecipientSet)
		}
		for _, id := range spec.UserIDs {
			if id <= 0 {
				return fmt.Errorf("%w: invalid user id %d", apperrors.ErrInvalidRecipientSet, id)
			}
		}
	case models.RecipientFormation:
		if spec.FormationID == nil || *spec.FormationID <= 0 {
			return fmt.Errorf("%w: formationId is required", apperrors.ErrInvalidRecipientSet)
		}
		if spec.Role != nil {
			if _, err := participantRole(*spec.Role); err != nil {
				return err
			}
		}
		f, err := r.formations.GetByID(ctx, *spec.FormationID)
		if err != nil {
			return err
		}
		if f.EstablishmentID != establishmentID {
			return apperrors.ErrTenantMismatch
		}
	case models.RecipientRole:
		if spec.Role == nil || !spec.Role.Valid() || *spec.Role == models.RoleSuperAdmin {
			return fmt.Errorf("%w: role must be ADMIN, TRAINER or STUDENT", apperrors.ErrInvalidRecipientSet)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", apperrors.ErrInvalidRecipientSet, spec.Type)
	}
	return nil
}

// Resolve returns the active users of establishmentID described by spec, without
// the sender and without duplicates, ordered by ID
func (r *RecipientResolver) Resolve(ctx context.Context, establishmentID, senderID int64, spec models.RecipientSpec) ([]models.User, error) {
	if err := r.Validate(ctx, establishmentID, spec); err != nil {
		return nil, err
	}

	var (
		candidates []models.User
		err        error
	)
	switch spec.Type {
	case models.RecipientUsers:
		candidates, err = r.users.ListActiveByIDs(ctx, establishmentID, spec.UserIDs)
	case models.RecipientFormation:
		var role *models.ParticipantRole
		if spec.Role != nil {
			pr, _ := participantRole(*spec.Role)
			role = &pr
		}
		candidates, err = r.users.ListActiveFormationMembers(ctx, *spec.FormationID, role)
	case models.RecipientRole:
		candidates, err = r.users.ListActiveByRole(ctx, establishmentID, *spec.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("error expanding recipients: %w", err)
	}

	seen := make(map[int64]bool, len(candidates))
	recipients := make([]models.User, 0, len(candidates))
	for _, u := range candidates {
		if u.ID == senderID || seen[u.ID] || !u.IsActive {
			continue
		}
		if u.EstablishmentID == nil || *u.EstablishmentID != establishmentID {
			continue
		}
		seen[u.ID] = true
		recipients = append(recipients, u)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].ID < recipients[j].ID })
	return recipients, nil
}

func participantRole(role models.Role) (models.ParticipantRole, error) {
	switch role {
	case models.RoleStudent:
		return models.ParticipantStudent, nil
	case models.RoleTrainer:
		return models.ParticipantTrainer, nil
	}
	return "", fmt.Errorf("%w: formation role must be STUDENT or TRAINER", apperrors.ErrInvalidRecipientSet)
}

func userIDs(users []models.User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
