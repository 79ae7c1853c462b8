package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

// formationFor loads a formation the caller may see. Students must be enrolled.
func formationFor(ctx context.Context, formations FormationReader, p auth.Principal, id int64) (*models.Formation, error) {
	f, err := formations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.SameTenant(p, f.EstablishmentID); err != nil {
		return nil, err
	}
	if p.Role == models.RoleStudent {
		if _, err := formations.GetParticipant(ctx, f.ID, p.UserID); err != nil {
			if errors.Is(err, apperrors.ErrNotParticipant) {
				return nil, apperrors.NewForbiddenError("you are not enrolled in this formation")
			}
			return nil, fmt.Errorf("error checking enrollment: %w", err)
		}
	}
	return f, nil
}

// teachableFormation loads a formation the caller may modify
func teachableFormation(ctx context.Context, formations FormationReader, p auth.Principal, id int64) (*models.Formation, error) {
	f, err := formations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanTeach(p, f.EstablishmentID); err != nil {
		return nil, err
	}
	return f, nil
}
