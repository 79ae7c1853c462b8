package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/formatrack/internal/app/models"
	appRepos "github.com/yigit/formatrack/internal/app/repositories"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

// Defaults created on development databases
const (
	DemoEstablishmentSlug = "formatrack-demo"
	SuperAdminEmail       = "admin@formatrack.app"
	DemoAdminEmail        = "admin@demo.formatrack.app"
)

// CreateDefaultData creates a demo establishment, a super admin and an admin
// for the demo establishment if they don't exist. Every step is attempted;
// the errors are joined.
func CreateDefaultData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error

	establishmentID, err := ensureEstablishment(ctx, repos.EstablishmentRepository)
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating demo establishment")
		finalErr = errors.Join(finalErr, err)
	}

	superAdmin := &appModels.User{
		Email:     SuperAdminEmail,
		FirstName: "Platform",
		LastName:  "Admin",
		Role:      appModels.RoleSuperAdmin,
		IsActive:  true,
	}
	if err := createUser(ctx, repos.UserRepository, superAdmin); err != nil {
		lgr.Error().Err(err).Msg("Error creating super admin")
		finalErr = errors.Join(finalErr, err)
	}

	if establishmentID > 0 {
		admin := &appModels.User{
			EstablishmentID: helpers.Ptr(establishmentID),
			Email:           DemoAdminEmail,
			FirstName:       "Demo",
			LastName:        "Admin",
			Role:            appModels.RoleAdmin,
			IsActive:        true,
		}
		if err := createUser(ctx, repos.UserRepository, admin); err != nil {
			lgr.Error().Err(err).Msg("Error creating demo admin")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr == nil {
		lgr.Info().Int64("establishmentId", establishmentID).Msg("Default data ready")
	}
	return finalErr
}

func ensureEstablishment(ctx context.Context, repo *appRepos.EstablishmentRepository) (int64, error) {
	demo := &appModels.Establishment{Name: "FormaTrack Demo", Slug: DemoEstablishmentSlug, IsActive: true}
	err := repo.Create(ctx, demo)
	if err == nil {
		return demo.ID, nil
	}
	if !errors.Is(err, apperrors.ErrSlugAlreadyExists) {
		return 0, err
	}

	establishments, _, err := repo.List(ctx, false, 1, 100)
	if err != nil {
		return 0, err
	}
	for _, e := range establishments {
		if e.Slug == DemoEstablishmentSlug {
			return e.ID, nil
		}
	}
	return 0, nil
}

func createUser(ctx context.Context, repo *appRepos.UserRepository, u *appModels.User) error {
	if err := repo.Create(ctx, u); err != nil && !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		return err
	}
	return nil
}
