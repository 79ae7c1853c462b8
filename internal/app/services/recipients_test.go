package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

func TestResolve_UsersDeduplicatesAndDropsSender(t *testing.T) {
	fx := newFixture()
	spec := models.RecipientSpec{
		Type:    models.RecipientUsers,
		UserIDs: []int64{fx.bob.ID, fx.alice.ID, fx.bob.ID, fx.trainer.ID},
	}

	got, err := fx.resolver().Resolve(context.Background(), estA, fx.trainer.ID, spec)

	require.NoError(t, err)
	assert.Equal(t, []int64{fx.alice.ID, fx.bob.ID}, ids(got))
}

func TestResolve_SkipsInactiveAndOtherTenants(t *testing.T) {
	fx := newFixture()
	fx.deactivate(fx.bob)
	spec := models.RecipientSpec{
		Type:    models.RecipientUsers,
		UserIDs: []int64{fx.alice.ID, fx.bob.ID, fx.outsider.ID},
	}

	got, err := fx.resolver().Resolve(context.Background(), estA, fx.admin.ID, spec)

	require.NoError(t, err)
	assert.Equal(t, []int64{fx.alice.ID}, ids(got))
}

func TestResolve_FormationWithRole(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	all, err := fx.resolver().Resolve(ctx, estA, fx.admin.ID, models.RecipientSpec{
		Type:        models.RecipientFormation,
		FormationID: &fx.formation.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{fx.trainer.ID, fx.alice.ID, fx.bob.ID}, ids(all))

	students, err := fx.resolver().Resolve(ctx, estA, fx.admin.ID, models.RecipientSpec{
		Type:        models.RecipientFormation,
		FormationID: &fx.formation.ID,
		Role:        helpers.Ptr(models.RoleStudent),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{fx.alice.ID, fx.bob.ID}, ids(students))
}

func TestResolve_Role(t *testing.T) {
	fx := newFixture()

	got, err := fx.resolver().Resolve(context.Background(), estA, fx.alice.ID, models.RecipientSpec{
		Type: models.RecipientRole,
		Role: helpers.Ptr(models.RoleStudent),
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{fx.bob.ID, fx.carol.ID}, ids(got))
}

func TestValidate_Rejections(t *testing.T) {
	fx := newFixture()
	foreign := fx.formations.add(estB, "Ailleurs")

	tests := []struct {
		name string
		spec models.RecipientSpec
		want error
	}{
		{"empty users", models.RecipientSpec{Type: models.RecipientUsers}, apperrors.ErrInvalidRecipientSet},
		{"bad user id", models.RecipientSpec{Type: models.RecipientUsers, UserIDs: []int64{0}}, apperrors.ErrInvalidRecipientSet},
		{"formation without id", models.RecipientSpec{Type: models.RecipientFormation}, apperrors.ErrInvalidRecipientSet},
		{"formation of another tenant", models.RecipientSpec{Type: models.RecipientFormation, FormationID: &foreign.ID}, apperrors.ErrTenantMismatch},
		{"formation admin role", models.RecipientSpec{Type: models.RecipientFormation, FormationID: &fx.formation.ID, Role: helpers.Ptr(models.RoleAdmin)}, apperrors.ErrInvalidRecipientSet},
		{"super admin role", models.RecipientSpec{Type: models.RecipientRole, Role: helpers.Ptr(models.RoleSuperAdmin)}, apperrors.ErrInvalidRecipientSet},
		{"unknown type", models.RecipientSpec{Type: "everyone"}, apperrors.ErrInvalidRecipientSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.resolver().Validate(context.Background(), estA, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
