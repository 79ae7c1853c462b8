package auth

import (
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

// SameTenant returns ErrTenantMismatch unless the caller belongs to establishmentID.
// SUPER_ADMIN passes every tenant check.
func SameTenant(p Principal, establishmentID int64) error {
	if p.IsSuperAdmin() {
		return nil
	}
	if p.EstablishmentID == 0 || p.EstablishmentID != establishmentID {
		return apperrors.ErrTenantMismatch
	}
	return nil
}

// CanManageEstablishment allows admins of the establishment and SUPER_ADMIN
func CanManageEstablishment(p Principal, establishmentID int64) error {
	if err := SameTenant(p, establishmentID); err != nil {
		return err
	}
	if !p.HasRole(models.RoleSuperAdmin, models.RoleAdmin) {
		return apperrors.NewForbiddenError("establishment administrator role required")
	}
	return nil
}

// CanTeach allows admins and trainers of the establishment
func CanTeach(p Principal, establishmentID int64) error {
	if err := SameTenant(p, establishmentID); err != nil {
		return err
	}
	if !p.HasRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTrainer) {
		return apperrors.NewForbiddenError("trainer or administrator role required")
	}
	return nil
}

// TenantScope returns the establishment a listing is restricted to. SUPER_ADMIN
// may pick any establishment with requested; others are always pinned to their own.
func TenantScope(p Principal, requested *int64) (int64, error) {
	if p.IsSuperAdmin() {
		if requested == nil || *requested <= 0 {
			return 0, apperrors.NewValidationError("establishmentId", "establishmentId is required for super administrators")
		}
		return *requested, nil
	}
	if p.EstablishmentID == 0 {
		return 0, apperrors.ErrTenantMismatch
	}
	return p.EstablishmentID, nil
}
