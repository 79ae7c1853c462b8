package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/dberrors"
)

var virtualClassColumns = []string{
	"id", "establishment_id", "formation_id", "title", "provider", "room_name", "room_url",
	"access_code_hash", "starts_at", "ends_at", "created_by", "created_at",
}

// VirtualClassRepository handles virtual class rows
type VirtualClassRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewVirtualClassRepository creates a new VirtualClassRepository
func NewVirtualClassRepository(db *pgxpool.Pool) *VirtualClassRepository {
	return &VirtualClassRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanVirtualClass(row pgx.Row, v *models.VirtualClass) error {
	return row.Scan(&v.ID, &v.EstablishmentID, &v.FormationID, &v.Title, &v.Provider, &v.RoomName, &v.RoomURL,
		&v.AccessCodeHash, &v.StartsAt, &v.EndsAt, &v.CreatedBy, &v.CreatedAt)
}

// Create inserts a virtual class
func (r *VirtualClassRepository) Create(ctx context.Context, v *models.VirtualClass) error {
	query, args, err := r.sb.Insert("virtual_classes").
		Columns("establishment_id", "formation_id", "title", "provider", "room_name", "room_url",
			"access_code_hash", "starts_at", "ends_at", "created_by").
		Values(v.EstablishmentID, v.FormationID, v.Title, v.Provider, v.RoomName, v.RoomURL,
			v.AccessCodeHash, v.StartsAt, v.EndsAt, v.CreatedBy).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create virtual class query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&v.ID, &v.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "virtual_classes_room_name_key") {
			return apperrors.NewConflictError("room name already in use")
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrFormationNotFound
		}
		return fmt.Errorf("error creating virtual class: %w", err)
	}
	return nil
}

// GetByID retrieves a virtual class by ID
func (r *VirtualClassRepository) GetByID(ctx context.Context, id int64) (*models.VirtualClass, error) {
	query, args, err := r.sb.Select(virtualClassColumns...).From("virtual_classes").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get virtual class query: %w", err)
	}

	var v models.VirtualClass
	if err := scanVirtualClass(r.db.QueryRow(ctx, query, args...), &v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrVirtualClassNotFound
		}
		return nil, fmt.Errorf("error getting virtual class: %w", err)
	}
	return &v, nil
}

// ListByFormation returns the virtual classes of a formation
func (r *VirtualClassRepository) ListByFormation(ctx context.Context, formationID int64) ([]models.VirtualClass, error) {
	query, args, err := r.sb.Select(virtualClassColumns...).
		From("virtual_classes").
		Where(squirrel.Eq{"formation_id": formationID}).
		OrderBy("starts_at DESC NULLS LAST", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list virtual classes query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing virtual classes: %w", err)
	}
	defer rows.Close()

	items := []models.VirtualClass{}
	for rows.Next() {
		var v models.VirtualClass
		if err := scanVirtualClass(rows, &v); err != nil {
			return nil, fmt.Errorf("error scanning virtual class: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// Delete removes a virtual class with its peers and signals
func (r *VirtualClassRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM virtual_classes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting virtual class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrVirtualClassNotFound
	}
	return nil
}
