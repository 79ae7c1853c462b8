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
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

var establishmentColumns = []string{"id", "name", "slug", "contact_email", "is_active", "created_at", "updated_at"}

// EstablishmentRepository handles tenant rows
type EstablishmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewEstablishmentRepository creates a new EstablishmentRepository
func NewEstablishmentRepository(db *pgxpool.Pool) *EstablishmentRepository {
	return &EstablishmentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanEstablishment(row pgx.Row, e *models.Establishment) error {
	return row.Scan(&e.ID, &e.Name, &e.Slug, &e.ContactEmail, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
}

// Create inserts an establishment
func (r *EstablishmentRepository) Create(ctx context.Context, e *models.Establishment) error {
	query, args, err := r.sb.Insert("establishments").
		Columns("name", "slug", "contact_email", "is_active").
		Values(e.Name, e.Slug, e.ContactEmail, e.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create establishment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "establishments_slug_key") {
			return apperrors.ErrSlugAlreadyExists
		}
		return fmt.Errorf("error creating establishment: %w", err)
	}
	return nil
}

// GetByID retrieves an establishment by ID
func (r *EstablishmentRepository) GetByID(ctx context.Context, id int64) (*models.Establishment, error) {
	query, args, err := r.sb.Select(establishmentColumns...).
		From("establishments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get establishment query: %w", err)
	}

	var e models.Establishment
	if err := scanEstablishment(r.db.QueryRow(ctx, query, args...), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEstablishmentNotFound
		}
		return nil, fmt.Errorf("error getting establishment: %w", err)
	}
	return &e, nil
}

// List returns a page of establishments ordered by name
func (r *EstablishmentRepository) List(ctx context.Context, activeOnly bool, page, size int) ([]models.Establishment, int64, error) {
	where := squirrel.And{}
	if activeOnly {
		where = append(where, squirrel.Eq{"is_active": true})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("establishments").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building count establishments query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting establishments: %w", err)
	}
	if total == 0 {
		return []models.Establishment{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	query, args, err := r.sb.Select(establishmentColumns...).
		From("establishments").
		Where(where).
		OrderBy("name ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building list establishments query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing establishments: %w", err)
	}
	defer rows.Close()

	items := make([]models.Establishment, 0, limit)
	for rows.Next() {
		var e models.Establishment
		if err := scanEstablishment(rows, &e); err != nil {
			return nil, 0, fmt.Errorf("error scanning establishment: %w", err)
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// Update writes every mutable column of e
func (r *EstablishmentRepository) Update(ctx context.Context, e *models.Establishment) error {
	query, args, err := r.sb.Update("establishments").
		Set("name", e.Name).
		Set("slug", e.Slug).
		Set("contact_email", e.ContactEmail).
		Set("is_active", e.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": e.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update establishment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrEstablishmentNotFound
		}
		if dberrors.IsDuplicateConstraintError(err, "establishments_slug_key") {
			return apperrors.ErrSlugAlreadyExists
		}
		return fmt.Errorf("error updating establishment: %w", err)
	}
	return nil
}
