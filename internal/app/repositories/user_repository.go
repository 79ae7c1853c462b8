package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/dberrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

var userColumns = []string{
	"u.id", "u.establishment_id", "u.email", "u.first_name", "u.last_name",
	"u.role", "u.is_active", "u.created_at", "u.updated_at",
}

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row, u *models.User) error {
	return row.Scan(&u.ID, &u.EstablishmentID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) queryUsers(ctx context.Context, q squirrel.SelectBuilder) ([]models.User, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building users query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a user
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query, args, err := r.sb.Insert("users").
		Columns("establishment_id", "email", "first_name", "last_name", "role", "is_active").
		Values(u.EstablishmentID, strings.ToLower(u.Email), u.FirstName, u.LastName, u.Role, u.IsActive).
		Suffix("RETURNING id, email, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrEstablishmentNotFound
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users u").Where(squirrel.Eq{"u.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get user query: %w", err)
	}

	var u models.User
	if err := scanUser(r.db.QueryRow(ctx, query, args...), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return &u, nil
}

// List returns a filtered page of users
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	where := squirrel.And{}
	if filter.EstablishmentID != nil {
		where = append(where, squirrel.Eq{"u.establishment_id": *filter.EstablishmentID})
	}
	if filter.Role != nil {
		where = append(where, squirrel.Eq{"u.role": *filter.Role})
	}
	if filter.ActiveOnly {
		where = append(where, squirrel.Eq{"u.is_active": true})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.email": pattern},
			squirrel.Expr("u.first_name || ' ' || u.last_name ILIKE ?", pattern),
		})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("users u").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building count users query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}
	if total == 0 {
		return []models.User{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	users, err := r.queryUsers(ctx, r.sb.Select(userColumns...).
		From("users u").
		Where(where).
		OrderBy("u.last_name ASC", "u.first_name ASC", "u.id ASC").
		Limit(uint64(limit)).
		Offset(offset))
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update writes the mutable columns of u
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	query, args, err := r.sb.Update("users").
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("role", u.Role).
		Set("is_active", u.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": u.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

// ListActiveByIDs returns the active users of an establishment among ids
func (r *UserRepository) ListActiveByIDs(ctx context.Context, establishmentID int64, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.queryUsers(ctx, r.sb.Select(userColumns...).
		From("users u").
		Where(squirrel.Eq{"u.establishment_id": establishmentID, "u.is_active": true, "u.id": ids}).
		OrderBy("u.id"))
}

// ListActiveByRole returns the active users of an establishment holding role
func (r *UserRepository) ListActiveByRole(ctx context.Context, establishmentID int64, role models.Role) ([]models.User, error) {
	return r.queryUsers(ctx, r.sb.Select(userColumns...).
		From("users u").
		Where(squirrel.Eq{"u.establishment_id": establishmentID, "u.is_active": true, "u.role": role}).
		OrderBy("u.id"))
}

// ListActiveFormationMembers returns the active participants of a formation,
// optionally restricted to one participant role
func (r *UserRepository) ListActiveFormationMembers(ctx context.Context, formationID int64, role *models.ParticipantRole) ([]models.User, error) {
	where := squirrel.Eq{"fp.formation_id": formationID, "u.is_active": true}
	if role != nil {
		where["fp.role"] = *role
	}
	return r.queryUsers(ctx, r.sb.Select(userColumns...).
		From("formation_participants fp").
		Join("users u ON u.id = fp.user_id").
		Where(where).
		OrderBy("u.id"))
}
