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
	"github.com/yigit/formatrack/internal/db"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/dberrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

var (
	formationColumns = []string{
		"f.id", "f.establishment_id", "f.title", "f.description", "f.start_date", "f.end_date",
		"f.status", "f.created_by", "f.created_at", "f.updated_at",
	}
	moduleColumns = []string{
		"id", "formation_id", "title", "description", "position", "duration_minutes", "created_at", "updated_at",
	}
)

// FormationRepository handles formations, their modules and participants
type FormationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewFormationRepository creates a new FormationRepository
func NewFormationRepository(db *pgxpool.Pool) *FormationRepository {
	return &FormationRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanFormation(row pgx.Row, f *models.Formation) error {
	return row.Scan(&f.ID, &f.EstablishmentID, &f.Title, &f.Description, &f.StartDate, &f.EndDate,
		&f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
}

func scanModule(row pgx.Row, m *models.FormationModule) error {
	return row.Scan(&m.ID, &m.FormationID, &m.Title, &m.Description, &m.Position, &m.DurationMinutes,
		&m.CreatedAt, &m.UpdatedAt)
}

// Create inserts a formation
func (r *FormationRepository) Create(ctx context.Context, f *models.Formation) error {
	query, args, err := r.sb.Insert("formations").
		Columns("establishment_id", "title", "description", "start_date", "end_date", "status", "created_by").
		Values(f.EstablishmentID, f.Title, f.Description, f.StartDate, f.EndDate, f.Status, f.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create formation query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if dberrors.IsCheckViolation(err) {
			return apperrors.NewValidationError("endDate", "end date must not be before start date")
		}
		return fmt.Errorf("error creating formation: %w", err)
	}
	return nil
}

// GetByID retrieves a formation by ID
func (r *FormationRepository) GetByID(ctx context.Context, id int64) (*models.Formation, error) {
	query, args, err := r.sb.Select(formationColumns...).From("formations f").Where(squirrel.Eq{"f.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get formation query: %w", err)
	}

	var f models.Formation
	if err := scanFormation(r.db.QueryRow(ctx, query, args...), &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFormationNotFound
		}
		return nil, fmt.Errorf("error getting formation: %w", err)
	}
	return &f, nil
}

// List returns a filtered page of formations
func (r *FormationRepository) List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, int64, error) {
	where := squirrel.And{squirrel.Eq{"f.establishment_id": filter.EstablishmentID}}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"f.status": *filter.Status})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, squirrel.ILike{"f.title": "%" + s + "%"})
	}
	if filter.ParticipantID != nil {
		where = append(where, squirrel.Expr(
			"EXISTS (SELECT 1 FROM formation_participants fp WHERE fp.formation_id = f.id AND fp.user_id = ?)",
			*filter.ParticipantID))
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("formations f").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building count formations query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting formations: %w", err)
	}
	if total == 0 {
		return []models.Formation{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	query, args, err := r.sb.Select(formationColumns...).
		From("formations f").
		Where(where).
		OrderBy("f.start_date DESC NULLS LAST", "f.id DESC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building list formations query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing formations: %w", err)
	}
	defer rows.Close()

	items := make([]models.Formation, 0, limit)
	for rows.Next() {
		var f models.Formation
		if err := scanFormation(rows, &f); err != nil {
			return nil, 0, fmt.Errorf("error scanning formation: %w", err)
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}

// Update writes the mutable columns of f
func (r *FormationRepository) Update(ctx context.Context, f *models.Formation) error {
	query, args, err := r.sb.Update("formations").
		Set("title", f.Title).
		Set("description", f.Description).
		Set("start_date", f.StartDate).
		Set("end_date", f.EndDate).
		Set("status", f.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": f.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update formation query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrFormationNotFound
		}
		if dberrors.IsCheckViolation(err) {
			return apperrors.NewValidationError("endDate", "end date must not be before start date")
		}
		return fmt.Errorf("error updating formation: %w", err)
	}
	return nil
}

// Delete removes a formation and, by cascade, everything attached to it
func (r *FormationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM formations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting formation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrFormationNotFound
	}
	return nil
}

// CreateModule appends a module at the end of the formation
func (r *FormationRepository) CreateModule(ctx context.Context, m *models.FormationModule) error {
	query, args, err := r.sb.Insert("formation_modules").
		Columns("formation_id", "title", "description", "duration_minutes", "position").
		Values(m.FormationID, m.Title, m.Description, m.DurationMinutes,
			squirrel.Expr("(SELECT COALESCE(MAX(position), 0) + 1 FROM formation_modules WHERE formation_id = ?)", m.FormationID)).
		Suffix("RETURNING id, position, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create module query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&m.ID, &m.Position, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("error creating module: %w", err)
	}
	return nil
}

// GetModule retrieves a module by ID
func (r *FormationRepository) GetModule(ctx context.Context, id int64) (*models.FormationModule, error) {
	query, args, err := r.sb.Select(moduleColumns...).From("formation_modules").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get module query: %w", err)
	}

	var m models.FormationModule
	if err := scanModule(r.db.QueryRow(ctx, query, args...), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrModuleNotFound
		}
		return nil, fmt.Errorf("error getting module: %w", err)
	}
	return &m, nil
}

// ListModules returns the modules of a formation by position
func (r *FormationRepository) ListModules(ctx context.Context, formationID int64) ([]models.FormationModule, error) {
	query, args, err := r.sb.Select(moduleColumns...).
		From("formation_modules").
		Where(squirrel.Eq{"formation_id": formationID}).
		OrderBy("position ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list modules query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing modules: %w", err)
	}
	defer rows.Close()

	modules := []models.FormationModule{}
	for rows.Next() {
		var m models.FormationModule
		if err := scanModule(rows, &m); err != nil {
			return nil, fmt.Errorf("error scanning module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// UpdateModule writes the mutable columns of m
func (r *FormationRepository) UpdateModule(ctx context.Context, m *models.FormationModule) error {
	query, args, err := r.sb.Update("formation_modules").
		Set("title", m.Title).
		Set("description", m.Description).
		Set("duration_minutes", m.DurationMinutes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": m.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update module query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrModuleNotFound
		}
		return fmt.Errorf("error updating module: %w", err)
	}
	return nil
}

// DeleteModule removes a module and closes the gap in positions
func (r *FormationRepository) DeleteModule(ctx context.Context, m *models.FormationModule) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM formation_modules WHERE id = $1", m.ID)
		if err != nil {
			return fmt.Errorf("error deleting module: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrModuleNotFound
		}
		_, err = tx.Exec(ctx,
			"UPDATE formation_modules SET position = position - 1 WHERE formation_id = $1 AND position > $2",
			m.FormationID, m.Position)
		if err != nil {
			return fmt.Errorf("error compacting module positions: %w", err)
		}
		return nil
	})
}

// ReorderModules assigns positions 1..n following moduleIDs, which must list
// exactly the modules of the formation
func (r *FormationRepository) ReorderModules(ctx context.Context, formationID int64, moduleIDs []int64) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			"SELECT id FROM formation_modules WHERE formation_id = $1 FOR UPDATE", formationID)
		if err != nil {
			return fmt.Errorf("error locking modules: %w", err)
		}
		existing := map[int64]bool{}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("error scanning module id: %w", err)
			}
			existing[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error reading module ids: %w", err)
		}

		if len(existing) != len(moduleIDs) {
			return apperrors.NewBadRequestError("moduleIds must list every module of the formation exactly once")
		}
		seen := map[int64]bool{}
		for _, id := range moduleIDs {
			if !existing[id] || seen[id] {
				return apperrors.NewBadRequestError("moduleIds must list every module of the formation exactly once")
			}
			seen[id] = true
		}

		batch := &pgx.Batch{}
		for i, id := range moduleIDs {
			batch.Queue("UPDATE formation_modules SET position = $1, updated_at = NOW() WHERE id = $2", i+1, id)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("error reordering modules: %w", err)
		}
		return nil
	})
}

// AddParticipant enrolls a user
func (r *FormationRepository) AddParticipant(ctx context.Context, p *models.FormationParticipant) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO formation_participants (formation_id, user_id, role) VALUES ($1, $2, $3) RETURNING enrolled_at`,
		p.FormationID, p.UserID, p.Role).Scan(&p.EnrolledAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrAlreadyEnrolled
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("error enrolling participant: %w", err)
	}
	return nil
}

// RemoveParticipant unenrolls a user
func (r *FormationRepository) RemoveParticipant(ctx context.Context, formationID, userID int64) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM formation_participants WHERE formation_id = $1 AND user_id = $2", formationID, userID)
	if err != nil {
		return fmt.Errorf("error removing participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotParticipant
	}
	return nil
}

// GetParticipant returns the enrollment of userID in formationID
func (r *FormationRepository) GetParticipant(ctx context.Context, formationID, userID int64) (*models.FormationParticipant, error) {
	p := models.FormationParticipant{FormationID: formationID, UserID: userID}
	err := r.db.QueryRow(ctx,
		"SELECT role, enrolled_at FROM formation_participants WHERE formation_id = $1 AND user_id = $2",
		formationID, userID).Scan(&p.Role, &p.EnrolledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotParticipant
		}
		return nil, fmt.Errorf("error getting participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns the enrollments of a formation with their users
func (r *FormationRepository) ListParticipants(ctx context.Context, formationID int64) ([]models.FormationParticipant, error) {
	cols := append([]string{"fp.role", "fp.enrolled_at"}, userColumns...)
	query, args, err := r.sb.Select(cols...).
		From("formation_participants fp").
		Join("users u ON u.id = fp.user_id").
		Where(squirrel.Eq{"fp.formation_id": formationID}).
		OrderBy("fp.role DESC", "u.last_name ASC", "u.first_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list participants query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing participants: %w", err)
	}
	defer rows.Close()

	participants := []models.FormationParticipant{}
	for rows.Next() {
		var (
			p models.FormationParticipant
			u models.User
		)
		if err := rows.Scan(&p.Role, &p.EnrolledAt, &u.ID, &u.EstablishmentID, &u.Email, &u.FirstName,
			&u.LastName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning participant: %w", err)
		}
		p.FormationID = formationID
		p.UserID = u.ID
		p.User = &u
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
