package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/db"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/dberrors"
)

var (
	scheduleColumns = []string{"id", "establishment_id", "formation_id", "title", "created_at", "updated_at"}
	slotColumns     = []string{
		"s.id", "s.schedule_id", "s.module_id", "s.trainer_id", "s.meeting_id",
		"s.starts_at", "s.ends_at", "s.location", "s.notes", "s.created_at",
	}
)

// ScheduleRepository handles schedules and their slots
type ScheduleRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanSchedule(row pgx.Row, s *models.Schedule) error {
	return row.Scan(&s.ID, &s.EstablishmentID, &s.FormationID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
}

func scanSlot(row pgx.Row, s *models.ScheduleSlot, extra ...any) error {
	dest := []any{&s.ID, &s.ScheduleID, &s.ModuleID, &s.TrainerID, &s.MeetingID,
		&s.StartsAt, &s.EndsAt, &s.Location, &s.Notes, &s.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

// Create inserts a schedule
func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	query, args, err := r.sb.Insert("schedules").
		Columns("establishment_id", "formation_id", "title").
		Values(s.EstablishmentID, s.FormationID, s.Title).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create schedule query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrFormationNotFound
		}
		return fmt.Errorf("error creating schedule: %w", err)
	}
	return nil
}

// GetByID retrieves a schedule by ID
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query, args, err := r.sb.Select(scheduleColumns...).From("schedules").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get schedule query: %w", err)
	}

	var s models.Schedule
	if err := scanSchedule(r.db.QueryRow(ctx, query, args...), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("error getting schedule: %w", err)
	}
	return &s, nil
}

// ListByFormation returns the schedules of a formation
func (r *ScheduleRepository) ListByFormation(ctx context.Context, formationID int64) ([]models.Schedule, error) {
	query, args, err := r.sb.Select(scheduleColumns...).
		From("schedules").
		Where(squirrel.Eq{"formation_id": formationID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list schedules query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}
	defer rows.Close()

	schedules := []models.Schedule{}
	for rows.Next() {
		var s models.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, fmt.Errorf("error scanning schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Delete removes a schedule and its slots
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScheduleNotFound
	}
	return nil
}

// hasOverlap must run inside a transaction holding the schedule row lock
func hasOverlap(ctx context.Context, tx pgx.Tx, scheduleID int64, start, end time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM schedule_slots
			WHERE schedule_id = $1 AND id <> $2 AND starts_at < $4 AND ends_at > $3
		)`, scheduleID, excludeID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking slot overlap: %w", err)
	}
	return exists, nil
}

func lockSchedule(ctx context.Context, tx pgx.Tx, scheduleID int64) error {
	var id int64
	if err := tx.QueryRow(ctx, "SELECT id FROM schedules WHERE id = $1 FOR UPDATE", scheduleID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrScheduleNotFound
		}
		return fmt.Errorf("error locking schedule: %w", err)
	}
	return nil
}

// CreateSlot inserts a slot, failing with ErrSlotOverlap when it intersects another slot of the schedule
func (r *ScheduleRepository) CreateSlot(ctx context.Context, s *models.ScheduleSlot) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockSchedule(ctx, tx, s.ScheduleID); err != nil {
			return err
		}
		overlap, err := hasOverlap(ctx, tx, s.ScheduleID, s.StartsAt, s.EndsAt, 0)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.ErrSlotOverlap
		}

		query, args, err := r.sb.Insert("schedule_slots").
			Columns("schedule_id", "module_id", "trainer_id", "meeting_id", "starts_at", "ends_at", "location", "notes").
			Values(s.ScheduleID, s.ModuleID, s.TrainerID, s.MeetingID, s.StartsAt, s.EndsAt, s.Location, s.Notes).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("error building create slot query: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt); err != nil {
			if dberrors.IsForeignKeyViolation(err) {
				return apperrors.NewBadRequestError("module, trainer or meeting does not exist")
			}
			return fmt.Errorf("error creating slot: %w", err)
		}
		return nil
	})
}

// UpdateSlot writes the mutable columns of s with the same overlap rule as CreateSlot
func (r *ScheduleRepository) UpdateSlot(ctx context.Context, s *models.ScheduleSlot) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockSchedule(ctx, tx, s.ScheduleID); err != nil {
			return err
		}
		overlap, err := hasOverlap(ctx, tx, s.ScheduleID, s.StartsAt, s.EndsAt, s.ID)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.ErrSlotOverlap
		}

		query, args, err := r.sb.Update("schedule_slots").
			Set("module_id", s.ModuleID).
			Set("trainer_id", s.TrainerID).
			Set("meeting_id", s.MeetingID).
			Set("starts_at", s.StartsAt).
			Set("ends_at", s.EndsAt).
			Set("location", s.Location).
			Set("notes", s.Notes).
			Where(squirrel.Eq{"id": s.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building update slot query: %w", err)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			if dberrors.IsForeignKeyViolation(err) {
				return apperrors.NewBadRequestError("module, trainer or meeting does not exist")
			}
			return fmt.Errorf("error updating slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrSlotNotFound
		}
		return nil
	})
}

// GetSlot retrieves a slot by ID
func (r *ScheduleRepository) GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	query, args, err := r.sb.Select(slotColumns...).From("schedule_slots s").Where(squirrel.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get slot query: %w", err)
	}

	var s models.ScheduleSlot
	if err := scanSlot(r.db.QueryRow(ctx, query, args...), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("error getting slot: %w", err)
	}
	return &s, nil
}

// DeleteSlot removes a slot
func (r *ScheduleRepository) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM schedule_slots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSlotNotFound
	}
	return nil
}

// ListSlots returns the slots of a schedule in chronological order
func (r *ScheduleRepository) ListSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleSlot, error) {
	return r.querySlots(ctx, r.sb.Select(append(slotColumns, "sc.formation_id")...).
		From("schedule_slots s").
		Join("schedules sc ON sc.id = s.schedule_id").
		Where(squirrel.Eq{"s.schedule_id": scheduleID}).
		OrderBy("s.starts_at", "s.id"))
}

// ListSlotsInWindow returns slots intersecting [From, To) for a formation or
// for the formations a participant is enrolled in or teaches
func (r *ScheduleRepository) ListSlotsInWindow(ctx context.Context, establishmentID int64, w models.SlotWindow) ([]models.ScheduleSlot, error) {
	where := squirrel.And{
		squirrel.Eq{"sc.establishment_id": establishmentID},
		squirrel.Lt{"s.starts_at": w.To},
		squirrel.Gt{"s.ends_at": w.From},
	}
	if w.FormationID != nil {
		where = append(where, squirrel.Eq{"sc.formation_id": *w.FormationID})
	}
	if w.ParticipantID != nil {
		where = append(where, squirrel.Or{
			squirrel.Eq{"s.trainer_id": *w.ParticipantID},
			squirrel.Expr("EXISTS (SELECT 1 FROM formation_participants fp WHERE fp.formation_id = sc.formation_id AND fp.user_id = ?)", *w.ParticipantID),
		})
	}

	return r.querySlots(ctx, r.sb.Select(append(slotColumns, "sc.formation_id")...).
		From("schedule_slots s").
		Join("schedules sc ON sc.id = s.schedule_id").
		Where(where).
		OrderBy("s.starts_at", "s.id"))
}

func (r *ScheduleRepository) querySlots(ctx context.Context, q squirrel.SelectBuilder) ([]models.ScheduleSlot, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building slots query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying slots: %w", err)
	}
	defer rows.Close()

	slots := []models.ScheduleSlot{}
	for rows.Next() {
		var s models.ScheduleSlot
		if err := scanSlot(rows, &s, &s.FormationID); err != nil {
			return nil, fmt.Errorf("error scanning slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
