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
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/dberrors"
)

var meetingColumns = []string{
	"id", "establishment_id", "formation_id", "title", "description", "starts_at", "ends_at",
	"meeting_url", "created_by", "created_at", "updated_at",
}

// MeetingRepository handles meetings
type MeetingRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *pgxpool.Pool) *MeetingRepository {
	return &MeetingRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanMeeting(row pgx.Row, m *models.Meeting) error {
	return row.Scan(&m.ID, &m.EstablishmentID, &m.FormationID, &m.Title, &m.Description, &m.StartsAt,
		&m.EndsAt, &m.MeetingURL, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
}

// Create inserts a meeting
func (r *MeetingRepository) Create(ctx context.Context, m *models.Meeting) error {
	query, args, err := r.sb.Insert("meetings").
		Columns("establishment_id", "formation_id", "title", "description", "starts_at", "ends_at", "meeting_url", "created_by").
		Values(m.EstablishmentID, m.FormationID, m.Title, m.Description, m.StartsAt, m.EndsAt, m.MeetingURL, m.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create meeting query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrFormationNotFound
		}
		return fmt.Errorf("error creating meeting: %w", err)
	}
	return nil
}

// GetByID retrieves a meeting by ID
func (r *MeetingRepository) GetByID(ctx context.Context, id int64) (*models.Meeting, error) {
	query, args, err := r.sb.Select(meetingColumns...).From("meetings").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get meeting query: %w", err)
	}

	var m models.Meeting
	if err := scanMeeting(r.db.QueryRow(ctx, query, args...), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("error getting meeting: %w", err)
	}
	return &m, nil
}

// List returns the meetings of an establishment, optionally for one formation and time window
func (r *MeetingRepository) List(ctx context.Context, establishmentID int64, formationID *int64, from, to *time.Time) ([]models.Meeting, error) {
	where := squirrel.And{squirrel.Eq{"establishment_id": establishmentID}}
	if formationID != nil {
		where = append(where, squirrel.Eq{"formation_id": *formationID})
	}
	if from != nil {
		where = append(where, squirrel.Gt{"ends_at": *from})
	}
	if to != nil {
		where = append(where, squirrel.Lt{"starts_at": *to})
	}

	query, args, err := r.sb.Select(meetingColumns...).From("meetings").Where(where).OrderBy("starts_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list meetings query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing meetings: %w", err)
	}
	defer rows.Close()

	items := []models.Meeting{}
	for rows.Next() {
		var m models.Meeting
		if err := scanMeeting(rows, &m); err != nil {
			return nil, fmt.Errorf("error scanning meeting: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Update writes the mutable columns of m
func (r *MeetingRepository) Update(ctx context.Context, m *models.Meeting) error {
	query, args, err := r.sb.Update("meetings").
		Set("title", m.Title).
		Set("description", m.Description).
		Set("starts_at", m.StartsAt).
		Set("ends_at", m.EndsAt).
		Set("meeting_url", m.MeetingURL).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": m.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update meeting query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrMeetingNotFound
		}
		return fmt.Errorf("error updating meeting: %w", err)
	}
	return nil
}

// Delete removes a meeting
func (r *MeetingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM meetings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMeetingNotFound
	}
	return nil
}
