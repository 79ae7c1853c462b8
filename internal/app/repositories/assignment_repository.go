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
)

var (
	assignmentColumns = []string{
		"id", "establishment_id", "formation_id", "title", "instructions", "due_at", "max_score",
		"created_by", "created_at", "updated_at",
	}
	submissionColumns = []string{
		"id", "assignment_id", "student_id", "content", "attachment_url", "submitted_at", "is_late",
		"score", "feedback", "graded_at", "graded_by",
	}
)

// AssignmentRepository handles assignments and submissions
type AssignmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(db *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanAssignment(row pgx.Row, a *models.Assignment) error {
	return row.Scan(&a.ID, &a.EstablishmentID, &a.FormationID, &a.Title, &a.Instructions, &a.DueAt,
		&a.MaxScore, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
}

func scanSubmission(row pgx.Row, s *models.Submission) error {
	return row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Content, &s.AttachmentURL, &s.SubmittedAt,
		&s.IsLate, &s.Score, &s.Feedback, &s.GradedAt, &s.GradedBy)
}

// Create inserts an assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	query, args, err := r.sb.Insert("assignments").
		Columns("establishment_id", "formation_id", "title", "instructions", "due_at", "max_score", "created_by").
		Values(a.EstablishmentID, a.FormationID, a.Title, a.Instructions, a.DueAt, a.MaxScore, a.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create assignment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("error creating assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	query, args, err := r.sb.Select(assignmentColumns...).From("assignments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get assignment query: %w", err)
	}

	var a models.Assignment
	if err := scanAssignment(r.db.QueryRow(ctx, query, args...), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error getting assignment: %w", err)
	}
	return &a, nil
}

// ListByFormation returns the assignments of a formation, soonest due first
func (r *AssignmentRepository) ListByFormation(ctx context.Context, formationID int64) ([]models.Assignment, error) {
	query, args, err := r.sb.Select(assignmentColumns...).
		From("assignments").
		Where(squirrel.Eq{"formation_id": formationID}).
		OrderBy("due_at ASC NULLS LAST", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list assignments query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing assignments: %w", err)
	}
	defer rows.Close()

	items := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, fmt.Errorf("error scanning assignment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// Update writes the mutable columns of a
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	query, args, err := r.sb.Update("assignments").
		Set("title", a.Title).
		Set("instructions", a.Instructions).
		Set("due_at", a.DueAt).
		Set("max_score", a.MaxScore).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": a.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building update assignment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrAssignmentNotFound
		}
		return fmt.Errorf("error updating assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment and its submissions
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM assignments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAssignmentNotFound
	}
	return nil
}

// UpsertSubmission creates the student's submission or replaces an ungraded one.
// A graded submission is left untouched and ErrSubmissionGraded is returned.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, s *models.Submission) error {
	query, args, err := r.sb.Insert("submissions").
		Columns("assignment_id", "student_id", "content", "attachment_url", "submitted_at", "is_late").
		Values(s.AssignmentID, s.StudentID, s.Content, s.AttachmentURL, s.SubmittedAt, s.IsLate).
		Suffix(`ON CONFLICT (assignment_id, student_id) DO UPDATE
			SET content = EXCLUDED.content, attachment_url = EXCLUDED.attachment_url,
				submitted_at = EXCLUDED.submitted_at, is_late = EXCLUDED.is_late
			WHERE submissions.graded_at IS NULL
			RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building upsert submission query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrSubmissionGraded
		}
		return fmt.Errorf("error saving submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by ID
func (r *AssignmentRepository) GetSubmission(ctx context.Context, id int64) (*models.Submission, error) {
	return r.getSubmission(ctx, squirrel.Eq{"id": id})
}

// GetSubmissionByStudent retrieves the submission of studentID for an assignment
func (r *AssignmentRepository) GetSubmissionByStudent(ctx context.Context, assignmentID, studentID int64) (*models.Submission, error) {
	return r.getSubmission(ctx, squirrel.Eq{"assignment_id": assignmentID, "student_id": studentID})
}

func (r *AssignmentRepository) getSubmission(ctx context.Context, where squirrel.Eq) (*models.Submission, error) {
	query, args, err := r.sb.Select(submissionColumns...).From("submissions").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get submission query: %w", err)
	}

	var s models.Submission
	if err := scanSubmission(r.db.QueryRow(ctx, query, args...), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("error getting submission: %w", err)
	}
	return &s, nil
}

// ListSubmissions returns every submission of an assignment
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID int64) ([]models.Submission, error) {
	query, args, err := r.sb.Select(submissionColumns...).
		From("submissions").
		Where(squirrel.Eq{"assignment_id": assignmentID}).
		OrderBy("submitted_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list submissions query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing submissions: %w", err)
	}
	defer rows.Close()

	items := []models.Submission{}
	for rows.Next() {
		var s models.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, fmt.Errorf("error scanning submission: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Grade stores the score and feedback of a submission
func (r *AssignmentRepository) Grade(ctx context.Context, submissionID int64, score int, feedback *string, graderID int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE submissions SET score = $1, feedback = $2, graded_by = $3, graded_at = $4
		WHERE id = $5`, score, feedback, graderID, at, submissionID)
	if err != nil {
		return fmt.Errorf("error grading submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSubmissionNotFound
	}
	return nil
}
