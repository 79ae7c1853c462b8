package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/filestorage"
	"github.com/yigit/formatrack/internal/pkg/realtime"
)

// DefaultMaxScore is used when an assignment is created without one
const DefaultMaxScore = 20

// AssignmentService defines the operations on assignments and submissions
type AssignmentService interface {
	CreateAssignment(ctx context.Context, req *dto.CreateAssignmentRequest) (*models.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (*models.Assignment, error)
	ListAssignments(ctx context.Context, formationID int64) ([]models.Assignment, error)
	UpdateAssignment(ctx context.Context, id int64, req *dto.UpdateAssignmentRequest) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error

	Submit(ctx context.Context, assignmentID int64, req *dto.SubmitRequest) (*models.Submission, error)
	UploadAttachment(ctx context.Context, assignmentID int64, filename string, r io.Reader) (*dto.AttachmentResponse, error)
	MySubmission(ctx context.Context, assignmentID int64) (*models.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID int64) ([]models.Submission, error)
	Grade(ctx context.Context, submissionID int64, req *dto.GradeRequest) (*models.Submission, error)
}

// GradeNotice is the payload of a submission.graded event
type GradeNotice struct {
	AssignmentID int64  `json:"assignmentId"`
	SubmissionID int64  `json:"submissionId"`
	Title        string `json:"title"`
	Score        int    `json:"score"`
	MaxScore     int    `json:"maxScore"`
}

type assignmentServiceImpl struct {
	assignments AssignmentStore
	formations  FormationReader
	users       UserDirectory
	storage     filestorage.Storage
	publisher   realtime.Publisher
	notifier    Notifications
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService creates a new assignment service. notifier may be nil.
func NewAssignmentService(
	assignments AssignmentStore,
	formations FormationReader,
	users UserDirectory,
	storage filestorage.Storage,
	publisher realtime.Publisher,
	notifier Notifications,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentServiceImpl{
		assignments: assignments,
		formations:  formations,
		users:       users,
		storage:     storage,
		publisher:   publisher,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateAssignment adds an assignment to a formation
func (s *assignmentServiceImpl) CreateAssignment(ctx context.Context, req *dto.CreateAssignmentRequest) (*models.Assignment, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, err := teachableFormation(ctx, s.formations, p, req.FormationID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title cannot be empty")
	}
	maxScore := req.MaxScore
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}

	a := &models.Assignment{
		EstablishmentID: f.EstablishmentID,
		FormationID:     f.ID,
		Title:           title,
		Instructions:    req.Instructions,
		DueAt:           req.DueAt,
		MaxScore:        maxScore,
		CreatedBy:       &p.UserID,
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("error creating assignment: %w", err)
	}
	s.logger.Info().Int64("assignmentId", a.ID).Int64("formationId", f.ID).Msg("Assignment created")
	return a, nil
}

// visibleAssignment loads an assignment of a formation the caller may see
func (s *assignmentServiceImpl) visibleAssignment(ctx context.Context, p auth.Principal, id int64) (*models.Assignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, a.FormationID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *assignmentServiceImpl) teachableAssignment(ctx context.Context, p auth.Principal, id int64) (*models.Assignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanTeach(p, a.EstablishmentID); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssignment returns an assignment
func (s *assignmentServiceImpl) GetAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.visibleAssignment(ctx, p, id)
}

// ListAssignments returns the assignments of a formation
func (s *assignmentServiceImpl) ListAssignments(ctx context.Context, formationID int64) ([]models.Assignment, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := formationFor(ctx, s.formations, p, formationID); err != nil {
		return nil, err
	}
	return s.assignments.ListByFormation(ctx, formationID)
}

// UpdateAssignment applies a partial update
func (s *assignmentServiceImpl) UpdateAssignment(ctx context.Context, id int64, req *dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.teachableAssignment(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title", "title cannot be empty")
		}
		a.Title = title
	}
	if req.Instructions != nil {
		a.Instructions = req.Instructions
	}
	if req.DueAt != nil {
		a.DueAt = req.DueAt
	}
	if req.MaxScore != nil {
		if *req.MaxScore <= 0 {
			return nil, apperrors.NewValidationError("maxScore", "maxScore must be positive")
		}
		a.MaxScore = *req.MaxScore
	}

	if err := s.assignments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAssignment removes an assignment and its submissions
func (s *assignmentServiceImpl) DeleteAssignment(ctx context.Context, id int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	if _, err := s.teachableAssignment(ctx, p, id); err != nil {
		return err
	}
	return s.assignments.Delete(ctx, id)
}

// enrolledStudent checks that the caller is a student of the assignment's formation
func (s *assignmentServiceImpl) enrolledStudent(ctx context.Context, p auth.Principal, a *models.Assignment) error {
	if err := auth.SameTenant(p, a.EstablishmentID); err != nil {
		return err
	}
	participant, err := s.formations.GetParticipant(ctx, a.FormationID, p.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotParticipant) {
			return apperrors.NewForbiddenError("only enrolled students can submit")
		}
		return fmt.Errorf("error checking enrollment: %w", err)
	}
	if participant.Role != models.ParticipantStudent {
		return apperrors.NewForbiddenError("only enrolled students can submit")
	}
	return nil
}

// Submit records or replaces the caller's submission. Late submissions are flagged.
func (s *assignmentServiceImpl) Submit(ctx context.Context, assignmentID int64, req *dto.SubmitRequest) (*models.Submission, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.enrolledStudent(ctx, p, a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.NewValidationError("content", "content cannot be empty")
	}

	now := s.now().UTC()
	sub := &models.Submission{
		AssignmentID:  a.ID,
		StudentID:     p.UserID,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
		SubmittedAt:   now,
		IsLate:        a.IsLate(now),
	}
	if err := s.assignments.UpsertSubmission(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("assignmentId", a.ID).
		Int64("studentId", p.UserID).
		Bool("late", sub.IsLate).
		Msg("Submission recorded")
	return sub, nil
}

// UploadAttachment stores a file the caller can then reference in a submission
func (s *assignmentServiceImpl) UploadAttachment(ctx context.Context, assignmentID int64, filename string, r io.Reader) (*dto.AttachmentResponse, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.enrolledStudent(ctx, p, a); err != nil {
		return nil, err
	}

	dir := fmt.Sprintf("submissions/%d/%d", a.ID, p.UserID)
	f, err := s.storage.Save(ctx, dir, filename, r)
	if err != nil {
		switch {
		case errors.Is(err, filestorage.ErrFileTooLarge):
			return nil, apperrors.NewValidationError("file", "file exceeds the maximum upload size")
		case errors.Is(err, filestorage.ErrExtensionNotAllowed):
			return nil, apperrors.NewValidationError("file", "file type is not allowed")
		}
		return nil, fmt.Errorf("error storing attachment: %w", err)
	}
	return &dto.AttachmentResponse{URL: f.URL, Size: f.Size}, nil
}

// MySubmission returns the caller's submission to an assignment
func (s *assignmentServiceImpl) MySubmission(ctx context.Context, assignmentID int64) (*models.Submission, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleAssignment(ctx, p, assignmentID); err != nil {
		return nil, err
	}
	return s.assignments.GetSubmissionByStudent(ctx, assignmentID, p.UserID)
}

// ListSubmissions returns every submission to an assignment
func (s *assignmentServiceImpl) ListSubmissions(ctx context.Context, assignmentID int64) ([]models.Submission, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.teachableAssignment(ctx, p, assignmentID); err != nil {
		return nil, err
	}
	return s.assignments.ListSubmissions(ctx, assignmentID)
}

// Grade scores a submission between 0 and the assignment's max score and
// notifies the student
func (s *assignmentServiceImpl) Grade(ctx context.Context, submissionID int64, req *dto.GradeRequest) (*models.Submission, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := s.assignments.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	a, err := s.teachableAssignment(ctx, p, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	if req.Score == nil {
		return nil, apperrors.NewValidationError("score", "score is required")
	}
	score := *req.Score
	if score < 0 || score > a.MaxScore {
		return nil, apperrors.NewValidationError("score", fmt.Sprintf("score must be between 0 and %d", a.MaxScore))
	}

	now := s.now().UTC()
	if err := s.assignments.Grade(ctx, sub.ID, score, req.Feedback, p.UserID, now); err != nil {
		return nil, err
	}
	sub.Score = &score
	sub.Feedback = req.Feedback
	sub.GradedAt = &now
	sub.GradedBy = &p.UserID

	s.notifyGraded(ctx, a, sub)
	return sub, nil
}

func (s *assignmentServiceImpl) notifyGraded(ctx context.Context, a *models.Assignment, sub *models.Submission) {
	ev, err := realtime.NewEvent(realtime.EventSubmissionGraded, sub.StudentID, GradeNotice{
		AssignmentID: a.ID,
		SubmissionID: sub.ID,
		Title:        a.Title,
		Score:        *sub.Score,
		MaxScore:     a.MaxScore,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, sub.StudentID, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).Int64("submissionId", sub.ID).Msg("Failed to publish grade event")
	}

	if s.notifier == nil {
		return
	}
	student, err := s.users.GetByID(ctx, sub.StudentID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("studentId", sub.StudentID).Msg("Could not load graded student")
		return
	}
	feedback := ""
	if sub.Feedback != nil {
		feedback = *sub.Feedback
	}
	if err := s.notifier.AssignmentGraded(ctx, addressOf(student), a.Title, *sub.Score, a.MaxScore, feedback); err != nil {
		s.logger.Warn().Err(err).Int64("submissionId", sub.ID).Msg("Failed to send grade notification")
	}
}
