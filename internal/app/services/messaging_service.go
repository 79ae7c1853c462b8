package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

// MessagingService defines the operations on messages
type MessagingService interface {
	Send(ctx context.Context, req *dto.SendMessageRequest) (*models.Message, error)
	GetMessage(ctx context.Context, id int64) (*models.InboxItem, error)
	Inbox(ctx context.Context, q dto.InboxQuery) (*dto.PageResponse[models.InboxItem], error)
	Sent(ctx context.Context, q dto.PageQuery) (*dto.PageResponse[models.Message], error)
	MarkRead(ctx context.Context, id int64) error
	UnreadCount(ctx context.Context) (int64, error)
	Cancel(ctx context.Context, id int64) error
}

type messagingServiceImpl struct {
	messages MessageStore
	users    UserDirectory
	resolver *RecipientResolver
	delivery *Delivery
	logger   zerolog.Logger
	now      func() time.Time
}

// NewMessagingService creates a new messaging service
func NewMessagingService(messages MessageStore, users UserDirectory, resolver *RecipientResolver, delivery *Delivery, logger zerolog.Logger) MessagingService {
	return &messagingServiceImpl{
		messages: messages,
		users:    users,
		resolver: resolver,
		delivery: delivery,
		logger:   logger,
		now:      time.Now,
	}
}

// Send stores a message. Messages scheduled in the future stay PENDING for the
// dispatcher; the others are expanded and delivered now.
func (s *messagingServiceImpl) Send(ctx context.Context, req *dto.SendMessageRequest) (*models.Message, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if p.EstablishmentID == 0 {
		return nil, apperrors.NewForbiddenError("messages are sent within an establishment")
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject", "subject cannot be empty")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, apperrors.NewValidationError("body", "body cannot be empty")
	}
	// Students may only write to named users.
	if req.Recipients.Type != models.RecipientUsers {
		if err := auth.CanTeach(p, p.EstablishmentID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	msg := &models.Message{
		EstablishmentID: p.EstablishmentID,
		SenderID:        p.UserID,
		Subject:         subject,
		Body:            req.Body,
		Recipients:      req.Recipients,
	}

	if req.ScheduledAt != nil && req.ScheduledAt.After(now) {
		if err := s.resolver.Validate(ctx, p.EstablishmentID, req.Recipients); err != nil {
			return nil, err
		}
		at := req.ScheduledAt.UTC()
		msg.Status = models.MessagePending
		msg.ScheduledAt = &at
		if err := s.messages.Create(ctx, msg); err != nil {
			return nil, fmt.Errorf("error scheduling message: %w", err)
		}
		s.logger.Info().Int64("messageId", msg.ID).Time("scheduledAt", at).Msg("Message scheduled")
		return msg, nil
	}

	recipients, err := s.resolver.Resolve(ctx, p.EstablishmentID, p.UserID, req.Recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, apperrors.ErrNoRecipients
	}

	msg.Status = models.MessageSent
	msg.SentAt = &now
	msg.RecipientCount = len(recipients)
	if err := s.messages.CreateDelivered(ctx, msg, userIDs(recipients)); err != nil {
		return nil, fmt.Errorf("error storing message: %w", err)
	}

	// Emails go out after the response; the request context may be gone by then.
	s.delivery.DeliverDetached(ctx, msg, s.senderName(ctx, p), recipients)
	s.logger.Info().
		Int64("messageId", msg.ID).
		Int("recipients", len(recipients)).
		Msg("Message sent")
	return msg, nil
}

func (s *messagingServiceImpl) senderName(ctx context.Context, p auth.Principal) string {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("userId", p.UserID).Msg("Could not load sender profile")
		return p.Email
	}
	return u.FullName()
}

// GetMessage returns a message to its sender or one of its recipients
func (s *messagingServiceImpl) GetMessage(ctx context.Context, id int64) (*models.InboxItem, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID == p.UserID {
		return &models.InboxItem{Message: *m, SenderName: s.senderName(ctx, p)}, nil
	}
	item, err := s.messages.GetInboxItem(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMessageNotFound) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("error retrieving message: %w", err)
	}
	return item, nil
}

// Inbox lists the messages received by the caller
func (s *messagingServiceImpl) Inbox(ctx context.Context, q dto.InboxQuery) (*dto.PageResponse[models.InboxItem], error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	page, size := helpers.NormalizePage(q.Page, q.Size)
	items, total, err := s.messages.ListInbox(ctx, models.InboxFilter{
		UserID:     p.UserID,
		UnreadOnly: q.Unread,
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing inbox: %w", err)
	}
	return dto.NewPageResponse(items, helpers.NewPaginationInfo(total, page, size)), nil
}

// Sent lists the messages written by the caller
func (s *messagingServiceImpl) Sent(ctx context.Context, q dto.PageQuery) (*dto.PageResponse[models.Message], error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	page, size := helpers.NormalizePage(q.Page, q.Size)
	items, total, err := s.messages.ListSent(ctx, p.UserID, page, size)
	if err != nil {
		return nil, fmt.Errorf("error listing sent messages: %w", err)
	}
	return dto.NewPageResponse(items, helpers.NewPaginationInfo(total, page, size)), nil
}

// MarkRead marks a received message as read
func (s *messagingServiceImpl) MarkRead(ctx context.Context, id int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	return s.messages.MarkRead(ctx, id, p.UserID)
}

// UnreadCount counts the unread messages of the caller
func (s *messagingServiceImpl) UnreadCount(ctx context.Context) (int64, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return s.messages.CountUnread(ctx, p.UserID)
}

// Cancel withdraws a scheduled message that has not been dispatched yet
func (s *messagingServiceImpl) Cancel(ctx context.Context, id int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.SenderID != p.UserID {
		return apperrors.NewForbiddenError("only the sender can cancel a message")
	}
	if m.Status != models.MessagePending {
		return apperrors.ErrMessageAlreadySent
	}
	if err := s.messages.Cancel(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("messageId", id).Msg("Scheduled message cancelled")
	return nil
}
