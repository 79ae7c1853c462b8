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
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

var messageColumns = []string{
	"m.id", "m.establishment_id", "m.sender_id", "m.subject", "m.body", "m.recipient_spec",
	"m.status", "m.scheduled_at", "m.sent_at", "m.error_message", "m.recipient_count", "m.created_at",
}

// MessageRepository handles messages, their recipients and the dispatch queue
type MessageRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanMessage(row pgx.Row, m *models.Message, extra ...any) error {
	dest := []any{&m.ID, &m.EstablishmentID, &m.SenderID, &m.Subject, &m.Body, &m.Recipients,
		&m.Status, &m.ScheduledAt, &m.SentAt, &m.ErrorMessage, &m.RecipientCount, &m.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *MessageRepository) insert(ctx context.Context, q pgx.Tx, m *models.Message) error {
	query, args, err := r.sb.Insert("messages").
		Columns("establishment_id", "sender_id", "subject", "body", "recipient_spec", "status",
			"scheduled_at", "sent_at", "recipient_count").
		Values(m.EstablishmentID, m.SenderID, m.Subject, m.Body, m.Recipients, m.Status,
			m.ScheduledAt, m.SentAt, m.RecipientCount).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building create message query: %w", err)
	}
	if err := q.QueryRow(ctx, query, args...).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

func insertRecipients(ctx context.Context, tx pgx.Tx, messageID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO message_recipients (message_id, user_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`, messageID, userIDs)
	if err != nil {
		return fmt.Errorf("error inserting message recipients: %w", err)
	}
	return nil
}

// Create stores a message without recipients, used for scheduled messages
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return r.insert(ctx, tx, m)
	})
}

// CreateDelivered stores a sent message together with its recipient rows
func (r *MessageRepository) CreateDelivered(ctx context.Context, m *models.Message, recipientIDs []int64) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.insert(ctx, tx, m); err != nil {
			return err
		}
		return insertRecipients(ctx, tx, m.ID, recipientIDs)
	})
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query, args, err := r.sb.Select(messageColumns...).From("messages m").Where(squirrel.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get message query: %w", err)
	}

	var m models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, args...), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("error getting message: %w", err)
	}
	return &m, nil
}

func (r *MessageRepository) inboxSelect() squirrel.SelectBuilder {
	cols := append(append([]string{}, messageColumns...), "mr.read_at", "u.first_name || ' ' || u.last_name")
	return r.sb.Select(cols...).
		From("message_recipients mr").
		Join("messages m ON m.id = mr.message_id").
		Join("users u ON u.id = m.sender_id")
}

// GetInboxItem returns a message as seen by one of its recipients
func (r *MessageRepository) GetInboxItem(ctx context.Context, messageID, userID int64) (*models.InboxItem, error) {
	query, args, err := r.inboxSelect().
		Where(squirrel.Eq{"mr.message_id": messageID, "mr.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building get inbox item query: %w", err)
	}

	var item models.InboxItem
	if err := scanMessage(r.db.QueryRow(ctx, query, args...), &item.Message, &item.ReadAt, &item.SenderName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("error getting inbox item: %w", err)
	}
	return &item, nil
}

// ListInbox returns a page of the messages received by a user, newest first
func (r *MessageRepository) ListInbox(ctx context.Context, filter models.InboxFilter) ([]models.InboxItem, int64, error) {
	where := squirrel.And{squirrel.Eq{"mr.user_id": filter.UserID}}
	if filter.UnreadOnly {
		where = append(where, squirrel.Eq{"mr.read_at": nil})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("message_recipients mr").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building count inbox query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting inbox: %w", err)
	}
	if total == 0 {
		return []models.InboxItem{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	query, args, err := r.inboxSelect().
		Where(where).
		OrderBy("COALESCE(m.sent_at, m.created_at) DESC", "m.id DESC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building inbox query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing inbox: %w", err)
	}
	defer rows.Close()

	items := make([]models.InboxItem, 0, limit)
	for rows.Next() {
		var item models.InboxItem
		if err := scanMessage(rows, &item.Message, &item.ReadAt, &item.SenderName); err != nil {
			return nil, 0, fmt.Errorf("error scanning inbox item: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ListSent returns a page of the messages written by senderID
func (r *MessageRepository) ListSent(ctx context.Context, senderID int64, page, size int) ([]models.Message, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages WHERE sender_id = $1", senderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting sent messages: %w", err)
	}
	if total == 0 {
		return []models.Message{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	query, args, err := r.sb.Select(messageColumns...).
		From("messages m").
		Where(squirrel.Eq{"m.sender_id": senderID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building sent messages query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing sent messages: %w", err)
	}
	defer rows.Close()

	items := make([]models.Message, 0, limit)
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, 0, fmt.Errorf("error scanning message: %w", err)
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// MarkRead sets read_at for a recipient; reading twice keeps the first timestamp
func (r *MessageRepository) MarkRead(ctx context.Context, messageID, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE message_recipients SET read_at = COALESCE(read_at, NOW())
		WHERE message_id = $1 AND user_id = $2`, messageID, userID)
	if err != nil {
		return fmt.Errorf("error marking message read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

// CountUnread returns how many received messages userID has not read
func (r *MessageRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM message_recipients WHERE user_id = $1 AND read_at IS NULL", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting unread messages: %w", err)
	}
	return count, nil
}

// Cancel moves a PENDING message to CANCELLED
func (r *MessageRepository) Cancel(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE messages SET status = $1 WHERE id = $2 AND status = $3",
		models.MessageCancelled, id, models.MessagePending)
	if err != nil {
		return fmt.Errorf("error cancelling message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageAlreadySent
	}
	return nil
}

// ClaimDue moves up to limit due PENDING messages to PROCESSING and returns them,
// oldest first. Rows locked by a concurrent pass are skipped.
func (r *MessageRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.Message, error) {
	var claimed []models.Message
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query, args, err := r.sb.Select(messageColumns...).
			From("messages m").
			Where(squirrel.Eq{"m.status": models.MessagePending}).
			Where(squirrel.LtOrEq{"m.scheduled_at": now}).
			OrderBy("m.scheduled_at ASC", "m.id ASC").
			Limit(uint64(limit)).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("error building claim query: %w", err)
		}

		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("error selecting due messages: %w", err)
		}
		ids := []int64{}
		for rows.Next() {
			var m models.Message
			if err := scanMessage(rows, &m); err != nil {
				rows.Close()
				return fmt.Errorf("error scanning due message: %w", err)
			}
			m.Status = models.MessageProcessing
			claimed = append(claimed, m)
			ids = append(ids, m.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error reading due messages: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, "UPDATE messages SET status = $1, claimed_at = $2 WHERE id = ANY($3)",
			models.MessageProcessing, now, ids)
		if err != nil {
			return fmt.Errorf("error claiming due messages: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkSent inserts the recipient rows and marks a PROCESSING message SENT.
// It returns ErrClaimLost when the claim was requeued or finished elsewhere.
func (r *MessageRepository) MarkSent(ctx context.Context, messageID int64, recipientIDs []int64, sentAt time.Time) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := insertRecipients(ctx, tx, messageID, recipientIDs); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE messages SET status = $1, sent_at = $2, recipient_count = $3, error_message = NULL
			WHERE id = $4 AND status = $5`, models.MessageSent, sentAt, len(recipientIDs), messageID, models.MessageProcessing)
		if err != nil {
			return fmt.Errorf("error marking message sent: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrClaimLost
		}
		return nil
	})
}

// MarkFailed records why a message could not be delivered
func (r *MessageRepository) MarkFailed(ctx context.Context, messageID int64, reason string) error {
	_, err := r.db.Exec(ctx, "UPDATE messages SET status = $1, error_message = $2 WHERE id = $3",
		models.MessageFailed, reason, messageID)
	if err != nil {
		return fmt.Errorf("error marking message failed: %w", err)
	}
	return nil
}

// RequeueStale returns PROCESSING messages claimed before cutoff to PENDING,
// recovering from a pass that died mid-way
func (r *MessageRepository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE messages SET status = $1, claimed_at = NULL WHERE status = $2 AND claimed_at < $3",
		models.MessagePending, models.MessageProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error requeueing stale messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
