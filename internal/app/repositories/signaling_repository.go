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

// SignalingRepository stores WebRTC peer presence and relayed signals
type SignalingRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSignalingRepository creates a new SignalingRepository
func NewSignalingRepository(db *pgxpool.Pool) *SignalingRepository {
	return &SignalingRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanPeer(row pgx.Row, p *models.Peer) error {
	return row.Scan(&p.ClassID, &p.UserID, &p.Status, &p.JoinedAt, &p.LastSeen)
}

// UpsertPeer marks userID ONLINE in classID
func (r *SignalingRepository) UpsertPeer(ctx context.Context, classID, userID int64, now time.Time) (*models.Peer, error) {
	var p models.Peer
	err := scanPeer(r.db.QueryRow(ctx, `
		INSERT INTO webrtc_peers (class_id, user_id, status, joined_at, last_seen)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (class_id, user_id) DO UPDATE
			SET status = EXCLUDED.status, joined_at = EXCLUDED.joined_at, last_seen = EXCLUDED.last_seen
		RETURNING class_id, user_id, status, joined_at, last_seen`,
		classID, userID, models.PeerOnline, now), &p)
	if err != nil {
		return nil, fmt.Errorf("error upserting peer: %w", err)
	}
	return &p, nil
}

// SetOffline marks an ONLINE peer OFFLINE
func (r *SignalingRepository) SetOffline(ctx context.Context, classID, userID int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE webrtc_peers SET status = $1 WHERE class_id = $2 AND user_id = $3 AND status = $4",
		models.PeerOffline, classID, userID, models.PeerOnline)
	if err != nil {
		return fmt.Errorf("error marking peer offline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPeerNotOnline
	}
	return nil
}

// Touch refreshes last_seen of an ONLINE peer
func (r *SignalingRepository) Touch(ctx context.Context, classID, userID int64, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE webrtc_peers SET last_seen = $1 WHERE class_id = $2 AND user_id = $3 AND status = $4",
		now, classID, userID, models.PeerOnline)
	if err != nil {
		return fmt.Errorf("error refreshing peer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPeerNotOnline
	}
	return nil
}

// GetPeer returns the presence row of userID in classID
func (r *SignalingRepository) GetPeer(ctx context.Context, classID, userID int64) (*models.Peer, error) {
	var p models.Peer
	err := scanPeer(r.db.QueryRow(ctx,
		"SELECT class_id, user_id, status, joined_at, last_seen FROM webrtc_peers WHERE class_id = $1 AND user_id = $2",
		classID, userID), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPeerNotOnline
		}
		return nil, fmt.Errorf("error getting peer: %w", err)
	}
	return &p, nil
}

// ListOnlinePeers returns the ONLINE peers of a class
func (r *SignalingRepository) ListOnlinePeers(ctx context.Context, classID int64) ([]models.Peer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT class_id, user_id, status, joined_at, last_seen FROM webrtc_peers
		WHERE class_id = $1 AND status = $2 ORDER BY joined_at, user_id`, classID, models.PeerOnline)
	if err != nil {
		return nil, fmt.Errorf("error listing peers: %w", err)
	}
	defer rows.Close()

	peers := []models.Peer{}
	for rows.Next() {
		var p models.Peer
		if err := scanPeer(rows, &p); err != nil {
			return nil, fmt.Errorf("error scanning peer: %w", err)
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

// ExpirePeers marks OFFLINE every ONLINE peer silent since before and returns them
func (r *SignalingRepository) ExpirePeers(ctx context.Context, before time.Time) ([]models.Peer, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE webrtc_peers SET status = $1
		WHERE status = $2 AND last_seen < $3
		RETURNING class_id, user_id, status, joined_at, last_seen`,
		models.PeerOffline, models.PeerOnline, before)
	if err != nil {
		return nil, fmt.Errorf("error expiring peers: %w", err)
	}
	defer rows.Close()

	peers := []models.Peer{}
	for rows.Next() {
		var p models.Peer
		if err := scanPeer(rows, &p); err != nil {
			return nil, fmt.Errorf("error scanning expired peer: %w", err)
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

// InsertSignal stores a relayed signal
func (r *SignalingRepository) InsertSignal(ctx context.Context, s *models.Signal) error {
	query, args, err := r.sb.Insert("webrtc_signals").
		Columns("class_id", "sender_id", "receiver_id", "signal_type", "payload").
		Values(s.ClassID, s.SenderID, s.ReceiverID, s.Type, s.Payload).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building insert signal query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("error inserting signal: %w", err)
	}
	return nil
}

// ListSignals returns the signals of a class addressed to receiverID, oldest first
func (r *SignalingRepository) ListSignals(ctx context.Context, classID, receiverID int64, since *time.Time) ([]models.Signal, error) {
	where := squirrel.And{squirrel.Eq{"class_id": classID, "receiver_id": receiverID}}
	if since != nil {
		where = append(where, squirrel.Gt{"created_at": *since})
	}

	query, args, err := r.sb.Select("id", "class_id", "sender_id", "receiver_id", "signal_type", "payload", "created_at").
		From("webrtc_signals").
		Where(where).
		OrderBy("created_at", "id").
		Limit(500).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building list signals query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing signals: %w", err)
	}
	defer rows.Close()

	signals := []models.Signal{}
	for rows.Next() {
		var s models.Signal
		if err := rows.Scan(&s.ID, &s.ClassID, &s.SenderID, &s.ReceiverID, &s.Type, &s.Payload, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning signal: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// DeleteSignalsBefore removes signals created before cutoff
func (r *SignalingRepository) DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM webrtc_signals WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old signals: %w", err)
	}
	return tag.RowsAffected(), nil
}
