package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/metrics"
	"github.com/yigit/formatrack/internal/pkg/realtime"
)

const (
	defaultPeerTimeout     = 2 * time.Minute
	defaultSignalRetention = time.Hour
	maxSignalPayload       = 64 << 10
)

// SignalingConfig tunes presence expiry and signal retention
type SignalingConfig struct {
	PeerTimeout     time.Duration
	SignalRetention time.Duration
}

// PeerNotice is the payload of peer.joined and peer.left events
type PeerNotice struct {
	ClassID int64 `json:"classId"`
	UserID  int64 `json:"userId"`
}

// SweepResult summarizes a sweep
type SweepResult struct {
	PeersExpired   int   `json:"peersExpired"`
	SignalsDeleted int64 `json:"signalsDeleted"`
}

// SignalingService relays WebRTC negotiation messages between the peers of a class.
// Access to the class itself is checked by VirtualClassService before Join.
type SignalingService interface {
	Join(ctx context.Context, classID int64) (*models.Peer, []models.Peer, error)
	Leave(ctx context.Context, classID int64) error
	Heartbeat(ctx context.Context, classID int64) error
	Peers(ctx context.Context, classID int64) ([]models.Peer, error)
	Send(ctx context.Context, classID int64, req *dto.SendSignalRequest) (*models.Signal, error)
	Pending(ctx context.Context, classID int64, q dto.PendingSignalsQuery) ([]models.Signal, error)
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

type signalingServiceImpl struct {
	store     SignalingStore
	publisher realtime.Publisher
	cfg       SignalingConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSignalingService creates a new signaling service
func NewSignalingService(store SignalingStore, publisher realtime.Publisher, cfg SignalingConfig, logger zerolog.Logger) SignalingService {
	if cfg.PeerTimeout <= 0 {
		cfg.PeerTimeout = defaultPeerTimeout
	}
	if cfg.SignalRetention <= 0 {
		cfg.SignalRetention = defaultSignalRetention
	}
	return &signalingServiceImpl{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "signaling").Logger(),
		now:       time.Now,
	}
}

// Join marks the caller online in the class and tells the other peers.
// It returns the caller's peer row and the other online peers.
func (s *signalingServiceImpl) Join(ctx context.Context, classID int64) (*models.Peer, []models.Peer, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	peer, err := s.store.UpsertPeer(ctx, classID, p.UserID, s.now().UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("error joining class: %w", err)
	}
	online, err := s.store.ListOnlinePeers(ctx, classID)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing peers: %w", err)
	}

	others := make([]models.Peer, 0, len(online))
	for _, o := range online {
		if o.UserID != p.UserID {
			others = append(others, o)
		}
	}
	s.broadcast(ctx, realtime.EventPeerJoined, classID, p.UserID, others)
	s.logger.Debug().Int64("classId", classID).Int64("userId", p.UserID).Msg("Peer joined")
	return peer, others, nil
}

// Leave marks the caller offline and tells the remaining peers
func (s *signalingServiceImpl) Leave(ctx context.Context, classID int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.store.SetOffline(ctx, classID, p.UserID); err != nil {
		return err
	}
	online, err := s.store.ListOnlinePeers(ctx, classID)
	if err != nil {
		return fmt.Errorf("error listing peers: %w", err)
	}
	s.broadcast(ctx, realtime.EventPeerLeft, classID, p.UserID, online)
	s.logger.Debug().Int64("classId", classID).Int64("userId", p.UserID).Msg("Peer left")
	return nil
}

// Heartbeat refreshes the caller's presence
func (s *signalingServiceImpl) Heartbeat(ctx context.Context, classID int64) error {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return err
	}
	return s.store.Touch(ctx, classID, p.UserID, s.now().UTC())
}

func (s *signalingServiceImpl) requireOnline(ctx context.Context, classID, userID int64) (*models.Peer, error) {
	peer, err := s.store.GetPeer(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if peer.Status != models.PeerOnline {
		return nil, apperrors.ErrPeerNotOnline
	}
	return peer, nil
}

func explainOffline(err error, message string) error {
	if errors.Is(err, apperrors.ErrPeerNotOnline) {
		return apperrors.NewCustomError(apperrors.ErrPeerNotOnline, message)
	}
	return err
}

// Peers lists the online peers of a class the caller is in
func (s *signalingServiceImpl) Peers(ctx context.Context, classID int64) ([]models.Peer, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOnline(ctx, classID, p.UserID); err != nil {
		return nil, err
	}
	return s.store.ListOnlinePeers(ctx, classID)
}

// Send stores a signal for another online peer and pushes it to that peer only
func (s *signalingServiceImpl) Send(ctx context.Context, classID int64, req *dto.SendSignalRequest) (*models.Signal, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	signalType := models.SignalType(req.Type)
	if !signalType.Valid() {
		return nil, apperrors.NewValidationError("type", "type must be offer, answer, ice-candidate or renegotiate")
	}
	if len(req.Payload) == 0 || !json.Valid(req.Payload) {
		return nil, apperrors.NewValidationError("payload", "payload must be valid JSON")
	}
	if len(req.Payload) > maxSignalPayload {
		return nil, apperrors.NewValidationError("payload", "payload is too large")
	}
	if req.ReceiverID == p.UserID {
		return nil, apperrors.NewBadRequestError("a peer cannot signal itself")
	}

	if _, err := s.requireOnline(ctx, classID, p.UserID); err != nil {
		return nil, explainOffline(err, "join the class before sending signals")
	}
	if _, err := s.requireOnline(ctx, classID, req.ReceiverID); err != nil {
		return nil, explainOffline(err, "receiver is not online in this class")
	}

	sig := &models.Signal{
		ClassID:    classID,
		SenderID:   p.UserID,
		ReceiverID: req.ReceiverID,
		Type:       signalType,
		Payload:    req.Payload,
	}
	if err := s.store.InsertSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("error storing signal: %w", err)
	}

	ev, err := realtime.NewEvent(realtime.EventSignal, sig.ReceiverID, sig)
	if err == nil {
		err = s.publisher.Publish(ctx, sig.ReceiverID, ev)
	}
	if err != nil {
		// the receiver can still poll Pending
		s.logger.Warn().Err(err).Int64("signalId", sig.ID).Msg("Failed to publish signal")
	}
	return sig, nil
}

// Pending returns the signals addressed to the caller, oldest first
func (s *signalingServiceImpl) Pending(ctx context.Context, classID int64, q dto.PendingSignalsQuery) ([]models.Signal, error) {
	p, err := auth.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetPeer(ctx, classID, p.UserID); err != nil {
		return nil, err
	}
	return s.store.ListSignals(ctx, classID, p.UserID, q.Since)
}

// Sweep expires silent peers, telling the peers left behind, and deletes old signals
func (s *signalingServiceImpl) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	expired, err := s.store.ExpirePeers(ctx, now.Add(-s.cfg.PeerTimeout))
	if err != nil {
		return res, fmt.Errorf("error expiring peers: %w", err)
	}
	res.PeersExpired = len(expired)

	byClass := map[int64][]int64{}
	for _, peer := range expired {
		byClass[peer.ClassID] = append(byClass[peer.ClassID], peer.UserID)
	}
	for classID, gone := range byClass {
		online, err := s.store.ListOnlinePeers(ctx, classID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("classId", classID).Msg("Could not list peers after expiry")
			continue
		}
		for _, userID := range gone {
			s.broadcast(ctx, realtime.EventPeerLeft, classID, userID, online)
		}
	}

	deleted, err := s.store.DeleteSignalsBefore(ctx, now.Add(-s.cfg.SignalRetention))
	if err != nil {
		return res, fmt.Errorf("error deleting old signals: %w", err)
	}
	res.SignalsDeleted = deleted

	metrics.RecordSweep(res.PeersExpired, int(res.SignalsDeleted))
	if res.PeersExpired > 0 || res.SignalsDeleted > 0 {
		s.logger.Info().
			Int("peersExpired", res.PeersExpired).
			Int64("signalsDeleted", res.SignalsDeleted).
			Msg("Signaling sweep finished")
	}
	return res, nil
}

func (s *signalingServiceImpl) broadcast(ctx context.Context, eventType string, classID, aboutUserID int64, to []models.Peer) {
	notice := PeerNotice{ClassID: classID, UserID: aboutUserID}
	for _, peer := range to {
		if peer.UserID == aboutUserID {
			continue
		}
		ev, err := realtime.NewEvent(eventType, peer.UserID, notice)
		if err == nil {
			err = s.publisher.Publish(ctx, peer.UserID, ev)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("event", eventType).Int64("userId", peer.UserID).Msg("Failed to publish presence event")
		}
	}
}
