package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/metrics"
)

const (
	defaultDispatchBatch = 50
	// a claim older than this belongs to a pass that died
	defaultStaleClaim = 10 * time.Minute
)

// DispatcherConfig tunes a dispatcher pass
type DispatcherConfig struct {
	BatchSize  int
	StaleAfter time.Duration
}

// DispatchResult summarizes one pass
type DispatchResult struct {
	Processed    int   `json:"processed"`
	Sent         int   `json:"sent"`
	Failed       int   `json:"failed"`
	Recipients   int   `json:"recipients"`
	EmailsFailed int   `json:"emailsFailed"`
	Requeued     int64 `json:"requeued"`
	ClaimsLost   int   `json:"claimsLost"`
}

// Dispatcher delivers scheduled messages once they are due
type Dispatcher struct {
	store    DispatchStore
	users    UserDirectory
	resolver *RecipientResolver
	delivery *Delivery
	cfg      DispatcherConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher
func NewDispatcher(store DispatchStore, users UserDirectory, resolver *RecipientResolver, delivery *Delivery, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultDispatchBatch
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleClaim
	}
	return &Dispatcher{
		store:    store,
		users:    users,
		resolver: resolver,
		delivery: delivery,
		cfg:      cfg,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		now:      time.Now,
	}
}

// RunOnce claims the due messages and delivers them one after the other.
// A message that cannot be expanded or stored is marked FAILED and the pass goes on.
func (d *Dispatcher) RunOnce(ctx context.Context) (DispatchResult, error) {
	started := time.Now()
	var res DispatchResult
	err := d.run(ctx, &res)

	metrics.RecordDispatchRun(metrics.DispatchStats{
		Sent:         res.Sent,
		Failed:       res.Failed,
		Recipients:   res.Recipients,
		EmailsFailed: res.EmailsFailed,
	}, time.Since(started), err)

	evt := d.logger.Info()
	if err != nil {
		evt = d.logger.Error().Err(err)
	}
	if err != nil || res.Processed > 0 || res.Requeued > 0 {
		evt.Int("processed", res.Processed).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Int("recipients", res.Recipients).
			Int("emailsFailed", res.EmailsFailed).
			Int64("requeued", res.Requeued).
			Int("claimsLost", res.ClaimsLost).
			Dur("duration", time.Since(started)).
			Msg("Dispatcher pass finished")
	}
	return res, err
}

func (d *Dispatcher) run(ctx context.Context, res *DispatchResult) error {
	now := d.now().UTC()

	requeued, err := d.store.RequeueStale(ctx, now.Add(-d.cfg.StaleAfter))
	if err != nil {
		return fmt.Errorf("error requeueing stale messages: %w", err)
	}
	res.Requeued = requeued

	due, err := d.store.ClaimDue(ctx, now, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("error claiming due messages: %w", err)
	}

	for i := range due {
		// Unprocessed claims go back to PENDING through RequeueStale.
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Processed++
		recipients, emailsFailed, err := d.dispatch(ctx, &due[i])
		if errors.Is(err, apperrors.ErrClaimLost) {
			res.ClaimsLost++
			d.logger.Warn().Int64("messageId", due[i].ID).Msg("Claim lost before delivery, skipping message")
			continue
		}
		if err != nil {
			res.Failed++
			d.logger.Warn().Err(err).Int64("messageId", due[i].ID).Msg("Scheduled message failed")
			if markErr := d.store.MarkFailed(ctx, due[i].ID, err.Error()); markErr != nil {
				d.logger.Error().Err(markErr).Int64("messageId", due[i].ID).Msg("Failed to record message failure")
			}
			continue
		}
		res.Sent++
		res.Recipients += recipients
		res.EmailsFailed += emailsFailed
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *models.Message) (int, int, error) {
	recipients, err := d.resolver.Resolve(ctx, msg.EstablishmentID, msg.SenderID, msg.Recipients)
	if err != nil {
		return 0, 0, err
	}
	if len(recipients) == 0 {
		return 0, 0, apperrors.ErrNoRecipients
	}

	sentAt := d.now().UTC()
	if err := d.store.MarkSent(ctx, msg.ID, userIDs(recipients), sentAt); err != nil {
		return 0, 0, err
	}
	msg.Status = models.MessageSent
	msg.SentAt = &sentAt
	msg.RecipientCount = len(recipients)

	senderName := ""
	if sender, err := d.users.GetByID(ctx, msg.SenderID); err == nil {
		senderName = sender.FullName()
	}
	return len(recipients), d.delivery.Deliver(ctx, msg, senderName, recipients), nil
}
