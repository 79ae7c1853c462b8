package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/realtime"
)

// MessageNotice is the payload of a message.new event
type MessageNotice struct {
	MessageID  int64     `json:"messageId"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	Subject    string    `json:"subject"`
	SentAt     time.Time `json:"sentAt"`
}

// Delivery pushes a stored message to its recipients: a realtime event each, then
// a notification email each. Both are best effort.
type Delivery struct {
	publisher realtime.Publisher
	notifier  Notifications
	logger    zerolog.Logger

	background sync.WaitGroup
}

// NewDelivery creates the fan-out used by immediate sends and the dispatcher.
// notifier may be nil to disable emails.
func NewDelivery(publisher realtime.Publisher, notifier Notifications, logger zerolog.Logger) *Delivery {
	return &Delivery{publisher: publisher, notifier: notifier, logger: logger}
}

// Deliver publishes the events and sends the emails, returning the number of
// emails that could not be sent.
func (d *Delivery) Deliver(ctx context.Context, msg *models.Message, senderName string, recipients []models.User) int {
	d.publish(ctx, msg, senderName, recipients)
	return d.notify(ctx, msg, senderName, recipients)
}

// DeliverDetached publishes the events, then sends the emails on a goroutine
// that outlives ctx. Wait blocks until those goroutines are done.
func (d *Delivery) DeliverDetached(ctx context.Context, msg *models.Message, senderName string, recipients []models.User) {
	d.publish(ctx, msg, senderName, recipients)
	if d.notifier == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	d.background.Add(1)
	go func() {
		defer d.background.Done()
		if failed := d.notify(detached, msg, senderName, recipients); failed > 0 {
			d.logger.Warn().Int64("messageId", msg.ID).Int("emailsFailed", failed).Msg("Some message notifications were not sent")
		}
	}()
}

// Wait blocks until every detached email fan-out has finished
func (d *Delivery) Wait() {
	d.background.Wait()
}

func (d *Delivery) publish(ctx context.Context, msg *models.Message, senderName string, recipients []models.User) {
	sentAt := time.Now()
	if msg.SentAt != nil {
		sentAt = *msg.SentAt
	}
	notice := MessageNotice{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		SenderName: senderName,
		Subject:    msg.Subject,
		SentAt:     sentAt,
	}

	for _, u := range recipients {
		ev, err := realtime.NewEvent(realtime.EventMessageNew, u.ID, notice)
		if err != nil {
			d.logger.Error().Err(err).Int64("messageId", msg.ID).Msg("Failed to encode message event")
			break
		}
		if err := d.publisher.Publish(ctx, u.ID, ev); err != nil {
			d.logger.Warn().Err(err).Int64("messageId", msg.ID).Int64("userId", u.ID).Msg("Failed to publish message event")
		}
	}
}

func (d *Delivery) notify(ctx context.Context, msg *models.Message, senderName string, recipients []models.User) int {
	if d.notifier == nil {
		return 0
	}
	failed := 0
	for i := range recipients {
		u := &recipients[i]
		if err := d.notifier.MessageReceived(ctx, addressOf(u), senderName, msg.Subject, msg.ID); err != nil {
			failed++
			d.logger.Warn().Err(err).Int64("messageId", msg.ID).Int64("userId", u.ID).Msg("Failed to send message notification")
		}
	}
	return failed
}
