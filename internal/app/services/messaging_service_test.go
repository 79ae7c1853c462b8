package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
	"github.com/yigit/formatrack/internal/pkg/realtime"
)

func formationMessage(fx *fixture) *dto.SendMessageRequest {
	return &dto.SendMessageRequest{
		Subject: "Salle B12",
		Body:    "Le cours de demain a lieu en B12.",
		Recipients: models.RecipientSpec{
			Type:        models.RecipientFormation,
			FormationID: &fx.formation.ID,
			Role:        helpers.Ptr(models.RoleStudent),
		},
	}
}

func TestSend_ImmediateDeliversToEveryRecipient(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()

	msg, err := svc.Send(asUser(fx.trainer), formationMessage(fx))
	svc.delivery.Wait()

	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.Equal(t, 2, msg.RecipientCount)
	require.NotNil(t, msg.SentAt)
	assert.Equal(t, t0, *msg.SentAt)
	assert.Equal(t, []int64{fx.alice.ID, fx.bob.ID}, fx.messages.recipients[msg.ID])
	assert.Equal(t, []int64{fx.alice.ID, fx.bob.ID}, fx.publisher.receivers(realtime.EventMessageNew))
	assert.ElementsMatch(t, []string{"message:alice@example.com", "message:bob@example.com"}, fx.notifier.sent)
}

func TestSend_EmailFailureDoesNotFailTheSend(t *testing.T) {
	fx := newFixture()
	fx.notifier.failFor[fx.alice.Email] = true
	svc := fx.messaging()

	msg, err := svc.Send(asUser(fx.trainer), formationMessage(fx))
	svc.delivery.Wait()

	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.Equal(t, []int64{fx.alice.ID, fx.bob.ID}, fx.publisher.receivers(realtime.EventMessageNew))
	assert.Equal(t, []string{"message:bob@example.com"}, fx.notifier.sent)
}

func TestSend_EmailsOutliveTheRequest(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()
	// the client went away before the fan-out
	ctx, cancel := context.WithCancel(asUser(fx.trainer))
	cancel()

	msg, err := svc.Send(ctx, formationMessage(fx))
	svc.delivery.Wait()

	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.ElementsMatch(t, []string{"message:alice@example.com", "message:bob@example.com"}, fx.notifier.sent)
}

func TestSend_FutureMessageIsScheduled(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()
	req := formationMessage(fx)
	req.ScheduledAt = helpers.Ptr(t0.Add(time.Hour))

	msg, err := svc.Send(asUser(fx.trainer), req)

	require.NoError(t, err)
	assert.Equal(t, models.MessagePending, msg.Status)
	assert.Nil(t, msg.SentAt)
	assert.Empty(t, fx.publisher.receivers(realtime.EventMessageNew))
	assert.Empty(t, fx.messages.recipients[msg.ID])
}

func TestSend_PastScheduleIsSentNow(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()
	req := formationMessage(fx)
	req.ScheduledAt = helpers.Ptr(t0.Add(-time.Minute))

	msg, err := svc.Send(asUser(fx.trainer), req)

	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, msg.Status)
}

func TestSend_StudentsOnlyWriteToNamedUsers(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()

	_, err := svc.Send(asUser(fx.alice), formationMessage(fx))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	msg, err := svc.Send(asUser(fx.alice), &dto.SendMessageRequest{
		Subject:    "Question",
		Body:       "Bonjour",
		Recipients: models.RecipientSpec{Type: models.RecipientUsers, UserIDs: []int64{fx.trainer.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, msg.RecipientCount)
}

func TestSend_NoRecipients(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()

	_, err := svc.Send(asUser(fx.alice), &dto.SendMessageRequest{
		Subject:    "Moi",
		Body:       "Note",
		Recipients: models.RecipientSpec{Type: models.RecipientUsers, UserIDs: []int64{fx.alice.ID, fx.outsider.ID}},
	})

	assert.ErrorIs(t, err, apperrors.ErrNoRecipients)
	assert.Empty(t, fx.messages.byID)
}

func TestSend_RejectsBlankSubject(t *testing.T) {
	fx := newFixture()
	req := formationMessage(fx)
	req.Subject = "   "

	_, err := fx.messaging().Send(asUser(fx.trainer), req)

	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestGetMessage_HiddenFromNonParticipants(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()
	msg, err := svc.Send(asUser(fx.trainer), formationMessage(fx))
	require.NoError(t, err)

	item, err := svc.GetMessage(asUser(fx.alice), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, item.ID)

	_, err = svc.GetMessage(asUser(fx.carol), msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)

	own, err := svc.GetMessage(asUser(fx.trainer), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trainer Test", own.SenderName)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()
	msg, err := svc.Send(asUser(fx.trainer), formationMessage(fx))
	require.NoError(t, err)

	n, err := svc.UnreadCount(asUser(fx.alice))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, svc.MarkRead(asUser(fx.alice), msg.ID))
	n, err = svc.UnreadCount(asUser(fx.alice))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestCancel(t *testing.T) {
	fx := newFixture()
	svc := fx.messaging()
	req := formationMessage(fx)
	req.ScheduledAt = helpers.Ptr(t0.Add(time.Hour))
	scheduled, err := svc.Send(asUser(fx.trainer), req)
	require.NoError(t, err)

	err = svc.Cancel(asUser(fx.admin), scheduled.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, svc.Cancel(asUser(fx.trainer), scheduled.ID))
	assert.Equal(t, models.MessageCancelled, fx.messages.get(scheduled.ID).Status)

	sent, err := svc.Send(asUser(fx.trainer), formationMessage(fx))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Cancel(asUser(fx.trainer), sent.ID), apperrors.ErrMessageAlreadySent)
}
