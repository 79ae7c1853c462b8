package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
	"github.com/yigit/formatrack/internal/pkg/realtime"
)

func schedule(t *testing.T, fx *fixture, sender *models.User, at time.Time, spec models.RecipientSpec) *models.Message {
	t.Helper()
	m := &models.Message{
		EstablishmentID: estA,
		SenderID:        sender.ID,
		Subject:         "Rappel",
		Body:            "Examen vendredi",
		Recipients:      spec,
		Status:          models.MessagePending,
		ScheduledAt:     &at,
	}
	require.NoError(t, fx.messages.Create(context.Background(), m))
	return m
}

func studentsOf(fx *fixture) models.RecipientSpec {
	return models.RecipientSpec{
		Type:        models.RecipientFormation,
		FormationID: &fx.formation.ID,
		Role:        helpers.Ptr(models.RoleStudent),
	}
}

func TestDispatcher_SendsDueMessagesOnly(t *testing.T) {
	fx := newFixture()
	due := schedule(t, fx, fx.trainer, t0.Add(-time.Minute), studentsOf(fx))
	later := schedule(t, fx, fx.trainer, t0.Add(time.Hour), studentsOf(fx))

	res, err := fx.dispatcher().RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Recipients)

	sent := fx.messages.get(due.ID)
	assert.Equal(t, models.MessageSent, sent.Status)
	assert.Equal(t, 2, sent.RecipientCount)
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, t0, *sent.SentAt)
	assert.Equal(t, models.MessagePending, fx.messages.get(later.ID).Status)
	assert.Equal(t, []int64{fx.alice.ID, fx.bob.ID}, fx.publisher.receivers(realtime.EventMessageNew))
}

func TestDispatcher_FailureDoesNotStopThePass(t *testing.T) {
	fx := newFixture()
	empty := schedule(t, fx, fx.alice, t0.Add(-2*time.Minute), models.RecipientSpec{
		Type:    models.RecipientUsers,
		UserIDs: []int64{fx.alice.ID},
	})
	gone := fx.formations.add(estA, "Supprimée")
	require.NoError(t, fx.formations.Delete(context.Background(), gone.ID))
	broken := schedule(t, fx, fx.trainer, t0.Add(-time.Minute), models.RecipientSpec{
		Type:        models.RecipientFormation,
		FormationID: &gone.ID,
	})
	ok := schedule(t, fx, fx.trainer, t0, studentsOf(fx))

	res, err := fx.dispatcher().RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Failed)

	failed := fx.messages.get(empty.ID)
	assert.Equal(t, models.MessageFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, apperrors.ErrNoRecipients.Error(), *failed.ErrorMessage)
	assert.Equal(t, models.MessageFailed, fx.messages.get(broken.ID).Status)
	assert.Equal(t, models.MessageSent, fx.messages.get(ok.ID).Status)
}

func TestDispatcher_StoreErrorMarksFailed(t *testing.T) {
	fx := newFixture()
	m := schedule(t, fx, fx.trainer, t0, studentsOf(fx))
	fx.messages.markSentErrs[m.ID] = errBoom

	res, err := fx.dispatcher().RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, models.MessageFailed, fx.messages.get(m.ID).Status)
	assert.Empty(t, fx.publisher.receivers(realtime.EventMessageNew))
}

func TestDispatcher_EmailFailuresAreCountedNotFatal(t *testing.T) {
	fx := newFixture()
	fx.notifier.failFor[fx.bob.Email] = true
	m := schedule(t, fx, fx.trainer, t0, studentsOf(fx))

	res, err := fx.dispatcher().RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.EmailsFailed)
	assert.Equal(t, models.MessageSent, fx.messages.get(m.ID).Status)
}

func TestDispatcher_ClaimErrorAbortsThePass(t *testing.T) {
	fx := newFixture()
	fx.messages.claimErr = errBoom

	_, err := fx.dispatcher().RunOnce(context.Background())

	assert.ErrorIs(t, err, errBoom)
}

func TestDispatcher_CancelledContextStopsBetweenMessages(t *testing.T) {
	fx := newFixture()
	m := schedule(t, fx, fx.trainer, t0, studentsOf(fx))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := fx.dispatcher().RunOnce(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Processed)
	// left claimed for RequeueStale
	assert.Equal(t, models.MessageProcessing, fx.messages.get(m.ID).Status)
}

func TestDispatcher_SecondPassFindsNothing(t *testing.T) {
	fx := newFixture()
	schedule(t, fx, fx.trainer, t0, studentsOf(fx))
	d := fx.dispatcher()

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	res, err := d.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Len(t, fx.publisher.receivers(realtime.EventMessageNew), 2)
}

func TestDispatcher_TagsComponentOnce(t *testing.T) {
	fx := newFixture()
	schedule(t, fx, fx.trainer, t0.Add(-time.Minute), studentsOf(fx))
	var buf bytes.Buffer
	d := NewDispatcher(fx.messages, fx.users, fx.resolver(), fx.delivery(), DispatcherConfig{BatchSize: 10}, zerolog.New(&buf))
	d.now = fixedClock

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"component"`), line)
	}
}

func TestDispatcher_SkipsLostClaim(t *testing.T) {
	fx := newFixture()
	lost := schedule(t, fx, fx.trainer, t0.Add(-time.Minute), studentsOf(fx))
	// another pass requeued the row between claim and delivery
	fx.messages.afterClaim = func(m *models.Message) {
		m.Status = models.MessagePending
	}

	res, err := fx.dispatcher().RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, res.ClaimsLost)
	assert.Equal(t, models.MessagePending, fx.messages.get(lost.ID).Status)
	assert.Nil(t, fx.messages.get(lost.ID).ErrorMessage)
	assert.Empty(t, fx.publisher.receivers(realtime.EventMessageNew))
}
