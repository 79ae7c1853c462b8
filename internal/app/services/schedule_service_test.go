package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
)

func newScheduleFixture(t *testing.T) (*fixture, ScheduleService, *models.Schedule) {
	t.Helper()
	fx := newFixture()
	svc := NewScheduleService(newFakeSchedules(), fx.formations, fx.users, fx.meetings, zerolog.Nop())
	sch, err := svc.CreateSchedule(asUser(fx.trainer), &dto.CreateScheduleRequest{FormationID: fx.formation.ID, Title: "Semestre 1"})
	require.NoError(t, err)
	return fx, svc, sch
}

func slotAt(startHour, endHour int) *dto.CreateSlotRequest {
	day := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	return &dto.CreateSlotRequest{
		StartsAt: day.Add(time.Duration(startHour) * time.Hour),
		EndsAt:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestAddSlot_RejectsOverlap(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)
	ctx := asUser(fx.trainer)

	_, err := svc.AddSlot(ctx, sch.ID, slotAt(9, 12))
	require.NoError(t, err)

	_, err = svc.AddSlot(ctx, sch.ID, slotAt(11, 13))
	assert.ErrorIs(t, err, apperrors.ErrSlotOverlap)

	// touching intervals do not overlap
	_, err = svc.AddSlot(ctx, sch.ID, slotAt(12, 14))
	require.NoError(t, err)
}

func TestAddSlot_EndMustFollowStart(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)

	_, err := svc.AddSlot(asUser(fx.trainer), sch.ID, slotAt(10, 10))

	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestUpdateSlot_IgnoresItself(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)
	ctx := asUser(fx.trainer)
	slot, err := svc.AddSlot(ctx, sch.ID, slotAt(9, 12))
	require.NoError(t, err)
	_, err = svc.AddSlot(ctx, sch.ID, slotAt(14, 16))
	require.NoError(t, err)

	end := slot.EndsAt.Add(time.Hour)
	updated, err := svc.UpdateSlot(ctx, slot.ID, &dto.UpdateSlotRequest{EndsAt: &end})
	require.NoError(t, err)
	assert.Equal(t, end, updated.EndsAt)

	end = slot.EndsAt.Add(3 * time.Hour)
	_, err = svc.UpdateSlot(ctx, slot.ID, &dto.UpdateSlotRequest{EndsAt: &end})
	assert.ErrorIs(t, err, apperrors.ErrSlotOverlap)
}

func TestAddSlot_ChecksModuleAndTrainer(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)
	ctx := asUser(fx.trainer)

	other := fx.formations.add(estA, "Autre")
	foreignModule := &models.FormationModule{FormationID: other.ID, Title: "Hors sujet"}
	require.NoError(t, fx.formations.CreateModule(context.Background(), foreignModule))

	req := slotAt(9, 10)
	req.ModuleID = &foreignModule.ID
	_, err := svc.AddSlot(ctx, sch.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	req = slotAt(9, 10)
	req.TrainerID = &fx.alice.ID
	_, err = svc.AddSlot(ctx, sch.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	foreignTrainer := fx.users.add(estB, models.RoleTrainer, "Foreign")
	req = slotAt(9, 10)
	req.TrainerID = &foreignTrainer.ID
	_, err = svc.AddSlot(ctx, sch.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrTenantMismatch)

	req = slotAt(9, 10)
	req.TrainerID = &fx.trainer.ID
	slot, err := svc.AddSlot(ctx, sch.ID, req)
	require.NoError(t, err)
	assert.Equal(t, fx.formation.ID, slot.FormationID)
}

func TestAddSlot_StudentsCannotEdit(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)

	_, err := svc.AddSlot(asUser(fx.alice), sch.ID, slotAt(9, 10))

	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestFormationSlots_Window(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)
	_, err := svc.AddSlot(asUser(fx.trainer), sch.ID, slotAt(9, 12))
	require.NoError(t, err)
	day := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)

	slots, err := svc.FormationSlots(asUser(fx.alice), fx.formation.ID, dto.SlotWindowQuery{From: day, To: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	_, err = svc.FormationSlots(asUser(fx.alice), fx.formation.ID, dto.SlotWindowQuery{From: day, To: day.AddDate(2, 0, 0)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.FormationSlots(asUser(fx.carol), fx.formation.ID, dto.SlotWindowQuery{From: day, To: day.Add(time.Hour)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestAddSlot_ChecksMeetingTenant(t *testing.T) {
	fx, svc, sch := newScheduleFixture(t)
	ctx := asUser(fx.trainer)
	day := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)

	own := &models.Meeting{EstablishmentID: estA, Title: "Kick-off", StartsAt: day.Add(9 * time.Hour), EndsAt: day.Add(10 * time.Hour)}
	foreign := &models.Meeting{EstablishmentID: estB, Title: "Elsewhere", StartsAt: day.Add(9 * time.Hour), EndsAt: day.Add(10 * time.Hour)}
	require.NoError(t, fx.meetings.Create(context.Background(), own))
	require.NoError(t, fx.meetings.Create(context.Background(), foreign))

	req := slotAt(9, 10)
	req.MeetingID = &foreign.ID
	_, err := svc.AddSlot(ctx, sch.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrTenantMismatch)

	missing := int64(999)
	req.MeetingID = &missing
	_, err = svc.AddSlot(ctx, sch.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrMeetingNotFound)

	req.MeetingID = &own.ID
	slot, err := svc.AddSlot(ctx, sch.ID, req)
	require.NoError(t, err)

	_, err = svc.UpdateSlot(ctx, slot.ID, &dto.UpdateSlotRequest{MeetingID: &foreign.ID})
	assert.ErrorIs(t, err, apperrors.ErrTenantMismatch)
}
