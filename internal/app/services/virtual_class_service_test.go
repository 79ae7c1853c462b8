package services

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/helpers"
)

type classFixture struct {
	*fixture
	classes  *fakeClasses
	provider *fakeProvider
	svc      VirtualClassService
}

func newClassFixture() *classFixture {
	fx := newFixture()
	cf := &classFixture{fixture: fx, classes: newFakeClasses(), provider: &fakeProvider{}}
	signaling := NewSignalingService(newFakeSignaling(), fx.publisher, SignalingConfig{}, zerolog.Nop())
	cf.svc = NewVirtualClassService(cf.classes, fx.formations, cf.provider, signaling, fx.notifier, zerolog.Nop())
	return cf
}

func (cf *classFixture) request(code *string) *dto.CreateVirtualClassRequest {
	return &dto.CreateVirtualClassRequest{
		FormationID: cf.formation.ID,
		Title:       "Classe virtuelle",
		AccessCode:  code,
	}
}

func TestCreateVirtualClass_ProvisionsRoomAndInvites(t *testing.T) {
	cf := newClassFixture()

	vc, err := cf.svc.CreateVirtualClass(asUser(cf.trainer), cf.request(nil))

	require.NoError(t, err)
	require.Len(t, cf.provider.created, 1)
	assert.Equal(t, cf.provider.created[0], vc.RoomName)
	assert.Equal(t, "https://video.test/"+vc.RoomName, vc.RoomURL)
	assert.Equal(t, "fake", vc.Provider)
	assert.False(t, vc.HasAccessCode())
	assert.ElementsMatch(t, []string{"class:alice@example.com", "class:bob@example.com"}, cf.notifier.sent)
}

func TestCreateVirtualClass_ProviderDown(t *testing.T) {
	cf := newClassFixture()
	cf.provider.createErr = errBoom

	_, err := cf.svc.CreateVirtualClass(asUser(cf.trainer), cf.request(nil))

	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, cf.classes.byID)
}

func TestCreateVirtualClass_ReleasesRoomWhenStoreFails(t *testing.T) {
	cf := newClassFixture()
	cf.classes.createErr = errBoom

	_, err := cf.svc.CreateVirtualClass(asUser(cf.trainer), cf.request(nil))

	require.Error(t, err)
	assert.Equal(t, cf.provider.created, cf.provider.deleted)
}

func TestCreateVirtualClass_StudentsCannotCreate(t *testing.T) {
	cf := newClassFixture()

	_, err := cf.svc.CreateVirtualClass(asUser(cf.alice), cf.request(nil))

	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.Empty(t, cf.provider.created)
}

func TestJoinVirtualClass_AccessCode(t *testing.T) {
	cf := newClassFixture()
	vc, err := cf.svc.CreateVirtualClass(asUser(cf.trainer), cf.request(helpers.Ptr("s3cret")))
	require.NoError(t, err)
	require.True(t, vc.HasAccessCode())
	assert.NotEqual(t, "s3cret", *vc.AccessCodeHash)

	_, err = cf.svc.Join(asUser(cf.alice), vc.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccessCode)
	_, err = cf.svc.Join(asUser(cf.alice), vc.ID, "wrong")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccessCode)

	res, err := cf.svc.Join(asUser(cf.alice), vc.ID, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, vc.RoomURL, res.RoomURL)
	assert.Empty(t, res.Peers)

	res, err = cf.svc.Join(asUser(cf.trainer), vc.ID, "")
	require.NoError(t, err)
	require.Len(t, res.Peers, 1)
	assert.Equal(t, cf.alice.ID, res.Peers[0].UserID)
}

func TestJoinVirtualClass_OnlyParticipants(t *testing.T) {
	cf := newClassFixture()
	vc, err := cf.svc.CreateVirtualClass(asUser(cf.trainer), cf.request(nil))
	require.NoError(t, err)

	_, err = cf.svc.Join(asUser(cf.carol), vc.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = cf.svc.Join(asUser(cf.outsider), vc.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrTenantMismatch)
}

func TestDeleteVirtualClass_DeletesRoom(t *testing.T) {
	cf := newClassFixture()
	vc, err := cf.svc.CreateVirtualClass(asUser(cf.trainer), cf.request(nil))
	require.NoError(t, err)

	require.NoError(t, cf.svc.DeleteVirtualClass(asUser(cf.admin), vc.ID))

	assert.Equal(t, []string{vc.RoomName}, cf.provider.deleted)
	_, err = cf.svc.GetVirtualClass(asUser(cf.trainer), vc.ID)
	assert.ErrorIs(t, err, apperrors.ErrVirtualClassNotFound)
}
