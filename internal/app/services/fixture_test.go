package services

import (
	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/app/models"
)

const (
	estA int64 = 1
	estB int64 = 2
)

// fixture is two establishments with their users and one formation in estA
type fixture struct {
	users      *fakeUsers
	formations *fakeFormations
	messages   *fakeMessages
	publisher  *fakePublisher
	notifier   *fakeNotifier
	meetings   *fakeMeetings

	admin, trainer, alice, bob, carol *models.User
	outsider                          *models.User
	formation                         *models.Formation
}

func newFixture() *fixture {
	formations := newFakeFormations()
	users := newFakeUsers(formations)
	formations.users = users

	fx := &fixture{
		users:      users,
		formations: formations,
		messages:   newFakeMessages(),
		publisher:  &fakePublisher{},
		notifier:   &fakeNotifier{failFor: map[string]bool{}},
		meetings:   newFakeMeetings(),
	}
	fx.admin = users.add(estA, models.RoleAdmin, "Admin")
	fx.trainer = users.add(estA, models.RoleTrainer, "Trainer")
	fx.alice = users.add(estA, models.RoleStudent, "Alice")
	fx.bob = users.add(estA, models.RoleStudent, "Bob")
	fx.carol = users.add(estA, models.RoleStudent, "Carol")
	fx.outsider = users.add(estB, models.RoleStudent, "Outsider")

	fx.formation = formations.add(estA, "Go avancé")
	formations.enroll(fx.formation.ID, fx.trainer, models.ParticipantTrainer)
	formations.enroll(fx.formation.ID, fx.alice, models.ParticipantStudent)
	formations.enroll(fx.formation.ID, fx.bob, models.ParticipantStudent)
	return fx
}

func (fx *fixture) deactivate(u *models.User) {
	fx.users.mu.Lock()
	defer fx.users.mu.Unlock()
	fx.users.byID[u.ID].IsActive = false
}

func (fx *fixture) resolver() *RecipientResolver {
	return NewRecipientResolver(fx.users, fx.formations)
}

func (fx *fixture) delivery() *Delivery {
	return NewDelivery(fx.publisher, fx.notifier, zerolog.Nop())
}

func (fx *fixture) messaging() *messagingServiceImpl {
	svc := NewMessagingService(fx.messages, fx.users, fx.resolver(), fx.delivery(), zerolog.Nop()).(*messagingServiceImpl)
	svc.now = fixedClock
	return svc
}

func (fx *fixture) dispatcher() *Dispatcher {
	d := NewDispatcher(fx.messages, fx.users, fx.resolver(), fx.delivery(), DispatcherConfig{BatchSize: 10}, zerolog.Nop())
	d.now = fixedClock
	return d
}

func ids(users []models.User) []int64 {
	return userIDs(users)
}
