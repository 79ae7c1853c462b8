package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/email"
	"github.com/yigit/formatrack/internal/pkg/filestorage"
	"github.com/yigit/formatrack/internal/pkg/realtime"
	"github.com/yigit/formatrack/internal/pkg/video"
)

var (
	t0 = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	errBoom = errors.New("boom")
)

func fixedClock() time.Time { return t0 }

func asUser(u *models.User) context.Context {
	p := auth.Principal{UserID: u.ID, Role: u.Role, Email: u.Email}
	if u.EstablishmentID != nil {
		p.EstablishmentID = *u.EstablishmentID
	}
	return auth.WithPrincipal(context.Background(), p)
}

// ---- users

type fakeUsers struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*models.User
	formations *fakeFormations
}

func newFakeUsers(formations *fakeFormations) *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}, formations: formations}
}

func (f *fakeUsers) add(est int64, role models.Role, first string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &models.User{
		ID:        f.nextID,
		Email:     strings.ToLower(first) + "@example.com",
		FirstName: first,
		LastName:  "Test",
		Role:      role,
		IsActive:  true,
	}
	if est != 0 {
		e := est
		u.EstablishmentID = &e
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.byID {
		if filter.EstablishmentID != nil && tenantOf(u) != *filter.EstablishmentID {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeUsers) Update(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

// The directory methods deliberately return raw rows, duplicates and inactive
// users included, so the resolver's own filtering is exercised.

func (f *fakeUsers) ListActiveByIDs(ctx context.Context, establishmentID int64, ids []int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok && tenantOf(u) == establishmentID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ListActiveByRole(ctx context.Context, establishmentID int64, role models.Role) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.byID {
		if tenantOf(u) == establishmentID && u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ListActiveFormationMembers(ctx context.Context, formationID int64, role *models.ParticipantRole) ([]models.User, error) {
	parts, _ := f.formations.ListParticipants(ctx, formationID)
	var out []models.User
	for _, p := range parts {
		if role != nil && p.Role != *role {
			continue
		}
		if u, err := f.GetByID(ctx, p.UserID); err == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

// ---- establishments

type fakeEstablishments struct {
	nextID int64
	byID   map[int64]*models.Establishment
}

func newFakeEstablishments() *fakeEstablishments {
	return &fakeEstablishments{byID: map[int64]*models.Establishment{}}
}

func (f *fakeEstablishments) Create(ctx context.Context, e *models.Establishment) error {
	for _, existing := range f.byID {
		if existing.Slug == e.Slug {
			return apperrors.ErrSlugAlreadyExists
		}
	}
	f.nextID++
	e.ID = f.nextID
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEstablishments) GetByID(ctx context.Context, id int64) (*models.Establishment, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrEstablishmentNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEstablishments) List(ctx context.Context, activeOnly bool, page, size int) ([]models.Establishment, int64, error) {
	var out []models.Establishment
	for _, e := range f.byID {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeEstablishments) Update(ctx context.Context, e *models.Establishment) error {
	if _, ok := f.byID[e.ID]; !ok {
		return apperrors.ErrEstablishmentNotFound
	}
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

// ---- formations

type fakeFormations struct {
	mu           sync.Mutex
	nextID       int64
	byID         map[int64]*models.Formation
	modules      map[int64]*models.FormationModule
	participants map[int64][]models.FormationParticipant
	users        *fakeUsers
}

func newFakeFormations() *fakeFormations {
	return &fakeFormations{
		byID:         map[int64]*models.Formation{},
		modules:      map[int64]*models.FormationModule{},
		participants: map[int64][]models.FormationParticipant{},
	}
}

func (f *fakeFormations) add(est int64, title string) *models.Formation {
	fm := &models.Formation{EstablishmentID: est, Title: title, Status: models.FormationPublished}
	_ = f.Create(context.Background(), fm)
	return fm
}

func (f *fakeFormations) enroll(formationID int64, u *models.User, role models.ParticipantRole) {
	_ = f.AddParticipant(context.Background(), &models.FormationParticipant{FormationID: formationID, UserID: u.ID, Role: role})
}

func (f *fakeFormations) Create(ctx context.Context, fm *models.Formation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	fm.ID = f.nextID
	cp := *fm
	f.byID[fm.ID] = &cp
	return nil
}

func (f *fakeFormations) GetByID(ctx context.Context, id int64) (*models.Formation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fm, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrFormationNotFound
	}
	cp := *fm
	return &cp, nil
}

func (f *fakeFormations) List(ctx context.Context, filter models.FormationFilter) ([]models.Formation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Formation
	for _, fm := range f.byID {
		if fm.EstablishmentID != filter.EstablishmentID {
			continue
		}
		if filter.ParticipantID != nil {
			found := false
			for _, p := range f.participants[fm.ID] {
				if p.UserID == *filter.ParticipantID {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *fm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeFormations) Update(ctx context.Context, fm *models.Formation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *fm
	f.byID[fm.ID] = &cp
	return nil
}

func (f *fakeFormations) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperrors.ErrFormationNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeFormations) CreateModule(ctx context.Context, m *models.FormationModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	pos := 0
	for _, existing := range f.modules {
		if existing.FormationID == m.FormationID && existing.Position > pos {
			pos = existing.Position
		}
	}
	m.Position = pos + 1
	cp := *m
	f.modules[m.ID] = &cp
	return nil
}

func (f *fakeFormations) GetModule(ctx context.Context, id int64) (*models.FormationModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modules[id]
	if !ok {
		return nil, apperrors.ErrModuleNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeFormations) ListModules(ctx context.Context, formationID int64) ([]models.FormationModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.FormationModule{}
	for _, m := range f.modules {
		if m.FormationID == formationID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeFormations) UpdateModule(ctx context.Context, m *models.FormationModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.modules[m.ID] = &cp
	return nil
}

func (f *fakeFormations) DeleteModule(ctx context.Context, m *models.FormationModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.modules, m.ID)
	return nil
}

func (f *fakeFormations) ReorderModules(ctx context.Context, formationID int64, moduleIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range moduleIDs {
		m, ok := f.modules[id]
		if !ok || m.FormationID != formationID {
			return apperrors.NewBadRequestError("moduleIds must list every module of the formation exactly once")
		}
		m.Position = i + 1
	}
	return nil
}

func (f *fakeFormations) AddParticipant(ctx context.Context, p *models.FormationParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.participants[p.FormationID] {
		if existing.UserID == p.UserID {
			return apperrors.ErrAlreadyEnrolled
		}
	}
	p.EnrolledAt = t0
	f.participants[p.FormationID] = append(f.participants[p.FormationID], *p)
	return nil
}

func (f *fakeFormations) RemoveParticipant(ctx context.Context, formationID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.participants[formationID]
	for i, p := range list {
		if p.UserID == userID {
			f.participants[formationID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotParticipant
}

func (f *fakeFormations) GetParticipant(ctx context.Context, formationID, userID int64) (*models.FormationParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants[formationID] {
		if p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotParticipant
}

func (f *fakeFormations) ListParticipants(ctx context.Context, formationID int64) ([]models.FormationParticipant, error) {
	f.mu.Lock()
	list := append([]models.FormationParticipant{}, f.participants[formationID]...)
	f.mu.Unlock()
	if f.users != nil {
		for i := range list {
			if u, err := f.users.GetByID(ctx, list[i].UserID); err == nil {
				list[i].User = u
			}
		}
	}
	return list, nil
}

// ---- messages

type fakeMessages struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*models.Message
	recipients map[int64][]int64
	reads      map[[2]int64]bool

	claimErr     error
	markSentErrs map[int64]error
	// afterClaim runs under the lock once ClaimDue has flipped the rows
	afterClaim func(m *models.Message)
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{
		byID:         map[int64]*models.Message{},
		recipients:   map[int64][]int64{},
		reads:        map[[2]int64]bool{},
		markSentErrs: map[int64]error{},
	}
}

func (f *fakeMessages) get(id int64) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeMessages) Create(ctx context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = t0
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeMessages) CreateDelivered(ctx context.Context, m *models.Message, recipientIDs []int64) error {
	if err := f.Create(ctx, m); err != nil {
		return err
	}
	f.mu.Lock()
	f.recipients[m.ID] = append([]int64{}, recipientIDs...)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessages) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) isRecipient(messageID, userID int64) bool {
	for _, id := range f.recipients[messageID] {
		if id == userID {
			return true
		}
	}
	return false
}

func (f *fakeMessages) GetInboxItem(ctx context.Context, messageID, userID int64) (*models.InboxItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[messageID]
	if !ok || !f.isRecipient(messageID, userID) {
		return nil, apperrors.ErrMessageNotFound
	}
	return &models.InboxItem{Message: *m}, nil
}

func (f *fakeMessages) ListInbox(ctx context.Context, filter models.InboxFilter) ([]models.InboxItem, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InboxItem
	for id, m := range f.byID {
		if !f.isRecipient(id, filter.UserID) {
			continue
		}
		if filter.UnreadOnly && f.reads[[2]int64{id, filter.UserID}] {
			continue
		}
		out = append(out, models.InboxItem{Message: *m})
	}
	return out, int64(len(out)), nil
}

func (f *fakeMessages) ListSent(ctx context.Context, senderID int64, page, size int) ([]models.Message, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.byID {
		if m.SenderID == senderID {
			out = append(out, *m)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeMessages) MarkRead(ctx context.Context, messageID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isRecipient(messageID, userID) {
		return apperrors.ErrMessageNotFound
	}
	f.reads[[2]int64{messageID, userID}] = true
	return nil
}

func (f *fakeMessages) CountUnread(ctx context.Context, userID int64) (int64, error) {
	items, _, _ := f.ListInbox(ctx, models.InboxFilter{UserID: userID, UnreadOnly: true})
	return int64(len(items)), nil
}

func (f *fakeMessages) Cancel(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.byID[id]
	if m.Status != models.MessagePending {
		return apperrors.ErrMessageAlreadySent
	}
	m.Status = models.MessageCancelled
	return nil
}

func (f *fakeMessages) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.Message, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.Message
	for _, m := range f.byID {
		if m.Status == models.MessagePending && m.ScheduledAt != nil && !m.ScheduledAt.After(now) {
			due = append(due, *m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].Status = models.MessageProcessing
		f.byID[due[i].ID].Status = models.MessageProcessing
		if f.afterClaim != nil {
			f.afterClaim(f.byID[due[i].ID])
		}
	}
	return due, nil
}

func (f *fakeMessages) MarkSent(ctx context.Context, messageID int64, recipientIDs []int64, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markSentErrs[messageID]; err != nil {
		return err
	}
	m := f.byID[messageID]
	if m.Status != models.MessageProcessing {
		return apperrors.ErrClaimLost
	}
	m.Status = models.MessageSent
	m.SentAt = &sentAt
	m.RecipientCount = len(recipientIDs)
	f.recipients[messageID] = append([]int64{}, recipientIDs...)
	return nil
}

func (f *fakeMessages) MarkFailed(ctx context.Context, messageID int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.byID[messageID]
	m.Status = models.MessageFailed
	m.ErrorMessage = &reason
	return nil
}

func (f *fakeMessages) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// ---- schedules

type fakeSchedules struct {
	nextID    int64
	schedules map[int64]*models.Schedule
	slots     map[int64]*models.ScheduleSlot
}

func newFakeSchedules() *fakeSchedules {
	return &fakeSchedules{schedules: map[int64]*models.Schedule{}, slots: map[int64]*models.ScheduleSlot{}}
}

func (f *fakeSchedules) Create(ctx context.Context, s *models.Schedule) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

func (f *fakeSchedules) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, apperrors.ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSchedules) ListByFormation(ctx context.Context, formationID int64) ([]models.Schedule, error) {
	out := []models.Schedule{}
	for _, s := range f.schedules {
		if s.FormationID == formationID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) Delete(ctx context.Context, id int64) error {
	delete(f.schedules, id)
	return nil
}

func (f *fakeSchedules) CreateSlot(ctx context.Context, s *models.ScheduleSlot) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.slots[s.ID] = &cp
	return nil
}

func (f *fakeSchedules) UpdateSlot(ctx context.Context, s *models.ScheduleSlot) error {
	cp := *s
	f.slots[s.ID] = &cp
	return nil
}

func (f *fakeSchedules) GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, apperrors.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSchedules) DeleteSlot(ctx context.Context, id int64) error {
	delete(f.slots, id)
	return nil
}

func (f *fakeSchedules) ListSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleSlot, error) {
	out := []models.ScheduleSlot{}
	for _, s := range f.slots {
		if s.ScheduleID == scheduleID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeSchedules) ListSlotsInWindow(ctx context.Context, establishmentID int64, w models.SlotWindow) ([]models.ScheduleSlot, error) {
	out := []models.ScheduleSlot{}
	for _, s := range f.slots {
		sch := f.schedules[s.ScheduleID]
		if sch == nil || sch.EstablishmentID != establishmentID || !s.Overlaps(w.From, w.To) {
			continue
		}
		if w.FormationID != nil && sch.FormationID != *w.FormationID {
			continue
		}
		cp := *s
		cp.FormationID = sch.FormationID
		out = append(out, cp)
	}
	return out, nil
}

// ---- assignments

type fakeAssignments struct {
	nextID      int64
	assignments map[int64]*models.Assignment
	submissions map[int64]*models.Submission
}

func newFakeAssignments() *fakeAssignments {
	return &fakeAssignments{assignments: map[int64]*models.Assignment{}, submissions: map[int64]*models.Submission{}}
}

func (f *fakeAssignments) Create(ctx context.Context, a *models.Assignment) error {
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeAssignments) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, apperrors.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssignments) ListByFormation(ctx context.Context, formationID int64) ([]models.Assignment, error) {
	out := []models.Assignment{}
	for _, a := range f.assignments {
		if a.FormationID == formationID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAssignments) Update(ctx context.Context, a *models.Assignment) error {
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeAssignments) Delete(ctx context.Context, id int64) error {
	delete(f.assignments, id)
	return nil
}

func (f *fakeAssignments) UpsertSubmission(ctx context.Context, s *models.Submission) error {
	for _, existing := range f.submissions {
		if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
			if existing.Graded() {
				return apperrors.ErrSubmissionGraded
			}
			s.ID = existing.ID
			cp := *s
			f.submissions[s.ID] = &cp
			return nil
		}
	}
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.submissions[s.ID] = &cp
	return nil
}

func (f *fakeAssignments) GetSubmission(ctx context.Context, id int64) (*models.Submission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAssignments) GetSubmissionByStudent(ctx context.Context, assignmentID, studentID int64) (*models.Submission, error) {
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.ErrSubmissionNotFound
}

func (f *fakeAssignments) ListSubmissions(ctx context.Context, assignmentID int64) ([]models.Submission, error) {
	out := []models.Submission{}
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeAssignments) Grade(ctx context.Context, submissionID int64, score int, feedback *string, graderID int64, at time.Time) error {
	s, ok := f.submissions[submissionID]
	if !ok {
		return apperrors.ErrSubmissionNotFound
	}
	s.Score = &score
	s.Feedback = feedback
	s.GradedBy = &graderID
	s.GradedAt = &at
	return nil
}

// ---- meetings

type fakeMeetings struct {
	nextID int64
	byID   map[int64]*models.Meeting
}

func newFakeMeetings() *fakeMeetings {
	return &fakeMeetings{byID: map[int64]*models.Meeting{}}
}

func (f *fakeMeetings) Create(ctx context.Context, m *models.Meeting) error {
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeMeetings) GetByID(ctx context.Context, id int64) (*models.Meeting, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrMeetingNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMeetings) List(ctx context.Context, establishmentID int64, formationID *int64, from, to *time.Time) ([]models.Meeting, error) {
	out := []models.Meeting{}
	for _, m := range f.byID {
		if m.EstablishmentID != establishmentID {
			continue
		}
		if formationID != nil && (m.FormationID == nil || *m.FormationID != *formationID) {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeMeetings) Update(ctx context.Context, m *models.Meeting) error {
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeMeetings) Delete(ctx context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return apperrors.ErrMeetingNotFound
	}
	delete(f.byID, id)
	return nil
}

// ---- virtual classes

type fakeClasses struct {
	nextID    int64
	byID      map[int64]*models.VirtualClass
	createErr error
}

func newFakeClasses() *fakeClasses {
	return &fakeClasses{byID: map[int64]*models.VirtualClass{}}
}

func (f *fakeClasses) Create(ctx context.Context, v *models.VirtualClass) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	v.ID = f.nextID
	cp := *v
	f.byID[v.ID] = &cp
	return nil
}

func (f *fakeClasses) GetByID(ctx context.Context, id int64) (*models.VirtualClass, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrVirtualClassNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeClasses) ListByFormation(ctx context.Context, formationID int64) ([]models.VirtualClass, error) {
	out := []models.VirtualClass{}
	for _, v := range f.byID {
		if v.FormationID == formationID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeClasses) Delete(ctx context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

// ---- signaling

type fakeSignaling struct {
	mu      sync.Mutex
	nextID  int64
	peers   map[[2]int64]*models.Peer
	signals []models.Signal
}

func newFakeSignaling() *fakeSignaling {
	return &fakeSignaling{peers: map[[2]int64]*models.Peer{}}
}

func (f *fakeSignaling) UpsertPeer(ctx context.Context, classID, userID int64, now time.Time) (*models.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Peer{ClassID: classID, UserID: userID, Status: models.PeerOnline, JoinedAt: now, LastSeen: now}
	f.peers[[2]int64{classID, userID}] = p
	cp := *p
	return &cp, nil
}

func (f *fakeSignaling) SetOffline(ctx context.Context, classID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[[2]int64{classID, userID}]
	if !ok || p.Status != models.PeerOnline {
		return apperrors.ErrPeerNotOnline
	}
	p.Status = models.PeerOffline
	return nil
}

func (f *fakeSignaling) Touch(ctx context.Context, classID, userID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[[2]int64{classID, userID}]
	if !ok || p.Status != models.PeerOnline {
		return apperrors.ErrPeerNotOnline
	}
	p.LastSeen = now
	return nil
}

func (f *fakeSignaling) GetPeer(ctx context.Context, classID, userID int64) (*models.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[[2]int64{classID, userID}]
	if !ok {
		return nil, apperrors.ErrPeerNotOnline
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSignaling) ListOnlinePeers(ctx context.Context, classID int64) ([]models.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Peer{}
	for _, p := range f.peers {
		if p.ClassID == classID && p.Status == models.PeerOnline {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeSignaling) ExpirePeers(ctx context.Context, before time.Time) ([]models.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Peer
	for _, p := range f.peers {
		if p.Status == models.PeerOnline && p.LastSeen.Before(before) {
			p.Status = models.PeerOffline
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeSignaling) InsertSignal(ctx context.Context, s *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = t0
	}
	f.signals = append(f.signals, *s)
	return nil
}

func (f *fakeSignaling) ListSignals(ctx context.Context, classID, receiverID int64, since *time.Time) ([]models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Signal{}
	for _, s := range f.signals {
		if s.ClassID != classID || s.ReceiverID != receiverID {
			continue
		}
		if since != nil && !s.CreatedAt.After(*since) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSignaling) DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.signals[:0]
	var deleted int64
	for _, s := range f.signals {
		if s.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	f.signals = kept
	return deleted, nil
}

// ---- side effects

type published struct {
	UserID int64
	Event  realtime.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, userID int64, ev realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{UserID: userID, Event: ev})
	return nil
}

func (f *fakePublisher) receivers(eventType string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, p := range f.events {
		if p.Event.Type == eventType {
			ids = append(ids, p.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (f *fakeNotifier) record(kind string, to email.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to.Email] {
		return errBoom
	}
	f.sent = append(f.sent, kind+":"+to.Email)
	return nil
}

func (f *fakeNotifier) MessageReceived(ctx context.Context, to email.Address, senderName, subject string, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.record("message", to)
}

func (f *fakeNotifier) AssignmentGraded(ctx context.Context, to email.Address, assignmentTitle string, score, maxScore int, feedback string) error {
	return f.record("graded", to)
}

func (f *fakeNotifier) VirtualClassScheduled(ctx context.Context, to email.Address, classTitle string, startsAt *time.Time, roomURL string) error {
	return f.record("class", to)
}

type fakeProvider struct {
	created   []string
	deleted   []string
	createErr error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateRoom(ctx context.Context, name string) (video.Room, error) {
	if f.createErr != nil {
		return video.Room{}, f.createErr
	}
	f.created = append(f.created, name)
	return video.Room{Name: name, URL: "https://video.test/" + name}, nil
}

func (f *fakeProvider) DeleteRoom(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeStorage struct {
	saved map[string]string
	err   error
}

func (f *fakeStorage) Save(ctx context.Context, dir, filename string, r io.Reader) (filestorage.StoredFile, error) {
	if f.err != nil {
		return filestorage.StoredFile{}, f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return filestorage.StoredFile{}, err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	path := dir + "/" + filename
	f.saved[path] = string(b)
	return filestorage.StoredFile{Path: path, URL: "http://files.test/" + path, Size: int64(len(b))}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error {
	delete(f.saved, path)
	return nil
}
