package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eventease/internal/domain"
)

// memDB is an in-memory store shared by the fake repositories below. RunInTx
// holds the store lock for the whole callback, which stands in for the event
// row lock taken by the PostgreSQL implementation.
type memDB struct {
	mu            sync.Mutex
	seq           int
	users         map[string]*domain.User
	events        map[string]*domain.Event
	registrations map[string]*domain.Registration
	feedback      map[string]*domain.Feedback

	failNext error
}

func newMemDB() *memDB {
	return &memDB{
		users:         make(map[string]*domain.User),
		events:        make(map[string]*domain.Event),
		registrations: make(map[string]*domain.Registration),
		feedback:      make(map[string]*domain.Feedback),
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) takeFailure() error {
	err := db.failNext
	db.failNext = nil
	return err
}

func (db *memDB) countFor(eventID string) int {
	n := 0
	for _, r := range db.registrations {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

func (db *memDB) findRegistration(eventID, userID string) *domain.Registration {
	for _, r := range db.registrations {
		if r.EventID == eventID && r.UserID == userID {
			return r
		}
	}
	return nil
}

func (db *memDB) addUser(name string, role domain.Role) *domain.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &domain.User{ID: db.nextID("user"), Name: name, Email: strings.ToLower(name) + "@campus.edu", Role: role, PasswordHash: "hash-password1"}
	db.users[u.ID] = u
	return u
}

func (db *memDB) addEvent(owner *domain.User, status domain.EventStatus, maxSeats int, date time.Time) *domain.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := &domain.Event{ID: db.nextID("event"), Title: "Event", Date: date, Status: status, MaxSeats: maxSeats}
	if owner != nil {
		id := owner.ID
		e.CreatedBy = &id
	}
	db.events[e.ID] = e
	return e
}

func (db *memDB) registrationCount(eventID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.countFor(eventID)
}

// memUserRepo implements domain.UserRepository.
type memUserRepo struct{ db *memDB }

func (r memUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.takeFailure(); err != nil {
		return err
	}
	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	u.ID = r.db.nextID("user")
	cp := *u
	r.db.users[u.ID] = &cp
	return nil
}

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.takeFailure(); err != nil {
		return nil, err
	}
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) Update(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.saveUser(u)
}

func (r memUserRepo) DemoteAdmin(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.lastAdminGuard(u.ID); err != nil {
		return err
	}
	return r.db.saveUser(u)
}

// saveUser must be called with db.mu held.
func (db *memDB) saveUser(u *domain.User) error {
	if _, ok := db.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, existing := range db.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return domain.ErrDuplicateEmail
		}
	}
	cp := *u
	db.users[u.ID] = &cp
	return nil
}

// lastAdminGuard must be called with db.mu held.
func (db *memDB) lastAdminGuard(id string) error {
	u, ok := db.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.Role != domain.RoleAdmin {
		return nil
	}
	admins := 0
	for _, other := range db.users {
		if other.Role == domain.RoleAdmin {
			admins++
		}
	}
	if admins == 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

func (r memUserRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.lastAdminGuard(id); err != nil {
		return err
	}
	delete(r.db.users, id)
	for k, reg := range r.db.registrations {
		if reg.UserID == id {
			delete(r.db.registrations, k)
		}
	}
	for k, fb := range r.db.feedback {
		if fb.UserID == id {
			delete(r.db.feedback, k)
		}
	}
	for _, e := range r.db.events {
		if e.CreatedBy != nil && *e.CreatedBy == id {
			e.CreatedBy = nil
		}
	}
	return nil
}

func (r memUserRepo) List(ctx context.Context, filter domain.UserFilter, params domain.PaginationParams) ([]*domain.User, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.User
	for _, u := range r.db.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// memEventRepo implements domain.EventRepository.
type memEventRepo struct{ db *memDB }

func (r memEventRepo) Create(ctx context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.takeFailure(); err != nil {
		return err
	}
	e.ID = r.db.nextID("event")
	cp := *e
	r.db.events[e.ID] = &cp
	return nil
}

func (r memEventRepo) get(id string) (*domain.Event, error) {
	e, ok := r.db.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	cp.SeatsBooked = r.db.countFor(id)
	return &cp, nil
}

func (r memEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.get(id)
}

func (r memEventRepo) Update(ctx context.Context, e *domain.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[e.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *e
	r.db.events[e.ID] = &cp
	return nil
}

func (r memEventRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.events, id)
	for k, reg := range r.db.registrations {
		if reg.EventID == id {
			delete(r.db.registrations, k)
		}
	}
	return nil
}

func (r memEventRepo) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Event
	for id, e := range r.db.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.UpcomingAfter != nil && !e.Date.After(*filter.UpcomingAfter) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(e.Location, filter.Location) {
			continue
		}
		ev, _ := r.get(id)
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, len(out), nil
}

func (r memEventRepo) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Event
	for id, e := range r.db.events {
		if e.CreatedBy != nil && *e.CreatedBy == creatorID {
			ev, _ := r.get(id)
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memEventRepo) TransitionStatus(ctx context.Context, id string, from, to domain.EventStatus, reason *string) (*domain.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.events[id]
	if !ok || e.Status != from {
		return nil, domain.ErrNotFound
	}
	e.Status = to
	e.RejectionReason = reason
	now := time.Now()
	e.ReviewedAt = &now
	return r.get(id)
}

// memRegistrationRepo implements domain.RegistrationRepository.
type memRegistrationRepo struct{ db *memDB }

type memTx struct {
	db      *memDB
	pending []*domain.Registration
}

func (t *memTx) LockEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	return memEventRepo{db: t.db}.get(eventID)
}

func (t *memTx) CountByEventID(ctx context.Context, eventID string) (int, error) {
	n := t.db.countFor(eventID)
	for _, p := range t.pending {
		if p.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	return t.db.findRegistration(eventID, userID) != nil, nil
}

func (t *memTx) Create(ctx context.Context, reg *domain.Registration) error {
	if err := t.db.takeFailure(); err != nil {
		return err
	}
	if t.db.findRegistration(reg.EventID, reg.UserID) != nil {
		return domain.ErrAlreadyRegistered
	}
	reg.ID = t.db.nextID("reg")
	t.pending = append(t.pending, reg)
	return nil
}

func (r memRegistrationRepo) RunInTx(ctx context.Context, fn func(tx domain.RegistrationTx) error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tx := &memTx{db: r.db}
	if err := fn(tx); err != nil {
		return err
	}
	for _, p := range tx.pending {
		cp := *p
		r.db.registrations[p.ID] = &cp
	}
	return nil
}

func (r memRegistrationRepo) Delete(ctx context.Context, eventID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reg := r.db.findRegistration(eventID, userID)
	if reg == nil {
		return domain.ErrNotFound
	}
	delete(r.db.registrations, reg.ID)
	return nil
}

func (r memRegistrationRepo) CountByEventID(ctx context.Context, eventID string) (int, error) {
	return r.db.registrationCount(eventID), nil
}

func (r memRegistrationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reg := r.db.findRegistration(eventID, userID)
	if reg == nil {
		return nil, domain.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r memRegistrationRepo) detail(reg *domain.Registration) *domain.RegistrationDetail {
	d := &domain.RegistrationDetail{ID: reg.ID, UserID: reg.UserID, EventID: reg.EventID, CreatedAt: reg.CreatedAt}
	if u, ok := r.db.users[reg.UserID]; ok {
		d.UserName, d.UserEmail, d.Department = u.Name, u.Email, u.Department
	}
	if e, ok := r.db.events[reg.EventID]; ok {
		d.EventTitle, d.EventDate = e.Title, e.Date
	}
	return d
}

func (r memRegistrationRepo) collect(keep func(*domain.Registration) bool) []*domain.RegistrationDetail {
	var out []*domain.RegistrationDetail
	for _, reg := range r.db.registrations {
		if keep(reg) {
			out = append(out, r.detail(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memRegistrationRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.RegistrationWithEvent
	for _, reg := range r.db.registrations {
		if reg.UserID != userID {
			continue
		}
		ev, _ := memEventRepo{db: r.db}.get(reg.EventID)
		cp := *reg
		out = append(out, &domain.RegistrationWithEvent{Registration: &cp, Event: ev})
	}
	return out, nil
}

func (r memRegistrationRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.RegistrationDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.collect(func(reg *domain.Registration) bool { return reg.EventID == eventID }), nil
}

func (r memRegistrationRepo) List(ctx context.Context, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.RegistrationDetail, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := r.collect(func(reg *domain.Registration) bool {
		if filter.EventID != "" && reg.EventID != filter.EventID {
			return false
		}
		if filter.Search == "" {
			return true
		}
		d := r.detail(reg)
		return strings.Contains(strings.ToLower(d.UserName+" "+d.EventTitle), strings.ToLower(filter.Search))
	})
	return out, len(out), nil
}

func (r memRegistrationRepo) ListByEventCreator(ctx context.Context, creatorID string) ([]*domain.RegistrationDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.collect(func(reg *domain.Registration) bool {
		e, ok := r.db.events[reg.EventID]
		return ok && e.CreatedBy != nil && *e.CreatedBy == creatorID
	}), nil
}

// memFeedbackRepo implements domain.FeedbackRepository.
type memFeedbackRepo struct{ db *memDB }

func (r memFeedbackRepo) Create(ctx context.Context, fb *domain.Feedback) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.feedback {
		if existing.EventID == fb.EventID && existing.UserID == fb.UserID {
			return domain.ErrDuplicateFeedback
		}
	}
	fb.ID = r.db.nextID("fb")
	cp := *fb
	r.db.feedback[fb.ID] = &cp
	return nil
}

func (r memFeedbackRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Feedback, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, fb := range r.db.feedback {
		if fb.EventID == eventID && fb.UserID == userID {
			cp := *fb
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memFeedbackRepo) collect(keep func(*domain.Feedback) bool) []*domain.FeedbackDetail {
	var out []*domain.FeedbackDetail
	for _, fb := range r.db.feedback {
		if !keep(fb) {
			continue
		}
		d := &domain.FeedbackDetail{ID: fb.ID, UserID: fb.UserID, EventID: fb.EventID, Rating: fb.Rating, Message: fb.Message, CreatedAt: fb.CreatedAt}
		if u, ok := r.db.users[fb.UserID]; ok {
			d.UserName = u.Name
		}
		if e, ok := r.db.events[fb.EventID]; ok {
			d.EventTitle = e.Title
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memFeedbackRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.FeedbackDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.collect(func(fb *domain.Feedback) bool { return fb.UserID == userID }), nil
}

func (r memFeedbackRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.FeedbackDetail, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := r.collect(func(*domain.Feedback) bool { return true })
	return out, len(out), nil
}

func (r memFeedbackRepo) ListByEventCreator(ctx context.Context, creatorID string) ([]*domain.FeedbackDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.collect(func(fb *domain.Feedback) bool {
		e, ok := r.db.events[fb.EventID]
		return ok && e.CreatedBy != nil && *e.CreatedBy == creatorID
	}), nil
}

// fakeNotifier implements domain.NotificationService for tests.
type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	confirmed []*domain.RegistrationEmailData
	cancelled []*domain.RegistrationEmailData
}

func (f *fakeNotifier) SendRegistrationConfirmed(ctx context.Context, data *domain.RegistrationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, data)
	return nil
}

func (f *fakeNotifier) SendRegistrationCancelled(ctx context.Context, data *domain.RegistrationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, data)
	return nil
}

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct{}

func (fakePasswordHasher) Hash(password string) (string, error) { return "hash-" + password, nil }

func (fakePasswordHasher) Compare(hash, password string) error {
	if hash != "hash-"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokenIssuer implements domain.TokenIssuer and domain.TokenVerifier for tests.
type fakeTokenIssuer struct {
	err error
}

func (f fakeTokenIssuer) Issue(userID string, role domain.Role, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}

func (f fakeTokenIssuer) Verify(token string) (string, error) {
	if !strings.HasPrefix(token, "token-") {
		return "", errors.New("bad token")
	}
	return strings.TrimPrefix(token, "token-"), nil
}
