package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/domain"
)

type registrationFixture struct {
	db       *memDB
	notifier *fakeNotifier
	svc      domain.RegistrationService
	owner    *domain.User
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	db := newMemDB()
	notifier := &fakeNotifier{}
	svc := NewRegistrationService(
		memRegistrationRepo{db: db},
		memEventRepo{db: db},
		memUserRepo{db: db},
		notifier,
		nil,
		time.Second,
		time.Second,
	)
	return &registrationFixture{
		db:       db,
		notifier: notifier,
		svc:      svc,
		owner:    db.addUser("Club", domain.RoleClubAdmin),
	}
}

func (f *registrationFixture) approvedEvent(maxSeats int) *domain.Event {
	return f.db.addEvent(f.owner, domain.EventStatusApproved, maxSeats, time.Now().Add(48*time.Hour))
}

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *registrationFixture, student *domain.User) string
		wantErr error
	}{
		{
			name: "approved event with free seats",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				return f.approvedEvent(10).ID
			},
		},
		{
			name: "unknown event",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				return "missing"
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "pending event",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				return f.db.addEvent(f.owner, domain.EventStatusPending, 10, time.Now().Add(time.Hour)).ID
			},
			wantErr: domain.ErrNotApproved,
		},
		{
			name: "rejected event",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				return f.db.addEvent(f.owner, domain.EventStatusRejected, 10, time.Now().Add(time.Hour)).ID
			},
			wantErr: domain.ErrNotApproved,
		},
		{
			name: "full event",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				e := f.approvedEvent(1)
				other := f.db.addUser("Other", domain.RoleStudent)
				_, err := f.svc.Register(ctx, other.ID, e.ID)
				require.NoError(t, err)
				return e.ID
			},
			wantErr: domain.ErrCapacityReached,
		},
		{
			name: "capacity is checked before approval",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				e := f.approvedEvent(1)
				other := f.db.addUser("Other", domain.RoleStudent)
				_, err := f.svc.Register(ctx, other.ID, e.ID)
				require.NoError(t, err)
				f.db.mu.Lock()
				f.db.events[e.ID].Status = domain.EventStatusPending
				f.db.mu.Unlock()
				return e.ID
			},
			wantErr: domain.ErrCapacityReached,
		},
		{
			name: "already registered",
			setup: func(t *testing.T, f *registrationFixture, student *domain.User) string {
				e := f.approvedEvent(10)
				_, err := f.svc.Register(ctx, student.ID, e.ID)
				require.NoError(t, err)
				return e.ID
			},
			wantErr: domain.ErrAlreadyRegistered,
		},
		{
			name: "unbounded event",
			setup: func(t *testing.T, f *registrationFixture, _ *domain.User) string {
				e := f.approvedEvent(0)
				for i := 0; i < 5; i++ {
					u := f.db.addUser("Filler", domain.RoleStudent)
					_, err := f.svc.Register(ctx, u.ID, e.ID)
					require.NoError(t, err)
				}
				return e.ID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture(t)
			student := f.db.addUser("Student", domain.RoleStudent)
			eventID := tt.setup(t, f, student)
			before := f.db.registrationCount(eventID)

			result, err := f.svc.Register(ctx, student.ID, eventID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				assert.Equal(t, before, f.db.registrationCount(eventID))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, result.Registration)
			assert.Equal(t, student.ID, result.Registration.UserID)
			assert.Equal(t, eventID, result.Registration.EventID)
			assert.Empty(t, result.Warning)
			assert.Equal(t, before+1, f.db.registrationCount(eventID))
		})
	}
}

func TestRegistrationService_Register_SameUserTwice(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	student := f.db.addUser("Student", domain.RoleStudent)
	e := f.approvedEvent(10)

	_, err := f.svc.Register(ctx, student.ID, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, student.ID, e.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	assert.Equal(t, 1, f.db.registrationCount(e.ID))
}

func TestRegistrationService_Register_ConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(1)
	a := f.db.addUser("A", domain.RoleStudent)
	b := f.db.addUser("B", domain.RoleStudent)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := make(chan struct{})
	for i, u := range []*domain.User{a, b} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Register(ctx, userID, e.ID)
		}(i, u.ID)
	}
	close(start)
	wg.Wait()

	ok, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrCapacityReached):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)
	assert.Equal(t, 1, f.db.registrationCount(e.ID))
}

func TestRegistrationService_Register_ConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(ctx, student.ID, e.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.db.registrationCount(e.ID))
}

func TestRegistrationService_CapacityScenario(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(2)
	a := f.db.addUser("A", domain.RoleStudent)
	b := f.db.addUser("B", domain.RoleStudent)
	c := f.db.addUser("C", domain.RoleStudent)

	_, err := f.svc.Register(ctx, a.ID, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, b.ID, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, c.ID, e.ID)
	require.ErrorIs(t, err, domain.ErrCapacityReached)

	_, err = f.svc.Unregister(ctx, a.ID, e.ID)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, c.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.db.registrationCount(e.ID))
}

func TestRegistrationService_Register_StorageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)
	f.db.failNext = domain.NewStorageError("insert registration", errors.New("connection reset"))

	_, err := f.svc.Register(ctx, student.ID, e.ID)
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, f.db.registrationCount(e.ID))
}

func TestRegistrationService_NotificationFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)
	f.notifier.err = errors.New("smtp down")

	result, err := f.svc.Register(ctx, student.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, WarningConfirmationNotSent, result.Warning)
	assert.Equal(t, 1, f.db.registrationCount(e.ID))

	unreg, err := f.svc.Unregister(ctx, student.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, WarningCancellationNotSent, unreg.Warning)
	assert.Zero(t, f.db.registrationCount(e.ID))
}

// eventRemovedOnDelete deletes the event together with the registration, as a
// concurrent event deletion landing between the two steps of Unregister would.
type eventRemovedOnDelete struct {
	memRegistrationRepo
}

func (r eventRemovedOnDelete) Delete(ctx context.Context, eventID, userID string) error {
	if err := r.memRegistrationRepo.Delete(ctx, eventID, userID); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.events, eventID)
	return nil
}

type failingEventLookup struct {
	memEventRepo
	err error
}

func (r failingEventLookup) GetByID(context.Context, string) (*domain.Event, error) {
	return nil, r.err
}

func TestRegistrationService_Unregister_EventGoneAfterDelete(t *testing.T) {
	tests := []struct {
		name   string
		regs   func(db *memDB) domain.RegistrationRepository
		events func(db *memDB) domain.EventRepository
	}{
		{
			name:   "event deleted concurrently",
			regs:   func(db *memDB) domain.RegistrationRepository { return eventRemovedOnDelete{memRegistrationRepo{db: db}} },
			events: func(db *memDB) domain.EventRepository { return memEventRepo{db: db} },
		},
		{
			name: "event lookup fails",
			regs: func(db *memDB) domain.RegistrationRepository { return memRegistrationRepo{db: db} },
			events: func(db *memDB) domain.EventRepository {
				return failingEventLookup{memEventRepo{db: db}, domain.NewStorageError("get event", errors.New("conn reset"))}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newRegistrationFixture(t)
			e := f.approvedEvent(10)
			student := f.db.addUser("Student", domain.RoleStudent)
			_, err := f.svc.Register(ctx, student.ID, e.ID)
			require.NoError(t, err)

			svc := NewRegistrationService(tt.regs(f.db), tt.events(f.db), memUserRepo{db: f.db}, f.notifier, nil, time.Second, time.Second)
			result, err := svc.Unregister(ctx, student.ID, e.ID)
			require.NoError(t, err, "the registration is already removed")
			assert.Equal(t, e.ID, result.EventID)
			assert.Equal(t, WarningCancellationNotSent, result.Warning)
			assert.Zero(t, f.db.registrationCount(e.ID))
			assert.Empty(t, f.notifier.cancelled)
		})
	}
}

func TestRegistrationService_NotificationContent(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)

	_, err := f.svc.Register(ctx, student.ID, e.ID)
	require.NoError(t, err)
	_, err = f.svc.Unregister(ctx, student.ID, e.ID)
	require.NoError(t, err)

	require.Len(t, f.notifier.confirmed, 1)
	require.Len(t, f.notifier.cancelled, 1)
	assert.Equal(t, student.Email, f.notifier.confirmed[0].Email)
	assert.Equal(t, e.Title, f.notifier.confirmed[0].EventTitle)
}

func TestRegistrationService_Unregister_NotRegistered(t *testing.T) {
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)

	_, err := f.svc.Unregister(context.Background(), student.ID, e.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistrationService_Unregister_IgnoresStatus(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)
	_, err := f.svc.Register(ctx, student.ID, e.ID)
	require.NoError(t, err)

	f.db.mu.Lock()
	f.db.events[e.ID].Status = domain.EventStatusRejected
	f.db.mu.Unlock()

	_, err = f.svc.Unregister(ctx, student.ID, e.ID)
	require.NoError(t, err)
}

func TestRegistrationService_ListForEvent_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	e := f.approvedEvent(10)
	student := f.db.addUser("Student", domain.RoleStudent)
	_, err := f.svc.Register(ctx, student.ID, e.ID)
	require.NoError(t, err)

	otherClub := f.db.addUser("Other Club", domain.RoleClubAdmin)
	admin := f.db.addUser("Admin", domain.RoleAdmin)

	_, err = f.svc.ListForEvent(ctx, otherClub, e.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	regs, err := f.svc.ListForEvent(ctx, f.owner, e.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, student.Name, regs[0].UserName)

	regs, err = f.svc.ListForEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	_, err = f.svc.ListForEvent(ctx, admin, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistrationService_ListForEvent_OrphanedEvent(t *testing.T) {
	f := newRegistrationFixture(t)
	e := f.db.addEvent(nil, domain.EventStatusApproved, 10, time.Now().Add(time.Hour))
	club := f.db.addUser("Club2", domain.RoleClubAdmin)

	_, err := f.svc.ListForEvent(context.Background(), club, e.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegistrationService_ListForCreator_GroupsByEvent(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)
	busy := f.approvedEvent(10)
	quiet := f.approvedEvent(10)
	for _, name := range []string{"A", "B"} {
		u := f.db.addUser(name, domain.RoleStudent)
		_, err := f.svc.Register(ctx, u.ID, busy.ID)
		require.NoError(t, err)
	}

	groups, err := f.svc.ListForCreator(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	counts := map[string]int{}
	for _, g := range groups {
		require.NotNil(t, g.Registrations)
		counts[g.Event.ID] = len(g.Registrations)
	}
	assert.Equal(t, 2, counts[busy.ID])
	assert.Equal(t, 0, counts[quiet.ID])
}

func TestRegistrationService_ListEmpty(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t)

	mine, err := f.svc.ListForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)

	all, total, err := f.svc.ListAll(ctx, domain.RegistrationFilter{Search: "  zzz "}, domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Zero(t, total)
}
