package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/domain"
)

func newFeedbackFixture(t *testing.T, now time.Time) (*memDB, *feedbackService) {
	t.Helper()
	db := newMemDB()
	svc := NewFeedbackService(memFeedbackRepo{db: db}, memRegistrationRepo{db: db}, memEventRepo{db: db}, time.Second).(*feedbackService)
	svc.now = func() time.Time { return now }
	return db, svc
}

func register(db *memDB, userID, eventID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.nextID("reg")
	db.registrations[id] = &domain.Registration{ID: id, UserID: userID, EventID: eventID}
}

func leaveFeedback(db *memDB, userID, eventID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.nextID("fb")
	db.feedback[id] = &domain.Feedback{ID: id, UserID: userID, EventID: eventID, Rating: 4}
}

func TestFeedbackService_Submit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		eventDate  time.Time
		registered bool
		existing   bool
		rating     int
		wantErr    error
	}{
		{name: "valid", eventDate: now.Add(-time.Hour), registered: true, rating: 5},
		{name: "duplicate", eventDate: now.Add(-time.Hour), registered: true, existing: true, rating: 5, wantErr: domain.ErrDuplicateFeedback},
		{name: "duplicate wins over not registered", eventDate: now.Add(-time.Hour), existing: true, rating: 5, wantErr: domain.ErrDuplicateFeedback},
		{name: "not registered", eventDate: now.Add(-time.Hour), rating: 5, wantErr: domain.ErrNotRegistered},
		{name: "not registered wins over timing", eventDate: now.Add(time.Hour), rating: 9, wantErr: domain.ErrNotRegistered},
		{name: "event not concluded", eventDate: now.Add(time.Hour), registered: true, rating: 5, wantErr: domain.ErrEventNotConcluded},
		{name: "event starting now not concluded", eventDate: now, registered: true, rating: 5, wantErr: domain.ErrEventNotConcluded},
		{name: "timing wins over rating", eventDate: now.Add(time.Hour), registered: true, rating: 0, wantErr: domain.ErrEventNotConcluded},
		{name: "rating too low", eventDate: now.Add(-time.Hour), registered: true, rating: 0, wantErr: domain.ErrInvalidRating},
		{name: "rating too high", eventDate: now.Add(-time.Hour), registered: true, rating: 6, wantErr: domain.ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, svc := newFeedbackFixture(t, now)
			club := db.addUser("Club", domain.RoleClubAdmin)
			student := db.addUser("Student", domain.RoleStudent)
			event := db.addEvent(club, domain.EventStatusApproved, 10, tt.eventDate)
			if tt.registered {
				register(db, student.ID, event.ID)
			}
			if tt.existing {
				leaveFeedback(db, student.ID, event.ID)
			}

			fb, err := svc.Submit(ctx, student.ID, event.ID, tt.rating, "<b>Great</b> talk")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, fb.ID)
			assert.Equal(t, "Great talk", fb.Message)
			assert.Equal(t, tt.rating, fb.Rating)
		})
	}
}

func TestFeedbackService_Status(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	db, svc := newFeedbackFixture(t, now)
	club := db.addUser("Club", domain.RoleClubAdmin)
	student := db.addUser("Student", domain.RoleStudent)
	past := db.addEvent(club, domain.EventStatusApproved, 10, now.Add(-time.Hour))
	register(db, student.ID, past.ID)

	status, err := svc.Status(ctx, student.ID, past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatus{Exists: false, CanSubmit: true}, *status)

	_, err = svc.Submit(ctx, student.ID, past.ID, 3, "")
	require.NoError(t, err)

	status, err = svc.Status(ctx, student.ID, past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatus{Exists: true, CanSubmit: false}, *status)

	_, err = svc.Status(ctx, student.ID, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedbackService_Listings(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	db, svc := newFeedbackFixture(t, now)
	club := db.addUser("Club", domain.RoleClubAdmin)
	otherClub := db.addUser("Other", domain.RoleClubAdmin)
	student := db.addUser("Student", domain.RoleStudent)
	event := db.addEvent(club, domain.EventStatusApproved, 10, now.Add(-time.Hour))
	register(db, student.ID, event.ID)
	_, err := svc.Submit(ctx, student.ID, event.ID, 4, "Nice")
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Student", mine[0].UserName)

	all, total, err := svc.ListAll(ctx, domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, all, 1)

	forClub, err := svc.ListForCreator(ctx, club.ID)
	require.NoError(t, err)
	assert.Len(t, forClub, 1)

	forOther, err := svc.ListForCreator(ctx, otherClub.ID)
	require.NoError(t, err)
	assert.NotNil(t, forOther)
	assert.Empty(t, forOther)
}
