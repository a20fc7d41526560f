package domain

import (
	"context"
	"time"
)

// DefaultMaxSeats is the capacity given to events created without one.
const DefaultMaxSeats = 100

// DefaultRejectionReason is recorded when an admin rejects without a reason.
const DefaultRejectionReason = "No reason provided"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusPending  EventStatus = "pending"
	EventStatusApproved EventStatus = "approved"
	EventStatusRejected EventStatus = "rejected"
)

// Event represents an event created by a club admin or admin.
// swagger:model Event
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Location    string      `json:"location"`
	Status      EventStatus `json:"status"`
	// MaxSeats bounds the number of registrations. Zero means unbounded.
	MaxSeats        int        `json:"max_seats"`
	SeatsBooked     int        `json:"seats_booked"`
	CreatedBy       *string    `json:"created_by"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewEvent returns a pending Event owned by createdBy. ID is typically set by the repository on create.
func NewEvent(title, description, location string, date time.Time, maxSeats int, createdBy string, createdAt, updatedAt time.Time) *Event {
	if maxSeats <= 0 {
		maxSeats = DefaultMaxSeats
	}
	return &Event{
		Title:       title,
		Description: description,
		Date:        date,
		Location:    location,
		Status:      EventStatusPending,
		MaxSeats:    maxSeats,
		CreatedBy:   &createdBy,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// OwnerID returns the creator id, or "" for an orphaned event.
func (e *Event) OwnerID() string {
	if e.CreatedBy == nil {
		return ""
	}
	return *e.CreatedBy
}

// IsFull reports whether count registrations exhaust the event capacity.
func (e *Event) IsFull(count int) bool {
	return e.MaxSeats > 0 && count >= e.MaxSeats
}

// HasConcluded reports whether the event start time is strictly before now.
func (e *Event) HasConcluded(now time.Time) bool {
	return now.After(e.Date)
}

// EventFilter narrows event listings.
type EventFilter struct {
	Status   EventStatus
	Search   string
	Location string
	// UpcomingAfter, when set, keeps only events dated after it.
	UpcomingAfter *time.Time
}

// EventPatch holds optional event field changes. Nil fields are unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	MaxSeats    *int
}

// CreateEventInput carries the fields needed to create an event.
type CreateEventInput struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	MaxSeats    int
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*Event, error)
	// TransitionStatus moves the event from one status to another and returns
	// the updated row. It returns ErrNotFound when no row is in status from.
	TransitionStatus(ctx context.Context, id string, from, to EventStatus, reason *string) (*Event, error)
}

// EventService defines the event lifecycle and event queries.
type EventService interface {
	CreateEvent(ctx context.Context, actor *User, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, actor *User, id string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, actor *User, id string) error
	ListApproved(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	ListActive(ctx context.Context) ([]*Event, error)
	ListPending(ctx context.Context) ([]*Event, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*Event, error)
	Approve(ctx context.Context, id string) (*Event, error)
	Reject(ctx context.Context, id, reason string) (*Event, error)
}
