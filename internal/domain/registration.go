package domain

import (
	"context"
	"time"
)

// Registration binds one user to one event.
// swagger:model Registration
type Registration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRegistration creates a new Registration. ID is typically set by the repository on create.
func NewRegistration(userID, eventID string, createdAt time.Time) *Registration {
	return &Registration{
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: createdAt,
	}
}

// RegistrationResult is returned by a successful registration. Warning is set
// when the registration committed but the confirmation could not be delivered.
type RegistrationResult struct {
	Registration *Registration `json:"registration"`
	Warning      string        `json:"warning,omitempty"`
}

// UnregistrationResult is returned by a successful unregistration.
type UnregistrationResult struct {
	EventID string `json:"event_id"`
	Warning string `json:"warning,omitempty"`
}

// RegistrationWithEvent bundles a registration with its event, for the registrant's own listing.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// RegistrationDetail is a registration joined with the registrant and event summaries.
type RegistrationDetail struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	Department string    `json:"department"`
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	EventDate  time.Time `json:"event_date"`
	CreatedAt  time.Time `json:"registered_at"`
}

// EventRegistrations groups the registrations of one event, for creator dashboards.
type EventRegistrations struct {
	Event         *Event                `json:"event"`
	Registrations []*RegistrationDetail `json:"registrations"`
}

// RegistrationFilter narrows the admin registration listing.
type RegistrationFilter struct {
	// Search matches registrant name or event title, case-insensitively.
	Search  string
	EventID string
}

// RegistrationTx is the view of the store available inside a registration
// transaction. LockEvent holds the event row until the transaction ends, so
// the count, duplicate check and insert observe a stable seat count.
type RegistrationTx interface {
	LockEvent(ctx context.Context, eventID string) (*Event, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	// Create returns ErrAlreadyRegistered on a (user_id, event_id) uniqueness conflict.
	Create(ctx context.Context, reg *Registration) error
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// RunInTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	RunInTx(ctx context.Context, fn func(tx RegistrationTx) error) error
	Delete(ctx context.Context, eventID, userID string) error
	CountByEventID(ctx context.Context, eventID string) (int, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Registration, error)
	ListByUserID(ctx context.Context, userID string) ([]*RegistrationWithEvent, error)
	ListByEventID(ctx context.Context, eventID string) ([]*RegistrationDetail, error)
	List(ctx context.Context, filter RegistrationFilter, params PaginationParams) ([]*RegistrationDetail, int, error)
	ListByEventCreator(ctx context.Context, creatorID string) ([]*RegistrationDetail, error)
}

// RegistrationService defines the registration engine and registration queries.
type RegistrationService interface {
	Register(ctx context.Context, userID, eventID string) (*RegistrationResult, error)
	Unregister(ctx context.Context, userID, eventID string) (*UnregistrationResult, error)
	ListForUser(ctx context.Context, userID string) ([]*RegistrationWithEvent, error)
	ListForEvent(ctx context.Context, actor *User, eventID string) ([]*RegistrationDetail, error)
	ListAll(ctx context.Context, filter RegistrationFilter, params PaginationParams) ([]*RegistrationDetail, int, error)
	ListForCreator(ctx context.Context, creatorID string) ([]*EventRegistrations, error)
}
