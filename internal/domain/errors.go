package domain

import "errors"

// Authorization and identity errors.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	// ErrGuardMisconfigured is returned when an owner check is requested without a
	// resource owner id. It is a server fault, not an authorization failure.
	ErrGuardMisconfigured = errors.New("authorization guard misconfigured: missing resource owner id")
)

// Lookup and input errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Event lifecycle errors.
var (
	ErrAlreadyApproved   = errors.New("event already approved")
	ErrInvalidTransition = errors.New("event status transition not allowed")
)

// Registration errors.
var (
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrCapacityReached   = errors.New("event capacity reached")
	ErrNotApproved       = errors.New("cannot register for this event until approved")
)

// Feedback errors.
var (
	ErrDuplicateFeedback = errors.New("feedback already submitted for this event")
	ErrNotRegistered     = errors.New("you must be registered for the event to submit feedback")
	ErrEventNotConcluded = errors.New("feedback can only be submitted after the event has taken place")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
)

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage failure")

// StorageError wraps an infrastructure failure (connection loss, unexpected
// constraint violation) raised while running Op.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a StorageError. Sentinel domain errors pass
// through unchanged so callers can still match them.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return "storage failure: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports ErrStorage as a match.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

var domainErrors = []error{
	ErrUnauthenticated, ErrInvalidCredentials, ErrForbidden, ErrGuardMisconfigured,
	ErrNotFound, ErrInvalidInput, ErrUserNotFound, ErrDuplicateEmail, ErrLastAdmin,
	ErrAlreadyApproved, ErrInvalidTransition,
	ErrAlreadyRegistered, ErrCapacityReached, ErrNotApproved,
	ErrDuplicateFeedback, ErrNotRegistered, ErrEventNotConcluded, ErrInvalidRating,
	ErrStorage,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
