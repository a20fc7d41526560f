package domain

import (
	"context"
	"time"
)

// Rating bounds for feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a rating and message left by a registrant after an event.
// swagger:model Feedback
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackDetail is feedback joined with author and event summaries.
type FeedbackDetail struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	Rating     int       `json:"rating"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedbackStatus tells a user whether they already left feedback and whether they may now.
type FeedbackStatus struct {
	Exists    bool `json:"exists"`
	CanSubmit bool `json:"can_submit"`
}

// FeedbackRepository defines storage operations for feedback.
type FeedbackRepository interface {
	// Create returns ErrDuplicateFeedback on a (user_id, event_id) uniqueness conflict.
	Create(ctx context.Context, fb *Feedback) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Feedback, error)
	ListByUserID(ctx context.Context, userID string) ([]*FeedbackDetail, error)
	List(ctx context.Context, params PaginationParams) ([]*FeedbackDetail, int, error)
	ListByEventCreator(ctx context.Context, creatorID string) ([]*FeedbackDetail, error)
}

// FeedbackService defines the feedback submission gate and feedback queries.
type FeedbackService interface {
	Submit(ctx context.Context, userID, eventID string, rating int, message string) (*Feedback, error)
	Status(ctx context.Context, userID, eventID string) (*FeedbackStatus, error)
	ListMine(ctx context.Context, userID string) ([]*FeedbackDetail, error)
	ListAll(ctx context.Context, params PaginationParams) ([]*FeedbackDetail, int, error)
	ListForCreator(ctx context.Context, creatorID string) ([]*FeedbackDetail, error)
}
