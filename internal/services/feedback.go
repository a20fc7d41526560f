package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventease/internal/domain"
	"eventease/internal/sanitize"
)

type feedbackService struct {
	feedbackRepo     domain.FeedbackRepository
	registrationRepo domain.RegistrationRepository
	eventRepo        domain.EventRepository
	contextTimeout   time.Duration
	now              func() time.Time
}

// NewFeedbackService creates the feedback submission gate.
func NewFeedbackService(feedbackRepo domain.FeedbackRepository, registrationRepo domain.RegistrationRepository, eventRepo domain.EventRepository, timeout time.Duration) domain.FeedbackService {
	return &feedbackService{
		feedbackRepo:     feedbackRepo,
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

// Submit records feedback after the checks, in this order: duplicate,
// registration, event has concluded, rating range. The first failing check is reported.
func (s *feedbackService) Submit(ctx context.Context, userID, eventID string, rating int, message string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	exists, err := s.hasFeedback(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateFeedback
	}

	registered, err := s.isRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, domain.ErrNotRegistered
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasConcluded(s.now()) {
		return nil, domain.ErrEventNotConcluded
	}

	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}

	fb := &domain.Feedback{
		UserID:    userID,
		EventID:   eventID,
		Rating:    rating,
		Message:   sanitize.Text(message),
		CreatedAt: s.now(),
	}
	if err := s.feedbackRepo.Create(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *feedbackService) Status(ctx context.Context, userID, eventID string) (*domain.FeedbackStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	exists, err := s.hasFeedback(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	registered, err := s.isRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	return &domain.FeedbackStatus{
		Exists:    exists,
		CanSubmit: !exists && registered && event.HasConcluded(s.now()),
	}, nil
}

func (s *feedbackService) hasFeedback(ctx context.Context, eventID, userID string) (bool, error) {
	_, err := s.feedbackRepo.GetByEventAndUser(ctx, eventID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("get feedback: %w", err)
}

func (s *feedbackService) isRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	_, err := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("get registration: %w", err)
}

func (s *feedbackService) ListMine(ctx context.Context, userID string) ([]*domain.FeedbackDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, err := s.feedbackRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list feedback by user: %w", err)
	}
	return nonNilFeedback(items), nil
}

func (s *feedbackService) ListAll(ctx context.Context, params domain.PaginationParams) ([]*domain.FeedbackDetail, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, total, err := s.feedbackRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	return nonNilFeedback(items), total, nil
}

func (s *feedbackService) ListForCreator(ctx context.Context, creatorID string) ([]*domain.FeedbackDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, err := s.feedbackRepo.ListByEventCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list feedback by creator: %w", err)
	}
	return nonNilFeedback(items), nil
}

func nonNilFeedback(items []*domain.FeedbackDetail) []*domain.FeedbackDetail {
	if items == nil {
		return []*domain.FeedbackDetail{}
	}
	return items
}
