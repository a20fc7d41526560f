package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventease/internal/authz"
	"eventease/internal/domain"
	"eventease/internal/metrics"
	"eventease/internal/sanitize"
)

type eventService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewEventService creates an EventService that drives the pending → approved/rejected lifecycle.
func NewEventService(eventRepo domain.EventRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actor *domain.User, in domain.CreateEventInput) (*domain.Event, error) {
	if err := authz.Authorize(actor, authz.RolesOnly(domain.RoleClubAdmin, domain.RoleAdmin)); err != nil {
		return nil, err
	}

	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, invalidInput("title is required")
	}
	if in.Date.IsZero() {
		return nil, invalidInput("date is required")
	}
	if in.MaxSeats < 0 {
		return nil, invalidInput("max_seats must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	event := domain.NewEvent(title, sanitize.HTML(in.Description), sanitize.Text(in.Location), in.Date, in.MaxSeats, actor.ID, now, now)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.eventRepo.GetByID(ctx, id)
}

func (s *eventService) UpdateEvent(ctx context.Context, actor *domain.User, id string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.AdminOrOwner(event.OwnerID())); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := sanitize.Text(*patch.Title)
		if title == "" {
			return nil, invalidInput("title cannot be empty")
		}
		event.Title = title
	}
	if patch.Description != nil {
		event.Description = sanitize.HTML(*patch.Description)
	}
	if patch.Location != nil {
		event.Location = sanitize.Text(*patch.Location)
	}
	if patch.Date != nil {
		if patch.Date.IsZero() {
			return nil, invalidInput("date cannot be empty")
		}
		event.Date = *patch.Date
	}
	if patch.MaxSeats != nil {
		seats := *patch.MaxSeats
		if seats < 1 {
			return nil, invalidInput("max_seats must be positive")
		}
		if seats < event.SeatsBooked {
			return nil, invalidInput("max_seats cannot be lower than the %d seats already booked", event.SeatsBooked)
		}
		event.MaxSeats = seats
	}
	event.UpdatedAt = s.now()

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, actor *domain.User, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.AdminOrOwner(event.OwnerID())); err != nil {
		return err
	}
	return s.eventRepo.Delete(ctx, id)
}

// ListApproved returns the public catalogue: approved events matching filter.
func (s *eventService) ListApproved(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	filter.Status = domain.EventStatusApproved
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Location = strings.TrimSpace(filter.Location)
	return s.list(ctx, filter, params)
}

// ListActive returns approved events that have not started yet.
func (s *eventService) ListActive(ctx context.Context) ([]*domain.Event, error) {
	now := s.now()
	events, _, err := s.list(ctx, domain.EventFilter{Status: domain.EventStatusApproved, UpcomingAfter: &now}, domain.PaginationParams{})
	return events, err
}

func (s *eventService) ListPending(ctx context.Context) ([]*domain.Event, error) {
	events, _, err := s.list(ctx, domain.EventFilter{Status: domain.EventStatusPending}, domain.PaginationParams{})
	return events, err
}

func (s *eventService) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list events by creator: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) list(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

// Approve moves a pending event to approved. The store update is conditional on
// the event still being pending, so concurrent approvals transition it once.
func (s *eventService) Approve(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := approvable(event.Status); err != nil {
		return nil, err
	}

	updated, err := s.eventRepo.TransitionStatus(ctx, id, domain.EventStatusPending, domain.EventStatusApproved, nil)
	if errors.Is(err, domain.ErrNotFound) {
		// Lost a race; report what the winner did.
		current, getErr := s.eventRepo.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if err := approvable(current.Status); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("approve event: %w", err)
	}
	metrics.EventTransitionsTotal.WithLabelValues(string(domain.EventStatusApproved)).Inc()
	return updated, nil
}

func approvable(status domain.EventStatus) error {
	switch status {
	case domain.EventStatusPending:
		return nil
	case domain.EventStatusApproved:
		return domain.ErrAlreadyApproved
	default:
		return domain.ErrInvalidTransition
	}
}

// Reject moves a pending or approved event to rejected and records the reason.
// Rejected is terminal.
func (s *eventService) Reject(ctx context.Context, id, reason string) (*domain.Event, error) {
	reason = sanitize.Text(reason)
	if reason == "" {
		reason = domain.DefaultRejectionReason
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// Two attempts: the status may move from pending to approved between the
	// read and the conditional update, and rejecting an approved event is allowed.
	for attempt := 0; attempt < 2; attempt++ {
		event, err := s.eventRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if event.Status == domain.EventStatusRejected {
			return nil, domain.ErrInvalidTransition
		}
		updated, err := s.eventRepo.TransitionStatus(ctx, id, event.Status, domain.EventStatusRejected, &reason)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reject event: %w", err)
		}
		metrics.EventTransitionsTotal.WithLabelValues(string(domain.EventStatusRejected)).Inc()
		return updated, nil
	}
	return nil, domain.ErrInvalidTransition
}
