package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventease/internal/authz"
	"eventease/internal/domain"
	"eventease/internal/metrics"
)

// Warnings attached to a committed registration change whose notice could not be sent.
const (
	WarningConfirmationNotSent = "registration saved, but the confirmation email could not be sent"
	WarningCancellationNotSent = "registration cancelled, but the cancellation email could not be sent"
)

const emailDateLayout = "Mon, 02 Jan 2006 15:04 MST"

type registrationService struct {
	registrationRepo domain.RegistrationRepository
	eventRepo        domain.EventRepository
	userRepo         domain.UserRepository
	notifier         domain.NotificationService
	logger           *slog.Logger
	contextTimeout   time.Duration
	notifyTimeout    time.Duration
	now              func() time.Time
}

// NewRegistrationService creates the registration engine. notifier may be nil,
// in which case no notices are sent.
func NewRegistrationService(
	registrationRepo domain.RegistrationRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	notifier domain.NotificationService,
	logger *slog.Logger,
	timeout, notifyTimeout time.Duration,
) domain.RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &registrationService{
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           logger,
		contextTimeout:   timeout,
		notifyTimeout:    notifyTimeout,
		now:              time.Now,
	}
}

// Register binds userID to eventID. The capacity, approval and duplicate checks
// and the insert run in one transaction holding the event row lock; a failed
// check or insert leaves nothing behind.
func (s *registrationService) Register(ctx context.Context, userID, eventID string) (*domain.RegistrationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		reg   *domain.Registration
		event *domain.Event
	)
	err := s.registrationRepo.RunInTx(txCtx, func(tx domain.RegistrationTx) error {
		ev, err := tx.LockEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		count, err := tx.CountByEventID(txCtx, eventID)
		if err != nil {
			return err
		}
		if ev.IsFull(count) {
			return domain.ErrCapacityReached
		}
		if ev.Status != domain.EventStatusApproved {
			return domain.ErrNotApproved
		}
		exists, err := tx.Exists(txCtx, eventID, userID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyRegistered
		}
		r := domain.NewRegistration(userID, eventID, s.now())
		if err := tx.Create(txCtx, r); err != nil {
			return err
		}
		reg, event = r, ev
		return nil
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationOutcome(err)).Inc()
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeRegistered).Inc()

	result := &domain.RegistrationResult{Registration: reg}
	if !s.notify(ctx, userID, event, s.sendConfirmed) {
		result.Warning = WarningConfirmationNotSent
	}
	return result, nil
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCapacityReached):
		return metrics.OutcomeCapacityReached
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return metrics.OutcomeAlreadyRegistered
	case errors.Is(err, domain.ErrNotApproved):
		return metrics.OutcomeNotApproved
	case errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// Unregister removes the registration of userID for eventID. Capacity and
// approval state do not apply to removal.
func (s *registrationService) Unregister(ctx context.Context, userID, eventID string) (*domain.UnregistrationResult, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.registrationRepo.Delete(dbCtx, eventID, userID); err != nil {
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeUnregistered).Inc()

	result := &domain.UnregistrationResult{EventID: eventID}
	event, err := s.eventRepo.GetByID(dbCtx, eventID)
	if err != nil {
		s.logger.Warn("load event for cancellation notice", "event_id", eventID, "error", err)
		result.Warning = WarningCancellationNotSent
		return result, nil
	}
	if !s.notify(ctx, userID, event, s.sendCancelled) {
		result.Warning = WarningCancellationNotSent
	}
	return result, nil
}

func (s *registrationService) sendConfirmed(ctx context.Context, data *domain.RegistrationEmailData) error {
	return s.notifier.SendRegistrationConfirmed(ctx, data)
}

func (s *registrationService) sendCancelled(ctx context.Context, data *domain.RegistrationEmailData) error {
	return s.notifier.SendRegistrationCancelled(ctx, data)
}

// notify makes one bounded attempt to deliver a notice and reports whether it
// was delivered. Failures are logged and counted, never returned.
func (s *registrationService) notify(ctx context.Context, userID string, event *domain.Event, send func(context.Context, *domain.RegistrationEmailData) error) bool {
	if s.notifier == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	err := func() error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load recipient: %w", err)
		}
		return send(ctx, &domain.RegistrationEmailData{
			Email:      user.Email,
			Name:       user.Name,
			EventTitle: event.Title,
			EventDate:  event.Date.UTC().Format(emailDateLayout),
			Location:   event.Location,
		})
	}()
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("registration notice not delivered", "user_id", userID, "event_id", event.ID, "error", err)
		return false
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return true
}

func (s *registrationService) ListForUser(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations by user: %w", err)
	}
	if regs == nil {
		regs = []*domain.RegistrationWithEvent{}
	}
	return regs, nil
}

// ListForEvent returns the registrants of an event to an admin or to the event's creator.
func (s *registrationService) ListForEvent(ctx context.Context, actor *domain.User, eventID string) ([]*domain.RegistrationDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.AdminOrOwner(event.OwnerID())); err != nil {
		return nil, err
	}
	regs, err := s.registrationRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations by event: %w", err)
	}
	if regs == nil {
		regs = []*domain.RegistrationDetail{}
	}
	return regs, nil
}

func (s *registrationService) ListAll(ctx context.Context, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.RegistrationDetail, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter.Search = strings.TrimSpace(filter.Search)
	regs, total, err := s.registrationRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []*domain.RegistrationDetail{}
	}
	return regs, total, nil
}

// ListForCreator groups registrations under each event created by creatorID,
// including events nobody has registered for yet.
func (s *registrationService) ListForCreator(ctx context.Context, creatorID string) ([]*domain.EventRegistrations, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list events by creator: %w", err)
	}
	regs, err := s.registrationRepo.ListByEventCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list registrations by creator: %w", err)
	}

	byEvent := make(map[string][]*domain.RegistrationDetail, len(events))
	for _, r := range regs {
		byEvent[r.EventID] = append(byEvent[r.EventID], r)
	}
	groups := make([]*domain.EventRegistrations, 0, len(events))
	for _, e := range events {
		rs := byEvent[e.ID]
		if rs == nil {
			rs = []*domain.RegistrationDetail{}
		}
		groups = append(groups, &domain.EventRegistrations{Event: e, Registrations: rs})
	}
	return groups, nil
}
