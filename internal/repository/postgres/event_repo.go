package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventease/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

// eventSelect reads events with their booked seat count from a dedicated count subquery.
const eventSelect = `
	SELECT e.id, e.title, e.description, e.event_date, e.location, e.status, e.max_seats,
		(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id) AS seats_booked,
		e.created_by, e.rejection_reason, e.reviewed_at, e.created_at, e.updated_at
	FROM events e`

// eventRow holds the nullable columns of an event row while scanning.
type eventRow struct {
	e          domain.Event
	status     string
	createdBy  sql.NullString
	reason     sql.NullString
	reviewedAt sql.NullTime
}

func (row *eventRow) dest() []any {
	return []any{&row.e.ID, &row.e.Title, &row.e.Description, &row.e.Date, &row.e.Location, &row.status,
		&row.e.MaxSeats, &row.e.SeatsBooked, &row.createdBy, &row.reason, &row.reviewedAt, &row.e.CreatedAt, &row.e.UpdatedAt}
}

func (row *eventRow) event() *domain.Event {
	e := row.e
	e.Status = domain.EventStatus(row.status)
	if row.createdBy.Valid {
		e.CreatedBy = &row.createdBy.String
	}
	if row.reason.Valid {
		e.RejectionReason = &row.reason.String
	}
	if row.reviewedAt.Valid {
		e.ReviewedAt = &row.reviewedAt.Time
	}
	return &e
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	var er eventRow
	if err := row.Scan(er.dest()...); err != nil {
		return nil, err
	}
	return er.event(), nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	defer rows.Close()
	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, event_date, location, status, max_seats, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, e.Title, e.Description, e.Date, e.Location, string(e.Status),
		e.MaxSeats, e.CreatedBy, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	return domain.NewStorageError("create event", err)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get event", err)
	}
	return e, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, event_date = $3, location = $4, max_seats = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.DB.ExecContext(ctx, query, e.Title, e.Description, e.Date, e.Location, e.MaxSeats, e.UpdatedAt, e.ID)
	if err != nil {
		return domain.NewStorageError("update event", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError("update event", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the event; its registrations and feedback cascade.
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if isInvalidID(err) {
		return domain.ErrNotFound
	}
	if err != nil {
		return domain.NewStorageError("delete event", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError("delete event", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var c conditions
	if filter.Status != "" {
		c.add(`e.status = ?`, string(filter.Status))
	}
	if filter.Search != "" {
		c.add(`(e.title ILIKE ? OR e.description ILIKE ?)`, likePattern(filter.Search))
	}
	if filter.Location != "" {
		c.add(`e.location ILIKE ?`, likePattern(filter.Location))
	}
	if filter.UpcomingAfter != nil {
		c.add(`e.event_date > ?`, *filter.UpcomingAfter)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+c.where(), c.args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count events", err)
	}

	limit, args := c.page(params.Limit(), params.Offset())
	rows, err := r.DB.QueryContext(ctx, eventSelect+c.where()+` ORDER BY e.event_date ASC, e.id`+limit, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list events", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, domain.NewStorageError("list events", err)
	}
	return events, total, nil
}

func (r *eventRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, eventSelect+` WHERE e.created_by = $1 ORDER BY e.event_date DESC, e.id`, creatorID)
	if isInvalidID(err) {
		return []*domain.Event{}, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("list events by creator", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, domain.NewStorageError("list events by creator", err)
	}
	return events, nil
}

// TransitionStatus updates the status only while the row is still in status
// from, so concurrent reviewers cannot both apply the same transition.
func (r *eventRepository) TransitionStatus(ctx context.Context, id string, from, to domain.EventStatus, reason *string) (*domain.Event, error) {
	now := time.Now().UTC()
	query := `
		UPDATE events
		SET status = $1, rejection_reason = COALESCE($2, rejection_reason), reviewed_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.DB.ExecContext(ctx, query, string(to), reason, now, id, string(from))
	if isInvalidID(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("transition event", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, domain.NewStorageError("transition event", err)
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}
