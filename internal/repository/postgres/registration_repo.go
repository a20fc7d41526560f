package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventease/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

// RunInTx runs fn inside a transaction. Any error from fn rolls the
// transaction back and is returned unchanged; a commit failure is a storage error.
func (r *registrationRepository) RunInTx(ctx context.Context, fn func(tx domain.RegistrationTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin registration", err)
	}
	if err := fn(&registrationTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRegistered
		}
		return domain.NewStorageError("commit registration", err)
	}
	return nil
}

type registrationTx struct {
	tx *sql.Tx
}

// LockEvent takes a row lock on the event that is held until commit or
// rollback, serialising registrations for the same event.
func (t *registrationTx) LockEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `
		SELECT id, title, description, event_date, location, status, max_seats, 0,
			created_by, rejection_reason, reviewed_at, created_at, updated_at
		FROM events
		WHERE id = $1
		FOR UPDATE
	`
	e, err := scanEvent(t.tx.QueryRowContext(ctx, query, eventID))
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("lock event", err)
	}
	return e, nil
}

func (t *registrationTx) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, domain.NewStorageError("count registrations", err)
	}
	return n, nil
}

func (t *registrationTx) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`
	if err := t.tx.QueryRowContext(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, domain.NewStorageError("check registration", err)
	}
	return exists, nil
}

func (t *registrationTx) Create(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (user_id, event_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query, reg.UserID, reg.EventID, reg.CreatedAt).Scan(&reg.ID)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyRegistered
	}
	return domain.NewStorageError("create registration", err)
}

func (r *registrationRepository) Delete(ctx context.Context, eventID, userID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if isInvalidID(err) {
		return domain.ErrNotFound
	}
	if err != nil {
		return domain.NewStorageError("delete registration", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError("delete registration", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&n)
	if isInvalidID(err) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.NewStorageError("count registrations", err)
	}
	return n, nil
}

func (r *registrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	query := `
		SELECT id, user_id, event_id, created_at
		FROM registrations
		WHERE event_id = $1 AND user_id = $2
	`
	reg := &domain.Registration{}
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get registration", err)
	}
	return reg, nil
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	query := `
		SELECT r.id, r.user_id, r.event_id, r.created_at,
			e.id, e.title, e.description, e.event_date, e.location, e.status, e.max_seats,
			(SELECT COUNT(*) FROM registrations c WHERE c.event_id = e.id),
			e.created_by, e.rejection_reason, e.reviewed_at, e.created_at, e.updated_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY e.event_date ASC, r.id
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, domain.NewStorageError("list registrations by user", err)
	}
	defer rows.Close()

	out := []*domain.RegistrationWithEvent{}
	for rows.Next() {
		reg := &domain.Registration{}
		var rest eventRow
		dest := append([]any{&reg.ID, &reg.UserID, &reg.EventID, &reg.CreatedAt}, rest.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, domain.NewStorageError("scan registration", err)
		}
		out = append(out, &domain.RegistrationWithEvent{Registration: reg, Event: rest.event()})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list registrations by user", err)
	}
	return out, nil
}

const registrationDetailSelect = `
	SELECT r.id, r.user_id, u.name, u.email, u.department, r.event_id, e.title, e.event_date, r.created_at
	FROM registrations r
	JOIN users u ON u.id = r.user_id
	JOIN events e ON e.id = r.event_id`

func scanRegistrationDetails(rows *sql.Rows) ([]*domain.RegistrationDetail, error) {
	defer rows.Close()
	out := []*domain.RegistrationDetail{}
	for rows.Next() {
		d := &domain.RegistrationDetail{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserName, &d.UserEmail, &d.Department, &d.EventID, &d.EventTitle, &d.EventDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.RegistrationDetail, error) {
	rows, err := r.DB.QueryContext(ctx, registrationDetailSelect+` WHERE r.event_id = $1 ORDER BY r.created_at ASC, r.id`, eventID)
	if err != nil {
		return nil, domain.NewStorageError("list registrations by event", err)
	}
	out, err := scanRegistrationDetails(rows)
	if err != nil {
		return nil, domain.NewStorageError("list registrations by event", err)
	}
	return out, nil
}

func (r *registrationRepository) List(ctx context.Context, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.RegistrationDetail, int, error) {
	var c conditions
	if filter.Search != "" {
		c.add(`(u.name ILIKE ? OR e.title ILIKE ?)`, likePattern(filter.Search))
	}
	if filter.EventID != "" {
		c.add(`r.event_id = ?`, filter.EventID)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		JOIN events e ON e.id = r.event_id` + c.where()
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, c.args...).Scan(&total); err != nil {
		if isInvalidID(err) {
			return []*domain.RegistrationDetail{}, 0, nil
		}
		return nil, 0, domain.NewStorageError("count registrations", err)
	}

	limit, args := c.page(params.Limit(), params.Offset())
	rows, err := r.DB.QueryContext(ctx, registrationDetailSelect+c.where()+` ORDER BY r.created_at DESC, r.id`+limit, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list registrations", err)
	}
	out, err := scanRegistrationDetails(rows)
	if err != nil {
		return nil, 0, domain.NewStorageError("list registrations", err)
	}
	return out, total, nil
}

func (r *registrationRepository) ListByEventCreator(ctx context.Context, creatorID string) ([]*domain.RegistrationDetail, error) {
	rows, err := r.DB.QueryContext(ctx, registrationDetailSelect+` WHERE e.created_by = $1 ORDER BY e.event_date DESC, r.created_at ASC`, creatorID)
	if err != nil {
		return nil, domain.NewStorageError("list registrations by creator", err)
	}
	out, err := scanRegistrationDetails(rows)
	if err != nil {
		return nil, domain.NewStorageError("list registrations by creator", err)
	}
	return out, nil
}
