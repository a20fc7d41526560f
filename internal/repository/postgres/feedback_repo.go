package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventease/internal/domain"
)

type feedbackRepository struct {
	DB *sql.DB
}

func NewFeedbackRepository(db *sql.DB) domain.FeedbackRepository {
	return &feedbackRepository{DB: db}
}

func (r *feedbackRepository) Create(ctx context.Context, fb *domain.Feedback) error {
	query := `
		INSERT INTO feedback (user_id, event_id, rating, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, fb.UserID, fb.EventID, fb.Rating, fb.Message, fb.CreatedAt).Scan(&fb.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateFeedback
	}
	return domain.NewStorageError("create feedback", err)
}

func (r *feedbackRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Feedback, error) {
	query := `
		SELECT id, user_id, event_id, rating, message, created_at
		FROM feedback
		WHERE event_id = $1 AND user_id = $2
	`
	fb := &domain.Feedback{}
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&fb.ID, &fb.UserID, &fb.EventID, &fb.Rating, &fb.Message, &fb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get feedback", err)
	}
	return fb, nil
}

const feedbackDetailSelect = `
	SELECT f.id, f.user_id, u.name, f.event_id, e.title, f.rating, f.message, f.created_at
	FROM feedback f
	JOIN users u ON u.id = f.user_id
	JOIN events e ON e.id = f.event_id`

func scanFeedbackDetails(rows *sql.Rows) ([]*domain.FeedbackDetail, error) {
	defer rows.Close()
	out := []*domain.FeedbackDetail{}
	for rows.Next() {
		d := &domain.FeedbackDetail{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserName, &d.EventID, &d.EventTitle, &d.Rating, &d.Message, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *feedbackRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.FeedbackDetail, error) {
	rows, err := r.DB.QueryContext(ctx, feedbackDetailSelect+` WHERE f.user_id = $1 ORDER BY f.created_at DESC, f.id`, userID)
	if isInvalidID(err) {
		return []*domain.FeedbackDetail{}, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("list feedback by user", err)
	}
	out, err := scanFeedbackDetails(rows)
	if err != nil {
		return nil, domain.NewStorageError("list feedback by user", err)
	}
	return out, nil
}

func (r *feedbackRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.FeedbackDetail, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count feedback", err)
	}

	var c conditions
	limit, args := c.page(params.Limit(), params.Offset())
	rows, err := r.DB.QueryContext(ctx, feedbackDetailSelect+` ORDER BY f.created_at DESC, f.id`+limit, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list feedback", err)
	}
	out, err := scanFeedbackDetails(rows)
	if err != nil {
		return nil, 0, domain.NewStorageError("list feedback", err)
	}
	return out, total, nil
}

func (r *feedbackRepository) ListByEventCreator(ctx context.Context, creatorID string) ([]*domain.FeedbackDetail, error) {
	rows, err := r.DB.QueryContext(ctx, feedbackDetailSelect+` WHERE e.created_by = $1 ORDER BY f.created_at DESC, f.id`, creatorID)
	if isInvalidID(err) {
		return []*domain.FeedbackDetail{}, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("list feedback by creator", err)
	}
	out, err := scanFeedbackDetails(rows)
	if err != nil {
		return nil, domain.NewStorageError("list feedback by creator", err)
	}
	return out, nil
}
