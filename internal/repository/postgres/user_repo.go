package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventease/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, name, email, password_hash, role, department, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Department, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Department, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return domain.NewStorageError("create user", err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get user by email", err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get user", err)
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	return updateUser(ctx, r.DB, u)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateUser(ctx context.Context, db execer, u *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, role = $4, department = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := db.ExecContext(ctx, query, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Department, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		if isInvalidID(err) {
			return domain.ErrUserNotFound
		}
		return domain.NewStorageError("update user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError("update user", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// lockAdminGuard locks the user row and, when it belongs to an admin, every
// admin row. It returns ErrLastAdmin when the user is the only admin left.
func lockAdminGuard(ctx context.Context, tx *sql.Tx, id string) error {
	var role string
	err := tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return domain.NewStorageError("lock user", err)
	}
	if domain.Role(role) != domain.RoleAdmin {
		return nil
	}
	var admins int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM (SELECT id FROM users WHERE role = 'admin' FOR UPDATE) admins`).Scan(&admins)
	if err != nil {
		return domain.NewStorageError("count admins", err)
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

// DemoteAdmin saves a user whose role moves away from admin under the same
// admin lock as Delete, so two admins demoting each other keep one admin.
func (r *userRepository) DemoteAdmin(ctx context.Context, u *domain.User) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin demote admin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockAdminGuard(ctx, tx, u.ID); err != nil {
		return err
	}
	if err := updateUser(ctx, tx, u); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit demote admin", err)
	}
	return nil
}

// Delete removes a user inside a transaction that locks every admin row, so
// two admins deleting each other cannot leave the system without an admin.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin delete user", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockAdminGuard(ctx, tx, id); err != nil {
		return err
	}

	// registrations and feedback cascade; events.created_by is set to NULL.
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return domain.NewStorageError("delete user", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit delete user", err)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter, params domain.PaginationParams) ([]*domain.User, int, error) {
	var c conditions
	if filter.Search != "" {
		c.add(`(name ILIKE ? OR email ILIKE ?)`, likePattern(filter.Search))
	}
	if filter.Role != "" {
		c.add(`role = ?`, string(filter.Role))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+c.where(), c.args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count users", err)
	}

	limit, args := c.page(params.Limit(), params.Offset())
	query := `SELECT ` + userColumns + ` FROM users` + c.where() + ` ORDER BY created_at DESC, id` + limit
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	return users, total, nil
}
