package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrLastAdmin      = errors.New("cannot delete the last admin user")
)

// Role determines the default authorization of a user.
type Role string

const (
	RoleStudent   Role = "student"
	RoleClubAdmin Role = "club_admin"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleClubAdmin, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Department   string    `json:"department"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(name, email, passwordHash string, role Role, department string, createdAt, updatedAt time.Time) *User {
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Department:   department,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// HasRole reports whether the user holds any of the given roles.
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// UserFilter narrows user listings.
type UserFilter struct {
	Search string
	Role   Role
}

// UserPatch holds optional user field changes. Nil fields are unchanged.
type UserPatch struct {
	Name       *string
	Email      *string
	Department *string
	Role       *Role
	Password   *string
}

// OnlyProfileFields reports whether the patch touches nothing beyond name and department.
func (p UserPatch) OnlyProfileFields() bool {
	return p.Email == nil && p.Role == nil && p.Password == nil
}

// SignUpInput carries the fields needed to create an account.
type SignUpInput struct {
	Name       string
	Email      string
	Password   string
	Role       Role
	Department string
}

// PasswordHasher hashes and verifies passwords.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// IdentityResolver maps a credential to the user it belongs to.
// It returns ErrUnauthenticated for missing, expired or unknown credentials.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*User, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	// DemoteAdmin saves a user whose stored role is admin and whose new role is
	// not. Returns ErrLastAdmin when the user is the only admin.
	DemoteAdmin(ctx context.Context, user *User) error
	// Delete removes the user; registrations and feedback cascade, authored
	// events are orphaned. Returns ErrLastAdmin when the user is the only admin.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter UserFilter, params PaginationParams) ([]*User, int, error)
}

// UserService defines the business logic for accounts, profiles and user administration.
type UserService interface {
	SignUp(ctx context.Context, in SignUpInput) (*User, error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, name, department *string) (*User, error)
	UpdateUser(ctx context.Context, actor *User, userID string, patch UserPatch) (*User, error)
	CreateUser(ctx context.Context, in SignUpInput) (*User, error)
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context, filter UserFilter, params PaginationParams) ([]*User, int, error)
}
