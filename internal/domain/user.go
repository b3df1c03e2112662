package domain

import (
	"context"
	"time"
)

// Role is the account type chosen at registration. It never changes.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleTenant
}

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// CascadeSummary counts the dependent rows removed by a cascading delete.
type CascadeSummary struct {
	Users      int64 `json:"users,omitempty"`
	Properties int64 `json:"properties,omitempty"`
	Contracts  int64 `json:"contracts,omitempty"`
	Payments   int64 `json:"payments"`
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	// List returns every account, newest first.
	List(ctx context.Context) ([]*User, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
	// DeleteCascade removes the user with every payment, contract and
	// property that references it. Callers run it inside a transaction.
	DeleteCascade(ctx context.Context, id string) (*CascadeSummary, error)
}

// Transactor runs fn inside a single storage transaction carried by ctx.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
