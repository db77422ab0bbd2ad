// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// UserRepository provides access to account records. Accounts are read-mostly:
// writes happen only through administrative operations.
type UserRepository interface {
	// Create inserts a new user. Duplicate username/email maps to errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]model.User, error)
	// CountAdmins returns the number of ADMIN accounts.
	CountAdmins(ctx context.Context) (int64, error)
	// SetRole updates the role of a user by username.
	SetRole(ctx context.Context, username string, role model.Role) (*model.User, error)
	// SetActive toggles the active flag of a user by username.
	SetActive(ctx context.Context, username string, active bool) (*model.User, error)
	// SetPasswordHash replaces the stored password hash of a user by username.
	SetPasswordHash(ctx context.Context, username string, pwdHash string) (*model.User, error)
	// Delete removes a user by username.
	Delete(ctx context.Context, username string) error
}
