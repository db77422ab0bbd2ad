package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/ivmalkov/deal-pipeline/internal/crypto"
	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
	"github.com/ivmalkov/deal-pipeline/internal/repository"
)

// UserService covers administrative account provisioning and maintenance.
type UserService interface {
	// Create provisions a new account. Duplicate username/email fails with
	// errs.ErrAlreadyExists.
	Create(ctx context.Context, username, email, password string, role model.Role) (*model.User, error)
	// CreateInitialAdmin provisions the first ADMIN account; fails once any
	// admin exists.
	CreateInitialAdmin(ctx context.Context, username, email, password string) (*model.User, error)
	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByEmail loads an account by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns all accounts.
	List(ctx context.Context) ([]model.User, error)
	// PromoteToAdmin raises an account to ADMIN.
	PromoteToAdmin(ctx context.Context, username string) (*model.User, error)
	// SetActive toggles the active flag.
	SetActive(ctx context.Context, username string, active bool) (*model.User, error)
	// ResetPassword replaces the stored password hash.
	ResetPassword(ctx context.Context, username, newPassword string) (*model.User, error)
	// Delete removes an account.
	Delete(ctx context.Context, username string) error
}

type UserServiceImpl struct {
	users repository.UserRepository
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{users: users}
}

// Create provisions a new account with a hashed password.
func (s *UserServiceImpl) Create(ctx context.Context, username, email, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email, and password are required", errs.ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleUser
	}
	if _, ok := model.ParseRole(string(role)); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", errs.ErrInvalidInput, role)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:       uid,
		Username: username,
		Email:    email,
		PwdHash:  hash,
		Role:     role,
		Active:   true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateInitialAdmin bootstraps the first admin account. Once any ADMIN
// exists the path is closed.
func (s *UserServiceImpl) CreateInitialAdmin(ctx context.Context, username, email, password string) (*model.User, error) {
	n, err := s.users.CountAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, errs.ErrAlreadyExists
	}
	return s.Create(ctx, username, email, password, model.RoleAdmin)
}

// GetByUsername loads an account by username.
func (s *UserServiceImpl) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// GetByEmail loads an account by email.
func (s *UserServiceImpl) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// List returns all accounts.
func (s *UserServiceImpl) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// PromoteToAdmin raises an account to ADMIN.
func (s *UserServiceImpl) PromoteToAdmin(ctx context.Context, username string) (*model.User, error) {
	return s.users.SetRole(ctx, username, model.RoleAdmin)
}

// SetActive toggles the active flag.
func (s *UserServiceImpl) SetActive(ctx context.Context, username string, active bool) (*model.User, error) {
	return s.users.SetActive(ctx, username, active)
}

// ResetPassword replaces the stored password hash.
func (s *UserServiceImpl) ResetPassword(ctx context.Context, username, newPassword string) (*model.User, error) {
	if newPassword == "" {
		return nil, fmt.Errorf("%w: password is required", errs.ErrInvalidInput)
	}
	hash, err := pkgcrypto.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	return s.users.SetPasswordHash(ctx, username, hash)
}

// Delete removes an account.
func (s *UserServiceImpl) Delete(ctx context.Context, username string) error {
	return s.users.Delete(ctx, username)
}
