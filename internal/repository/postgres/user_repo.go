package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, pwd_hash, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, role, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.Username, u.Email, u.PwdHash, string(u.Role), u.Active).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = model.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountAdmins returns the number of ADMIN accounts.
func (r *UserRepo) CountAdmins(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM users WHERE role='ADMIN'`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SetRole updates the role of a user by username.
func (r *UserRepo) SetRole(ctx context.Context, username string, role model.Role) (*model.User, error) {
	const q = `
UPDATE users SET role=$2, updated_at=now() WHERE username=$1
RETURNING ` + userColumns
	return scanUser(r.db.Pool.QueryRow(ctx, q, username, string(role)))
}

// SetActive toggles the active flag of a user by username.
func (r *UserRepo) SetActive(ctx context.Context, username string, active bool) (*model.User, error) {
	const q = `
UPDATE users SET active=$2, updated_at=now() WHERE username=$1
RETURNING ` + userColumns
	return scanUser(r.db.Pool.QueryRow(ctx, q, username, active))
}

// SetPasswordHash replaces the stored password hash of a user by username.
func (r *UserRepo) SetPasswordHash(ctx context.Context, username string, pwdHash string) (*model.User, error) {
	const q = `
UPDATE users SET pwd_hash=$2, updated_at=now() WHERE username=$1
RETURNING ` + userColumns
	return scanUser(r.db.Pool.QueryRow(ctx, q, username, pwdHash))
}

// Delete removes a user by username.
func (r *UserRepo) Delete(ctx context.Context, username string) error {
	const q = `DELETE FROM users WHERE username=$1`
	tag, err := r.db.Pool.Exec(ctx, q, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
