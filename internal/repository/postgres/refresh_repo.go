package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// RefreshRepo implements RefreshTokenRepository using PostgreSQL.
type RefreshRepo struct{ db *DB }

// NewRefreshRepo constructs a refresh-token ledger repository.
func NewRefreshRepo(db *DB) *RefreshRepo { return &RefreshRepo{db: db} }

const refreshColumns = `id, token, user_id, expires_at, revoked, created_at`

func scanRefresh(row pgx.Row) (*model.RefreshToken, error) {
	var rec model.RefreshToken
	err := row.Scan(&rec.ID, &rec.Token, &rec.UserID, &rec.ExpiresAt, &rec.Revoked, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new ledger record with revoked=false.
func (r *RefreshRepo) Create(ctx context.Context, rec *model.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (token, user_id, expires_at, revoked)
VALUES ($1, $2, $3, false)
RETURNING id, created_at`
	return r.db.Pool.QueryRow(ctx, q, rec.Token, rec.UserID, rec.ExpiresAt).
		Scan(&rec.ID, &rec.CreatedAt)
}

// Find looks up a record by its opaque value and classifies its lifecycle
// state. Revoked wins over expired when both apply.
func (r *RefreshRepo) Find(ctx context.Context, tokenValue string) (*model.RefreshToken, error) {
	const q = `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token=$1`
	rec, err := scanRefresh(r.db.Pool.QueryRow(ctx, q, tokenValue))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrTokenNotFound
		}
		return nil, err
	}
	if rec.Revoked {
		return nil, errs.ErrTokenRevoked
	}
	if !rec.ExpiresAt.After(time.Now()) {
		return nil, errs.ErrTokenExpired
	}
	return rec, nil
}

// Revoke flips revoked false->true conditionally on the record still being
// valid. The single conditional UPDATE is the atomicity choke-point for
// rotation: two concurrent revokes of the same value can never both match the
// WHERE clause, so exactly one caller gets the row back and the other is
// classified as revoked.
func (r *RefreshRepo) Revoke(ctx context.Context, tokenValue string) (*model.RefreshToken, error) {
	const q = `
UPDATE refresh_tokens
SET revoked=true
WHERE token=$1 AND revoked=false AND expires_at > now()
RETURNING ` + refreshColumns
	rec, err := scanRefresh(r.db.Pool.QueryRow(ctx, q, tokenValue))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// The update matched nothing; re-read to report why. Revocation is sticky
	// and expiry is monotonic, so the classification cannot flip back to valid.
	if _, ferr := r.Find(ctx, tokenValue); ferr != nil {
		return nil, ferr
	}
	return nil, errs.ErrTokenRevoked
}
