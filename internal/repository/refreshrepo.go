package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// RefreshTokenRepository is the ledger of opaque refresh tokens. It is the only
// shared mutable state in the session core, so Revoke carries the atomicity
// guarantee the rotation flow depends on.
type RefreshTokenRepository interface {
	// Create persists a new record with revoked=false and the given expiry.
	Create(ctx context.Context, rec *model.RefreshToken) error

	// Find looks up a record by its opaque value and classifies its state:
	// errs.ErrTokenNotFound, errs.ErrTokenRevoked, errs.ErrTokenExpired, or
	// the live record.
	Find(ctx context.Context, tokenValue string) (*model.RefreshToken, error)

	// Revoke flips revoked false->true for a currently valid record. The flip
	// must be conditional on the record still being valid, executed as one
	// atomic unit: of two concurrent revokes of the same value exactly one
	// succeeds, the other observes errs.ErrTokenRevoked. Revoking an unknown,
	// revoked, or expired value fails with the matching sentinel.
	Revoke(ctx context.Context, tokenValue string) (*model.RefreshToken, error)
}

// NewRefreshToken builds an unsaved ledger record for a user with the given
// validity window.
func NewRefreshToken(userID uuid.UUID, tokenValue string, validity time.Duration) *model.RefreshToken {
	return &model.RefreshToken{
		Token:     tokenValue,
		UserID:    userID,
		ExpiresAt: time.Now().Add(validity),
		Revoked:   false,
	}
}
