// Package service contains application services for sessions, users, and deals.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	pkgcrypto "github.com/ivmalkov/deal-pipeline/internal/crypto"
	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/limiter"
	"github.com/ivmalkov/deal-pipeline/internal/model"
	"github.com/ivmalkov/deal-pipeline/internal/repository"
	"github.com/ivmalkov/deal-pipeline/internal/token"
)

// AuthService orchestrates the session lifecycle: login, refresh rotation,
// and logout.
type AuthService interface {
	// Login authenticates a user and returns a fresh token pair.
	Login(ctx context.Context, username, password, ip string) (model.TokenPair, error)
	// Refresh rotates a refresh token and returns a new pair. The presented
	// value is permanently unusable afterward.
	Refresh(ctx context.Context, refreshTokenValue string) (model.TokenPair, error)
	// Logout revokes a refresh token.
	Logout(ctx context.Context, refreshTokenValue string) error
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	ledger     repository.RefreshTokenRepository
	issuer     *token.Issuer
	refreshTTL time.Duration
	lim        limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	ledger repository.RefreshTokenRepository,
	issuer *token.Issuer,
	refreshTTL time.Duration,
	lim limiter.Limiter,
) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, ledger: ledger, issuer: issuer, refreshTTL: refreshTTL, lim: lim}
}

// Login authenticates with rate limiting by (username, ip). A missing user and
// a wrong password are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, ip string) (model.TokenPair, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !allowed {
		return model.TokenPair{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword(password, u.PwdHash) || !u.Active {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.TokenPair{}, errs.ErrRateLimited
		}
		// lookup errors and deactivated accounts are masked the same as a
		// wrong password
		return model.TokenPair{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, username, ipHash)

	return s.mintPair(ctx, u)
}

// Refresh validates the presented value, revokes it, and returns a fresh pair.
// Of two concurrent calls with the same value exactly one reaches the mint
// step; the other fails at Revoke with errs.ErrTokenRevoked.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshTokenValue string) (model.TokenPair, error) {
	rec, err := s.ledger.Find(ctx, refreshTokenValue)
	if err != nil {
		return model.TokenPair{}, err
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.TokenPair{}, errs.ErrIdentityNotFound
		}
		return model.TokenPair{}, err
	}
	// A deactivated account must not rotate its way to fresh access tokens.
	if !u.Active {
		return model.TokenPair{}, errs.ErrUnauthorized
	}

	if _, err := s.ledger.Revoke(ctx, refreshTokenValue); err != nil {
		return model.TokenPair{}, err
	}

	return s.mintPair(ctx, u)
}

// Logout revokes the refresh token. Revoking an already-revoked, expired, or
// unknown value fails with the matching sentinel rather than succeeding
// idempotently; logout and rotation share the same revoke choke-point.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshTokenValue string) error {
	_, err := s.ledger.Revoke(ctx, refreshTokenValue)
	return err
}

// mintPair issues an access token and persists a new refresh-token record.
func (s *AuthServiceImpl) mintPair(ctx context.Context, u *model.User) (model.TokenPair, error) {
	access, exp, err := s.issuer.Issue(u)
	if err != nil {
		return model.TokenPair{}, err
	}

	opaque, err := newOpaqueToken()
	if err != nil {
		return model.TokenPair{}, err
	}
	rec := repository.NewRefreshToken(u.ID, opaque, s.refreshTTL)
	if err := s.ledger.Create(ctx, rec); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: rec.Token,
		TokenType:    "Bearer",
		ExpiresAt:    exp,
	}, nil
}

// newOpaqueToken returns a 256-bit random hex string. Unguessable, carries no
// structure, never interpreted by clients.
func newOpaqueToken() (string, error) {
	b, err := pkgcrypto.RandBytes(32)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
