// Package token mints and verifies self-contained signed access tokens.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// Claims is the signed claim set embedded in an access token.
type Claims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

// Issuer mints HS256 access tokens with a fixed short TTL. Verification is
// purely local: no issued token is recorded anywhere, so none can be revoked
// before its TTL elapses. That is a documented limitation of the stateless
// design, not a defect.
type Issuer struct {
	signKey []byte
	ttl     time.Duration
}

// NewIssuer constructs an Issuer with the symmetric signing key and access TTL.
func NewIssuer(signKey []byte, ttl time.Duration) *Issuer {
	return &Issuer{signKey: signKey, ttl: ttl}
}

// Issue signs a claim set {sub=username, role, iat, exp=now+TTL} for the user.
func (i *Issuer) Issue(u *model.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signKey)
	return signed, exp, err
}

// Verify validates signature and expiry and returns the claims. Every failure
// collapses into errs.ErrTokenInvalid so callers cannot probe which check
// rejected the token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errs.ErrTokenInvalid
		}
		return i.signKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errs.ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, errs.ErrTokenInvalid
	}
	if _, ok := model.ParseRole(string(claims.Role)); !ok {
		return nil, errs.ErrTokenInvalid
	}
	return claims, nil
}
