package token

import (
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
)

func testUser(role model.Role) *model.User {
	return &model.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "alice",
		Role:     role,
		Active:   true,
	}
}

func TestIssueAndVerify_Roundtrip(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), time.Minute)
	signed, exp, err := iss.Issue(testUser(model.RoleAdmin))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry not in the future: %v", exp)
	}

	claims, err := iss.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject=%q, want alice", claims.Subject)
	}
	if claims.Role != model.RoleAdmin {
		t.Fatalf("role=%q, want ADMIN", claims.Role)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatalf("missing iat/exp")
	}
}

func TestVerify_AllFailuresCollapse(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), time.Minute)

	// garbage
	if _, err := iss.Verify("not-a-jwt"); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("garbage: want ErrTokenInvalid, got %v", err)
	}

	// wrong key
	other := NewIssuer([]byte("other"), time.Minute)
	signed, _, err := other.Issue(testUser(model.RoleUser))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := iss.Verify(signed); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("wrong key: want ErrTokenInvalid, got %v", err)
	}

	// expired
	past := NewIssuer([]byte("secret"), -time.Minute)
	signed, _, err = past.Issue(testUser(model.RoleUser))
	if err != nil {
		t.Fatalf("Issue expired: %v", err)
	}
	if _, err := iss.Verify(signed); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("expired: want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_RejectsForeignSigningMethod(t *testing.T) {
	t.Parallel()

	// alg=none tokens must never pass
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	iss := NewIssuer([]byte("secret"), time.Minute)
	if _, err := iss.Verify(raw); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("alg=none: want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_RejectsUnknownRoleOrMissingSubject(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	iss := NewIssuer(key, time.Minute)

	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	noSub := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
		Role:             model.RoleUser,
	})
	if _, err := iss.Verify(noSub); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("missing sub: want ErrTokenInvalid, got %v", err)
	}

	badRole := sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: model.Role("SUPERUSER"),
	})
	if _, err := iss.Verify(badRole); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("unknown role: want ErrTokenInvalid, got %v", err)
	}
}
