package httpserver

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/policy"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs method, path, status, duration, and remote address.
// No payloads.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// Recover turns panics into 500 responses and logs the stack.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeErr(w, r, http.StatusInternalServerError, "Internal Server Error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth extracts the bearer access token, verifies it, resolves the
// account behind the subject claim, and stores a Principal in the request
// context. Inactive or vanished accounts are rejected the same way as bad
// tokens.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			mapError(w, r, errs.ErrTokenInvalid)
			return
		}
		claims, err := s.issuer.Verify(raw)
		if err != nil {
			mapError(w, r, err)
			return
		}
		u, err := s.userRepo.GetByUsername(r.Context(), claims.Subject)
		if err != nil || !u.Active {
			mapError(w, r, errs.ErrTokenInvalid)
			return
		}

		p := policy.Principal{ID: u.ID, Username: u.Username, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin gates a subtree on the ADMIN role. Must run after RequireAuth.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromCtx(r.Context())
		if !ok {
			mapError(w, r, errs.ErrTokenInvalid)
			return
		}
		if !p.Role.IsAdmin() {
			mapError(w, r, errs.ErrAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
