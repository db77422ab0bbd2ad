// Package httpserver exposes the deal-pipeline REST API.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivmalkov/deal-pipeline/internal/repository"
	"github.com/ivmalkov/deal-pipeline/internal/service"
	"github.com/ivmalkov/deal-pipeline/internal/token"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth     service.AuthService
	users    service.UserService
	deals    service.DealService
	userRepo repository.UserRepository
	issuer   *token.Issuer
	logger   *zap.Logger
}

// New constructs a Server with injected services.
func New(
	auth service.AuthService,
	users service.UserService,
	deals service.DealService,
	userRepo repository.UserRepository,
	issuer *token.Issuer,
	logger *zap.Logger,
) *Server {
	return &Server{auth: auth, users: users, deals: deals, userRepo: userRepo, issuer: issuer, logger: logger}
}

// Routes assembles the full router with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.logger))
	r.Use(RequestLogger(s.logger))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/init-admin", s.handleInitAdmin) // open only until an admin exists

		r.Group(func(r chi.Router) {
			r.Use(s.RequireAuth)
			r.Get("/me", s.handleCurrentUser)

			r.Group(func(r chi.Router) {
				r.Use(s.RequireAdmin)
				r.Post("/", s.handleCreateUser)
				r.Get("/", s.handleListUsers)
				r.Get("/username/{username}", s.handleGetUserByUsername)
				r.Get("/email/{email}", s.handleGetUserByEmail)
				r.Patch("/{username}/make-admin", s.handlePromoteUser)
				r.Patch("/{username}/status", s.handleUserStatus)
				r.Put("/{username}/password", s.handleResetPassword)
				r.Delete("/{username}", s.handleDeleteUser)
			})
		})
	})

	r.Route("/api/deals", func(r chi.Router) {
		r.Use(s.RequireAuth)
		r.Post("/", s.handleCreateDeal)
		r.Get("/my", s.handleMyDeals)
		r.Get("/search", s.handleSearchDeals)
		r.Get("/{dealID}", s.handleGetDeal)
		r.Patch("/{dealID}", s.handleUpdateDeal)
		r.Post("/{dealID}/notes", s.handleAddNote)
		r.Delete("/{dealID}/notes/{noteID}", s.handleDeleteNote)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireAdmin)
			r.Get("/admin", s.handleAdminDeals)
			r.Patch("/{dealID}/value", s.handleDealValue)
			r.Delete("/{dealID}", s.handleDeleteDeal)
		})
	})

	return r
}
