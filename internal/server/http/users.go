package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
)

type createUserRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

type userStatusRequest struct {
	Active *bool `json:"active"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// userResponse never carries password material.
type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func decodeUserRequest(w http.ResponseWriter, r *http.Request) (createUserRequest, bool) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid JSON body")
		return req, false
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, r, "username, email, and password are required")
		return req, false
	}
	return req, true
}

// handleInitAdmin bootstraps the first admin account. Closed once any admin exists.
func (s *Server) handleInitAdmin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeUserRequest(w, r)
	if !ok {
		return
	}
	u, err := s.users.CreateInitialAdmin(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// handleCreateUser provisions an account (admin only).
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeUserRequest(w, r)
	if !ok {
		return
	}
	if req.Role != "" {
		if _, valid := model.ParseRole(string(req.Role)); !valid {
			writeBadRequest(w, r, "invalid role: must be USER or ADMIN")
			return
		}
	}
	u, err := s.users.Create(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// handleCurrentUser returns the caller's own account.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromCtx(r.Context())
	if !ok {
		mapError(w, r, errs.ErrTokenInvalid)
		return
	}
	u, err := s.users.GetByUsername(r.Context(), p.Username)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleListUsers returns every account (admin only).
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUserByUsername(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handlePromoteUser raises an account to ADMIN (admin only).
func (s *Server) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.PromoteToAdmin(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleUserStatus toggles the active flag (admin only).
func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	var req userStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeBadRequest(w, r, "active is required")
		return
	}
	u, err := s.users.SetActive(r.Context(), chi.URLParam(r, "username"), *req.Active)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleResetPassword replaces an account's password (admin only).
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeBadRequest(w, r, "password is required")
		return
	}
	u, err := s.users.ResetPassword(r.Context(), chi.URLParam(r, "username"), req.Password)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleDeleteUser removes an account (admin only).
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), chi.URLParam(r, "username")); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
