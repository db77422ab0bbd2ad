package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
	"github.com/ivmalkov/deal-pipeline/internal/policy"
	"github.com/ivmalkov/deal-pipeline/internal/repository"
	"github.com/ivmalkov/deal-pipeline/internal/service"
)

type dealCreateRequest struct {
	Title     string   `json:"title"`
	Sector    string   `json:"sector"`
	DealType  string   `json:"dealType"`
	DealValue *float64 `json:"dealValue,omitempty"`
}

type dealUpdateRequest struct {
	Title    *string `json:"title,omitempty"`
	Sector   *string `json:"sector,omitempty"`
	DealType *string `json:"dealType,omitempty"`
	Stage    *string `json:"stage,omitempty"`
}

type dealValueRequest struct {
	DealValue *float64 `json:"dealValue"`
}

type noteRequest struct {
	Text string `json:"text"`
}

func principal(w http.ResponseWriter, r *http.Request) (policy.Principal, bool) {
	p, ok := PrincipalFromCtx(r.Context())
	if !ok {
		mapError(w, r, errs.ErrTokenInvalid)
	}
	return p, ok
}

func dealID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "dealID"))
	if err != nil {
		writeBadRequest(w, r, "bad deal id")
		return uuid.Nil, false
	}
	return id, true
}

// pageRequest parses ?page=&size= with sane bounds.
func pageRequest(r *http.Request) repository.PageRequest {
	page := repository.PageRequest{Number: 0, Size: 20}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 0 {
		page.Number = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && v > 0 && v <= 100 {
		page.Size = v
	}
	return page
}

func dealFilter(w http.ResponseWriter, r *http.Request) (repository.DealFilter, bool) {
	var f repository.DealFilter
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, ok := model.ParseStage(raw)
		if !ok {
			writeBadRequest(w, r, "unknown stage")
			return f, false
		}
		f.Stage = stage
	}
	f.Sector = r.URL.Query().Get("sector")
	f.Query = r.URL.Query().Get("q")
	return f, true
}

// handleCreateDeal creates a deal owned by the caller.
func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dealCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeBadRequest(w, r, "title is required")
		return
	}

	d, err := s.deals.Create(r.Context(), p, service.DealCreateInput{
		Title:     req.Title,
		Sector:    req.Sector,
		DealType:  req.DealType,
		DealValue: req.DealValue,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleGetDeal returns one deal for its owner or an admin.
func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	d, err := s.deals.Get(r.Context(), p, id)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleUpdateDeal applies a partial update.
func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	var req dealUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid JSON body")
		return
	}

	in := service.DealUpdateInput{Title: req.Title, Sector: req.Sector, DealType: req.DealType}
	if req.Stage != nil {
		stage, valid := model.ParseStage(*req.Stage)
		if !valid {
			writeBadRequest(w, r, "unknown stage")
			return
		}
		in.Stage = &stage
	}

	d, err := s.deals.Update(r.Context(), p, id, in)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDealValue sets the sensitive deal value (admin only).
func (s *Server) handleDealValue(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	var req dealValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid JSON body")
		return
	}
	d, err := s.deals.SetValue(r.Context(), p, id, req.DealValue)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDeal removes a deal (admin only).
func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	if err := s.deals.Delete(r.Context(), p, id); err != nil {
		mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMyDeals pages the caller's deals.
func (s *Server) handleMyDeals(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, err := s.deals.ListMine(r.Context(), p, pageRequest(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleAdminDeals pages all deals with optional stage/sector filter (admin only).
func (s *Server) handleAdminDeals(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	f, ok := dealFilter(w, r)
	if !ok {
		return
	}
	page, err := s.deals.ListAll(r.Context(), p, f, pageRequest(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleSearchDeals searches title/sector; non-admins see only their own deals.
func (s *Server) handleSearchDeals(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	f, ok := dealFilter(w, r)
	if !ok {
		return
	}
	page, err := s.deals.Search(r.Context(), p, f, pageRequest(r))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleAddNote appends a note authored by the caller.
func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeBadRequest(w, r, "text is required")
		return
	}
	d, err := s.deals.AddNote(r.Context(), p, id, req.Text)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleDeleteNote removes a note for an admin or its author.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	noteID, err := uuid.FromString(chi.URLParam(r, "noteID"))
	if err != nil {
		writeBadRequest(w, r, "bad note id")
		return
	}
	d, derr := s.deals.DeleteNote(r.Context(), p, id, noteID)
	if derr != nil {
		mapError(w, r, derr)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
