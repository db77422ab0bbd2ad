package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
	"github.com/ivmalkov/deal-pipeline/internal/policy"
	"github.com/ivmalkov/deal-pipeline/internal/repository"
)

// DealCreateInput carries the caller-supplied fields for a new deal.
type DealCreateInput struct {
	Title     string
	Sector    string
	DealType  string
	DealValue *float64 // kept only for admin callers
}

// DealUpdateInput is a partial update; nil fields stay untouched.
type DealUpdateInput struct {
	Title    *string
	Sector   *string
	DealType *string
	Stage    *model.DealStage
}

// DealService applies the access policy to every deal read and write and
// returns role-projected views only.
type DealService interface {
	Create(ctx context.Context, p policy.Principal, in DealCreateInput) (*model.Deal, error)
	Get(ctx context.Context, p policy.Principal, dealID uuid.UUID) (*model.Deal, error)
	Update(ctx context.Context, p policy.Principal, dealID uuid.UUID, in DealUpdateInput) (*model.Deal, error)
	SetValue(ctx context.Context, p policy.Principal, dealID uuid.UUID, value *float64) (*model.Deal, error)
	Delete(ctx context.Context, p policy.Principal, dealID uuid.UUID) error
	ListMine(ctx context.Context, p policy.Principal, page repository.PageRequest) (*model.Page[model.Deal], error)
	ListAll(ctx context.Context, p policy.Principal, f repository.DealFilter, page repository.PageRequest) (*model.Page[model.Deal], error)
	Search(ctx context.Context, p policy.Principal, f repository.DealFilter, page repository.PageRequest) (*model.Page[model.Deal], error)
	AddNote(ctx context.Context, p policy.Principal, dealID uuid.UUID, text string) (*model.Deal, error)
	DeleteNote(ctx context.Context, p policy.Principal, dealID, noteID uuid.UUID) (*model.Deal, error)
}

type DealServiceImpl struct {
	deals repository.DealRepository
}

// NewDealService constructs DealService.
func NewDealService(deals repository.DealRepository) *DealServiceImpl {
	return &DealServiceImpl{deals: deals}
}

// Create inserts a new deal owned by the caller, starting at LEAD. A deal
// value supplied by a non-admin is silently discarded, not rejected.
func (s *DealServiceImpl) Create(ctx context.Context, p policy.Principal, in DealCreateInput) (*model.Deal, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", errs.ErrInvalidInput)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	d := &model.Deal{
		ID:       id,
		Title:    in.Title,
		Sector:   in.Sector,
		DealType: in.DealType,
		Stage:    model.StageLead,
		OwnerID:  p.ID,
	}
	if policy.CanWriteDealValue(p) {
		d.DealValue = in.DealValue
	}

	if err := s.deals.Create(ctx, d); err != nil {
		return nil, err
	}
	return s.project(d, p), nil
}

// Get returns a single deal if the caller is its owner or an admin.
func (s *DealServiceImpl) Get(ctx context.Context, p policy.Principal, dealID uuid.UUID) (*model.Deal, error) {
	d, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadDeal(*d, p) {
		return nil, errs.ErrAccessDenied
	}
	return s.project(d, p), nil
}

// Update applies a partial update for the owner or an admin. Stage moves are
// unconstrained: any known stage is settable at any time.
func (s *DealServiceImpl) Update(ctx context.Context, p policy.Principal, dealID uuid.UUID, in DealUpdateInput) (*model.Deal, error) {
	d, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateDeal(*d, p) {
		return nil, errs.ErrAccessDenied
	}

	upd := repository.DealUpdate{Title: in.Title, Sector: in.Sector, DealType: in.DealType, Stage: in.Stage}
	out, err := s.deals.Update(ctx, dealID, upd)
	if err != nil {
		return nil, err
	}
	return s.project(out, p), nil
}

// SetValue changes the sensitive deal value; admin only.
func (s *DealServiceImpl) SetValue(ctx context.Context, p policy.Principal, dealID uuid.UUID, value *float64) (*model.Deal, error) {
	if !policy.CanWriteDealValue(p) {
		return nil, errs.ErrAccessDenied
	}
	out, err := s.deals.SetValue(ctx, dealID, value)
	if err != nil {
		return nil, err
	}
	return s.project(out, p), nil
}

// Delete removes a deal; admin only.
func (s *DealServiceImpl) Delete(ctx context.Context, p policy.Principal, dealID uuid.UUID) error {
	if !p.Role.IsAdmin() {
		return errs.ErrAccessDenied
	}
	return s.deals.Delete(ctx, dealID)
}

// ListMine pages the caller's own deals.
func (s *DealServiceImpl) ListMine(ctx context.Context, p policy.Principal, page repository.PageRequest) (*model.Page[model.Deal], error) {
	out, err := s.deals.List(ctx, repository.DealFilter{OwnerID: p.ID}, page)
	if err != nil {
		return nil, err
	}
	return s.projectPage(out, p), nil
}

// ListAll pages every deal matching the filter; admin only.
func (s *DealServiceImpl) ListAll(ctx context.Context, p policy.Principal, f repository.DealFilter, page repository.PageRequest) (*model.Page[model.Deal], error) {
	if !p.Role.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	f.OwnerID = uuid.Nil
	out, err := s.deals.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	return s.projectPage(out, p), nil
}

// Search pages deals matching a title/sector substring. Admins search every
// deal; everyone else searches only their own.
func (s *DealServiceImpl) Search(ctx context.Context, p policy.Principal, f repository.DealFilter, page repository.PageRequest) (*model.Page[model.Deal], error) {
	if !p.Role.IsAdmin() {
		f.OwnerID = p.ID
	}
	out, err := s.deals.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	return s.projectPage(out, p), nil
}

// AddNote appends a collaborator note authored by the caller and returns the
// updated deal.
func (s *DealServiceImpl) AddNote(ctx context.Context, p policy.Principal, dealID uuid.UUID, text string) (*model.Deal, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: note text is required", errs.ErrInvalidInput)
	}
	if _, err := s.deals.AddNote(ctx, dealID, p.ID, text); err != nil {
		return nil, err
	}
	d, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return s.project(d, p), nil
}

// DeleteNote removes a note if the caller is an admin or its author.
func (s *DealServiceImpl) DeleteNote(ctx context.Context, p policy.Principal, dealID, noteID uuid.UUID) (*model.Deal, error) {
	n, err := s.deals.GetNote(ctx, dealID, noteID)
	if err != nil {
		return nil, err
	}
	if !policy.CanDeleteNote(*n, p) {
		return nil, errs.ErrAccessDenied
	}
	if err := s.deals.RemoveNote(ctx, dealID, noteID); err != nil {
		return nil, err
	}
	d, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return s.project(d, p), nil
}

func (s *DealServiceImpl) project(d *model.Deal, p policy.Principal) *model.Deal {
	out := policy.ProjectDeal(*d, p.Role)
	return &out
}

func (s *DealServiceImpl) projectPage(pg *model.Page[model.Deal], p policy.Principal) *model.Page[model.Deal] {
	pg.Items = policy.ProjectDeals(pg.Items, p.Role)
	return pg
}
