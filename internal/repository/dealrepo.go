package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// DealFilter narrows listings and search.
type DealFilter struct {
	OwnerID uuid.UUID       // Nil = any owner
	Stage   model.DealStage // empty = any
	Sector  string          // empty = any
	Query   string          // substring match on title/sector, empty = all
}

// PageRequest selects one page of a listing. Page numbers start at 0.
type PageRequest struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int { return p.Number * p.Size }

// DealUpdate carries a partial update; nil fields stay untouched.
type DealUpdate struct {
	Title    *string
	Sector   *string
	DealType *string
	Stage    *model.DealStage
}

// DealRepository provides CRUD and note operations for deals. Notes are a
// child collection mutated only through explicit append/remove operations.
type DealRepository interface {
	// Create inserts a new deal and returns it with generated fields filled.
	Create(ctx context.Context, d *model.Deal) error
	// GetByID loads a deal with its notes.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	// Update applies a partial update and returns the fresh deal.
	Update(ctx context.Context, id uuid.UUID, upd DealUpdate) (*model.Deal, error)
	// SetValue sets the sensitive deal value (admin-only path, enforced above).
	SetValue(ctx context.Context, id uuid.UUID, value *float64) (*model.Deal, error)
	// Delete removes a deal and its notes.
	Delete(ctx context.Context, id uuid.UUID) error
	// List pages deals matching the filter, newest first.
	List(ctx context.Context, f DealFilter, page PageRequest) (*model.Page[model.Deal], error)
	// AddNote appends a note to a deal and returns the stored note.
	AddNote(ctx context.Context, dealID, authorID uuid.UUID, text string) (*model.DealNote, error)
	// GetNote loads a single note of a deal.
	GetNote(ctx context.Context, dealID, noteID uuid.UUID) (*model.DealNote, error)
	// RemoveNote deletes a note from a deal.
	RemoveNote(ctx context.Context, dealID, noteID uuid.UUID) error
}
