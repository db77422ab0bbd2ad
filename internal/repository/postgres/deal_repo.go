package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
	"github.com/ivmalkov/deal-pipeline/internal/repository"
)

// DealRepo implements DealRepository using PostgreSQL. Notes live in a child
// table and are mutated only through AddNote/RemoveNote.
type DealRepo struct{ db *DB }

// NewDealRepo constructs a deal repository.
func NewDealRepo(db *DB) *DealRepo { return &DealRepo{db: db} }

const dealColumns = `id, title, sector, deal_type, stage, deal_value, owner_id, created_at, updated_at`

func scanDeal(row pgx.Row) (*model.Deal, error) {
	var d model.Deal
	var stage string
	err := row.Scan(&d.ID, &d.Title, &d.Sector, &d.DealType, &stage, &d.DealValue, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	d.Stage = model.DealStage(stage)
	d.Notes = []model.DealNote{}
	return &d, nil
}

// Create inserts a new deal row.
func (r *DealRepo) Create(ctx context.Context, d *model.Deal) error {
	const q = `
INSERT INTO deals (id, title, sector, deal_type, stage, deal_value, owner_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q,
		d.ID, d.Title, d.Sector, d.DealType, string(d.Stage), d.DealValue, d.OwnerID).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return err
	}
	if d.Notes == nil {
		d.Notes = []model.DealNote{}
	}
	return nil
}

// GetByID loads a deal with its notes.
func (r *DealRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	const q = `SELECT ` + dealColumns + ` FROM deals WHERE id=$1`
	d, err := scanDeal(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	notes, err := r.notesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	d.Notes = append(d.Notes, notes[id]...)
	return d, nil
}

// Update applies a partial update; nil fields are left untouched.
func (r *DealRepo) Update(ctx context.Context, id uuid.UUID, upd repository.DealUpdate) (*model.Deal, error) {
	set := []string{"updated_at=now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Sector != nil {
		add("sector", *upd.Sector)
	}
	if upd.DealType != nil {
		add("deal_type", *upd.DealType)
	}
	if upd.Stage != nil {
		add("stage", string(*upd.Stage))
	}

	q := `UPDATE deals SET ` + strings.Join(set, ", ") + ` WHERE id=$1 RETURNING ` + dealColumns
	d, err := scanDeal(r.db.Pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	notes, err := r.notesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	d.Notes = append(d.Notes, notes[id]...)
	return d, nil
}

// SetValue sets the sensitive deal value.
func (r *DealRepo) SetValue(ctx context.Context, id uuid.UUID, value *float64) (*model.Deal, error) {
	const q = `
UPDATE deals SET deal_value=$2, updated_at=now() WHERE id=$1
RETURNING ` + dealColumns
	d, err := scanDeal(r.db.Pool.QueryRow(ctx, q, id, value))
	if err != nil {
		return nil, err
	}
	notes, err := r.notesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	d.Notes = append(d.Notes, notes[id]...)
	return d, nil
}

// Delete removes a deal; notes cascade at the schema level.
func (r *DealRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM deals WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// List pages deals matching the filter, newest first. Query does a
// case-insensitive substring match on title and sector.
func (r *DealRepo) List(ctx context.Context, f repository.DealFilter, page repository.PageRequest) (*model.Page[model.Deal], error) {
	where := []string{"true"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != uuid.Nil {
		add("owner_id=$%d", f.OwnerID)
	}
	if f.Stage != "" {
		add("stage=$%d", string(f.Stage))
	}
	if f.Sector != "" {
		add("sector=$%d", f.Sector)
	}
	if f.Query != "" {
		add("(title ILIKE $%[1]d OR sector ILIKE $%[1]d)", "%"+f.Query+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM deals WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, page.Size, page.Offset())
	q := fmt.Sprintf(`SELECT `+dealColumns+` FROM deals WHERE `+cond+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	deals, err := collectDeals(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachNotes(ctx, deals); err != nil {
		return nil, err
	}
	return &model.Page[model.Deal]{Items: deals, Total: total, PageNumber: page.Number, PageSize: page.Size}, nil
}

// AddNote appends a note to a deal.
func (r *DealRepo) AddNote(ctx context.Context, dealID, authorID uuid.UUID, text string) (*model.DealNote, error) {
	const q = `
INSERT INTO deal_notes (id, deal_id, author_id, note)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	n := &model.DealNote{ID: id, DealID: dealID, AuthorID: authorID, Text: text}
	if err := r.db.Pool.QueryRow(ctx, q, n.ID, dealID, authorID, text).Scan(&n.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	const touch = `UPDATE deals SET updated_at=now() WHERE id=$1`
	if _, err := r.db.Pool.Exec(ctx, touch, dealID); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNote loads a single note of a deal.
func (r *DealRepo) GetNote(ctx context.Context, dealID, noteID uuid.UUID) (*model.DealNote, error) {
	const q = `
SELECT id, deal_id, author_id, note, created_at
FROM deal_notes WHERE deal_id=$1 AND id=$2`
	var n model.DealNote
	err := r.db.Pool.QueryRow(ctx, q, dealID, noteID).
		Scan(&n.ID, &n.DealID, &n.AuthorID, &n.Text, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// RemoveNote deletes a note from a deal.
func (r *DealRepo) RemoveNote(ctx context.Context, dealID, noteID uuid.UUID) error {
	const q = `DELETE FROM deal_notes WHERE deal_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, dealID, noteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	const touch = `UPDATE deals SET updated_at=now() WHERE id=$1`
	_, err = r.db.Pool.Exec(ctx, touch, dealID)
	return err
}

func collectDeals(rows pgx.Rows) ([]model.Deal, error) {
	defer rows.Close()
	out := []model.Deal{}
	for rows.Next() {
		var d model.Deal
		var stage string
		if err := rows.Scan(&d.ID, &d.Title, &d.Sector, &d.DealType, &stage, &d.DealValue, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Stage = model.DealStage(stage)
		d.Notes = []model.DealNote{}
		out = append(out, d)
	}
	return out, rows.Err()
}

// notesFor loads notes for a set of deals in one query, keyed by deal id.
func (r *DealRepo) notesFor(ctx context.Context, dealIDs []uuid.UUID) (map[uuid.UUID][]model.DealNote, error) {
	if len(dealIDs) == 0 {
		return map[uuid.UUID][]model.DealNote{}, nil
	}
	const q = `
SELECT id, deal_id, author_id, note, created_at
FROM deal_notes
WHERE deal_id = ANY($1)
ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, dealIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uuid.UUID][]model.DealNote{}
	for rows.Next() {
		var n model.DealNote
		if err := rows.Scan(&n.ID, &n.DealID, &n.AuthorID, &n.Text, &n.CreatedAt); err != nil {
			return nil, err
		}
		out[n.DealID] = append(out[n.DealID], n)
	}
	return out, rows.Err()
}

func (r *DealRepo) attachNotes(ctx context.Context, deals []model.Deal) error {
	ids := make([]uuid.UUID, 0, len(deals))
	for _, d := range deals {
		ids = append(ids, d.ID)
	}
	notes, err := r.notesFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range deals {
		deals[i].Notes = append(deals[i].Notes, notes[deals[i].ID]...)
	}
	return nil
}
