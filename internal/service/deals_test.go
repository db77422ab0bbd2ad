package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/errs"
	"github.com/ivmalkov/deal-pipeline/internal/model"
	"github.com/ivmalkov/deal-pipeline/internal/policy"
	"github.com/ivmalkov/deal-pipeline/internal/repository"
)

type fakeDeals struct {
	byID map[uuid.UUID]*model.Deal
}

var _ repository.DealRepository = (*fakeDeals)(nil)

func newFakeDeals() *fakeDeals {
	return &fakeDeals{byID: map[uuid.UUID]*model.Deal{}}
}

func (f *fakeDeals) Create(_ context.Context, d *model.Deal) error {
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cpy := *d
	f.byID[d.ID] = &cpy
	return nil
}

func (f *fakeDeals) GetByID(_ context.Context, id uuid.UUID) (*model.Deal, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *d
	c.Notes = append([]model.DealNote(nil), d.Notes...)
	return &c, nil
}

func (f *fakeDeals) Update(_ context.Context, id uuid.UUID, upd repository.DealUpdate) (*model.Deal, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Sector != nil {
		d.Sector = *upd.Sector
	}
	if upd.DealType != nil {
		d.DealType = *upd.DealType
	}
	if upd.Stage != nil {
		d.Stage = *upd.Stage
	}
	d.UpdatedAt = time.Now()
	c := *d
	return &c, nil
}

func (f *fakeDeals) SetValue(_ context.Context, id uuid.UUID, value *float64) (*model.Deal, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	d.DealValue = value
	c := *d
	return &c, nil
}

func (f *fakeDeals) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeDeals) List(_ context.Context, flt repository.DealFilter, page repository.PageRequest) (*model.Page[model.Deal], error) {
	items := []model.Deal{}
	for _, d := range f.byID {
		if flt.OwnerID != uuid.Nil && d.OwnerID != flt.OwnerID {
			continue
		}
		if flt.Stage != "" && d.Stage != flt.Stage {
			continue
		}
		if flt.Sector != "" && d.Sector != flt.Sector {
			continue
		}
		items = append(items, *d)
	}
	return &model.Page[model.Deal]{
		Items:      items,
		Total:      int64(len(items)),
		PageNumber: page.Number,
		PageSize:   page.Size,
	}, nil
}

func (f *fakeDeals) AddNote(_ context.Context, dealID, authorID uuid.UUID, text string) (*model.DealNote, error) {
	d, ok := f.byID[dealID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	n := model.DealNote{
		ID:        uuid.Must(uuid.NewV4()),
		DealID:    dealID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	d.Notes = append(d.Notes, n)
	return &n, nil
}

func (f *fakeDeals) GetNote(_ context.Context, dealID, noteID uuid.UUID) (*model.DealNote, error) {
	d, ok := f.byID[dealID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	for _, n := range d.Notes {
		if n.ID == noteID {
			c := n
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeDeals) RemoveNote(_ context.Context, dealID, noteID uuid.UUID) error {
	d, ok := f.byID[dealID]
	if !ok {
		return errs.ErrNotFound
	}
	for i, n := range d.Notes {
		if n.ID == noteID {
			d.Notes = append(d.Notes[:i], d.Notes[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

func principal(role model.Role) policy.Principal {
	return policy.Principal{ID: uuid.Must(uuid.NewV4()), Username: "u-" + string(role), Role: role}
}

func floatPtr(v float64) *float64 { return &v }

func TestDeals_Create_DiscardsValueForNonAdmin(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	owner := principal(model.RoleUser)

	d, err := s.Create(context.Background(), owner, DealCreateInput{
		Title:     "Meridian acquisition",
		Sector:    "ENERGY",
		DealType:  "M&A",
		DealValue: floatPtr(500000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.DealValue != nil {
		t.Fatalf("non-admin supplied value survived: %v", *d.DealValue)
	}
	if d.Stage != model.StageLead {
		t.Fatalf("stage=%q, want %q", d.Stage, model.StageLead)
	}
	if d.OwnerID != owner.ID {
		t.Fatalf("owner not set to caller")
	}
	// discarded in storage too, not just in the response
	if stored := repo.byID[d.ID]; stored.DealValue != nil {
		t.Fatalf("value persisted for non-admin creator")
	}
}

func TestDeals_Create_KeepsValueForAdmin(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	admin := principal(model.RoleAdmin)

	d, err := s.Create(context.Background(), admin, DealCreateInput{
		Title:     "Crestline refi",
		DealValue: floatPtr(1250000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.DealValue == nil || *d.DealValue != 1250000 {
		t.Fatalf("admin value not kept: %v", d.DealValue)
	}
}

func TestDeals_Get_OwnershipAndRedaction(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	owner := principal(model.RoleUser)
	stranger := principal(model.RoleUser)
	admin := principal(model.RoleAdmin)

	created, err := s.Create(context.Background(), owner, DealCreateInput{Title: "Alpha"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.SetValue(context.Background(), created.ID, floatPtr(900000)); err != nil {
		t.Fatalf("seed value: %v", err)
	}

	got, err := s.Get(context.Background(), owner, created.ID)
	if err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if got.DealValue != nil {
		t.Fatalf("value not redacted for non-admin owner")
	}

	if _, err := s.Get(context.Background(), stranger, created.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("stranger Get: want ErrAccessDenied, got %v", err)
	}

	adminView, err := s.Get(context.Background(), admin, created.ID)
	if err != nil {
		t.Fatalf("admin Get: %v", err)
	}
	if adminView.DealValue == nil || *adminView.DealValue != 900000 {
		t.Fatalf("admin view missing value: %v", adminView.DealValue)
	}
}

func TestDeals_Update_Access(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	owner := principal(model.RoleUser)
	stranger := principal(model.RoleUser)

	created, err := s.Create(context.Background(), owner, DealCreateInput{Title: "Beta"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stage := model.StageTermSheet
	if _, err := s.Update(context.Background(), stranger, created.ID, DealUpdateInput{Stage: &stage}); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("stranger Update: want ErrAccessDenied, got %v", err)
	}

	out, err := s.Update(context.Background(), owner, created.ID, DealUpdateInput{Stage: &stage})
	if err != nil {
		t.Fatalf("owner Update: %v", err)
	}
	if out.Stage != model.StageTermSheet {
		t.Fatalf("stage=%q", out.Stage)
	}
}

func TestDeals_SetValueAndDelete_AdminOnly(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	owner := principal(model.RoleUser)
	admin := principal(model.RoleAdmin)

	created, err := s.Create(context.Background(), owner, DealCreateInput{Title: "Gamma"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.SetValue(context.Background(), owner, created.ID, floatPtr(42)); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("owner SetValue: want ErrAccessDenied, got %v", err)
	}
	if out, err := s.SetValue(context.Background(), admin, created.ID, floatPtr(42)); err != nil || out.DealValue == nil {
		t.Fatalf("admin SetValue: %v %v", out, err)
	}

	if err := s.Delete(context.Background(), owner, created.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("owner Delete: want ErrAccessDenied, got %v", err)
	}
	if err := s.Delete(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("admin Delete: %v", err)
	}
}

func TestDeals_Search_ScopedToOwnerForNonAdmin(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	owner := principal(model.RoleUser)
	other := principal(model.RoleUser)
	admin := principal(model.RoleAdmin)

	if _, err := s.Create(context.Background(), owner, DealCreateInput{Title: "Mine"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(context.Background(), other, DealCreateInput{Title: "Theirs"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	page := repository.PageRequest{Number: 0, Size: 20}

	mine, err := s.Search(context.Background(), owner, repository.DealFilter{}, page)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if mine.Total != 1 || mine.Items[0].OwnerID != owner.ID {
		t.Fatalf("non-admin search leaked other owners: total=%d", mine.Total)
	}

	all, err := s.Search(context.Background(), admin, repository.DealFilter{}, page)
	if err != nil {
		t.Fatalf("admin Search: %v", err)
	}
	if all.Total != 2 {
		t.Fatalf("admin search total=%d, want 2", all.Total)
	}

	if _, err := s.ListAll(context.Background(), owner, repository.DealFilter{}, page); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("non-admin ListAll: want ErrAccessDenied, got %v", err)
	}
}

func TestDeals_Notes_DeleteAuthz(t *testing.T) {
	t.Parallel()
	repo := newFakeDeals()
	s := NewDealService(repo)
	owner := principal(model.RoleUser)
	author := principal(model.RoleUser)
	admin := principal(model.RoleAdmin)

	created, err := s.Create(context.Background(), owner, DealCreateInput{Title: "Delta"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// any authenticated user may append
	withNote, err := s.AddNote(context.Background(), author, created.ID, "called the sponsor")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if len(withNote.Notes) != 1 || withNote.Notes[0].AuthorID != author.ID {
		t.Fatalf("note not attributed to author: %+v", withNote.Notes)
	}
	noteID := withNote.Notes[0].ID

	// the deal owner is not the author and not an admin
	if _, err := s.DeleteNote(context.Background(), owner, created.ID, noteID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("owner DeleteNote: want ErrAccessDenied, got %v", err)
	}

	out, err := s.DeleteNote(context.Background(), author, created.ID, noteID)
	if err != nil {
		t.Fatalf("author DeleteNote: %v", err)
	}
	if len(out.Notes) != 0 {
		t.Fatalf("note survived deletion")
	}

	second, err := s.AddNote(context.Background(), author, created.ID, "second pass")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, err := s.DeleteNote(context.Background(), admin, created.ID, second.Notes[0].ID); err != nil {
		t.Fatalf("admin DeleteNote: %v", err)
	}

	if _, err := s.AddNote(context.Background(), author, created.ID, ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("empty note: want ErrInvalidInput, got %v", err)
	}
}

func TestDeals_Create_EmptyTitleRejected(t *testing.T) {
	t.Parallel()
	s := NewDealService(newFakeDeals())

	if _, err := s.Create(context.Background(), principal(model.RoleUser), DealCreateInput{}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("empty title: want ErrInvalidInput, got %v", err)
	}
}
