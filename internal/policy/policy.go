// Package policy holds role- and ownership-based authorization decisions and
// role-scoped projection of deals. All functions are pure: the requester is an
// explicit argument, never ambient state.
package policy

import (
	"github.com/gofrs/uuid/v5"

	"github.com/ivmalkov/deal-pipeline/internal/model"
)

// Principal is the authenticated caller for one request. It is resolved by the
// transport layer from the access token and threaded through context.
type Principal struct {
	ID       uuid.UUID
	Username string
	Role     model.Role
}

// ProjectDeal returns the role-scoped view of a deal. Admins see every field;
// everyone else gets a copy with DealValue cleared, which the JSON layer omits
// entirely rather than rendering as null. Projecting an already projected deal
// changes nothing.
func ProjectDeal(d model.Deal, role model.Role) model.Deal {
	out := d
	out.Notes = append([]model.DealNote(nil), d.Notes...)
	if !role.IsAdmin() {
		out.DealValue = nil
	}
	return out
}

// ProjectDeals projects a whole listing for one role.
func ProjectDeals(deals []model.Deal, role model.Role) []model.Deal {
	out := make([]model.Deal, 0, len(deals))
	for _, d := range deals {
		out = append(out, ProjectDeal(d, role))
	}
	return out
}

// CanReadDeal reports whether the principal may read a single deal:
// admins always, owners for their own deals.
func CanReadDeal(d model.Deal, p Principal) bool {
	return p.Role.IsAdmin() || d.OwnerID == p.ID
}

// CanUpdateDeal reports whether the principal may mutate plain deal fields.
// Same rule as reading a single deal.
func CanUpdateDeal(d model.Deal, p Principal) bool {
	return p.Role.IsAdmin() || d.OwnerID == p.ID
}

// CanWriteDealValue reports whether the principal may supply or change the
// sensitive deal value. Admin only. On creation a non-admin-supplied value is
// silently discarded, not rejected.
func CanWriteDealValue(p Principal) bool {
	return p.Role.IsAdmin()
}

// CanDeleteNote reports whether the principal may remove a note: admins
// always, authors their own notes.
func CanDeleteNote(n model.DealNote, p Principal) bool {
	return p.Role.IsAdmin() || n.AuthorID == p.ID
}
