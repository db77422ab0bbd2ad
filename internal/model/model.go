// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the closed set of authorization roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a raw string onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// IsAdmin reports whether the role carries administrative capability.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// User represents an account. Password material is stored only as a one-way hash.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	Email     string    // unique
	PwdHash   string    // argon2id encoded hash
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken is a persisted ledger record for one opaque refresh-token value.
// Revoked flips false->true exactly once and is never reset.
type RefreshToken struct {
	ID        uuid.UUID
	Token     string // opaque high-entropy value presented by clients
	UserID    uuid.UUID
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// TokenPair collects the credentials returned by login/refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string    // always "Bearer"
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// DealStage is the pipeline stage of a deal. The set is enumerated but there
// is no transition graph: any stage is settable by an owner or admin.
type DealStage string

const (
	StageProspecting  DealStage = "PROSPECTING"
	StageLead         DealStage = "LEAD"
	StageQualified    DealStage = "QUALIFIED"
	StageTermSheet    DealStage = "TERM_SHEET"
	StageDueDiligence DealStage = "DUE_DILIGENCE"
	StageWon          DealStage = "WON"
	StageClosed       DealStage = "CLOSED"
	StageLost         DealStage = "LOST"
)

// ParseStage validates a raw stage string against the known set.
func ParseStage(s string) (DealStage, bool) {
	switch DealStage(s) {
	case StageProspecting, StageLead, StageQualified, StageTermSheet,
		StageDueDiligence, StageWon, StageClosed, StageLost:
		return DealStage(s), true
	}
	return "", false
}

// DealNote is a collaborator annotation attached to a deal.
type DealNote struct {
	ID        uuid.UUID `json:"id"`
	DealID    uuid.UUID `json:"-"`
	AuthorID  uuid.UUID `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Deal is a pipeline record. DealValue is visible and writable only to admins;
// a nil pointer renders as an omitted JSON field, never as null.
type Deal struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Sector    string     `json:"sector"`
	DealType  string     `json:"dealType"`
	Stage     DealStage  `json:"stage"`
	DealValue *float64   `json:"dealValue,omitempty"`
	Notes     []DealNote `json:"notes"`
	OwnerID   uuid.UUID  `json:"ownerId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Page is one page of a listing with the total row count for that filter.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	PageNumber int   `json:"page"`
	PageSize   int   `json:"size"`
}
