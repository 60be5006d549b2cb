package model

import (
	"time"

	"github.com/google/uuid"
)

// Item is the platform's content node as seen through the read-only
// collaborator boundary. Path is the ltree materialized path used for
// subtree queries.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	CreatorID uuid.UUID `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member is a platform account referenced by actions and memberships.
type Member struct {
	ID    uuid.UUID      `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Type  string         `json:"type"`
	Extra map[string]any `json:"extra,omitempty"`
}

// ItemMembership grants a member a permission level over an item subtree.
type ItemMembership struct {
	ID         uuid.UUID `json:"id"`
	MemberID   uuid.UUID `json:"memberId"`
	ItemPath   string    `json:"itemPath"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AllowsAdmin reports whether the membership grants administrator rights.
func (m *ItemMembership) AllowsAdmin() bool {
	return m != nil && m.Permission == PermissionAdmin
}
