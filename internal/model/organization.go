// internal/model/organization.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleLawyer    Role = "lawyer"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether r is one of the known membership roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleLawyer, RoleAssistant:
		return true
	}
	return false
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipRevoked MembershipStatus = "revoked"
)

type Organization struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Slug        string    `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	CreatedBy   *User        `gorm:"foreignKey:CreatedByID" json:"-"`
	Memberships []Membership `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Membership binds a user to an organization with a role. At most one
// membership exists per (user, organization) pair; the unique index is what
// dedupes concurrent invite acceptances.
type Membership struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org,priority:2" json:"organization_id"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org,priority:1" json:"user_id"`
	Role           Role             `gorm:"type:text;not null" json:"role"`
	Status         MembershipStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         *User         `gorm:"foreignKey:UserID" json:"-"`
}
