// internal/model/invite.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a pending, single-use offer to join an organization with a preset
// role. Only the sha256 hash of the invite token is stored; the plaintext is
// delivered out of band and never persisted.
type Invite struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID  uuid.UUID  `gorm:"type:uuid;not null" json:"organization_id"`
	Email           string     `gorm:"type:citext;not null;index" json:"email"`
	Role            Role       `gorm:"type:text;not null" json:"role"`
	TokenHash       string     `gorm:"type:text;not null;uniqueIndex" json:"-"`
	InvitedByUserID uuid.UUID  `gorm:"type:uuid;not null" json:"invited_by_user_id"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Pending reports whether the invite can still be accepted at time now.
func (i *Invite) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
