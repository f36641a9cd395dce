// internal/domain/errors.go
package domain

import "errors"

var (
	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooWeak    = errors.New("password too weak")
	ErrUnauthorized       = errors.New("unauthorized")

	// Organization-related errors
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrNoOrgAccess          = errors.New("access denied to organization")
	ErrSlugAlreadyExists    = errors.New("organization slug already exists")

	// Membership-related errors
	ErrMembershipNotFound = errors.New("membership not found")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrMembershipRevoked  = errors.New("membership is revoked")

	// Invite-related errors
	ErrInviteNotFound = errors.New("invite not found")
	ErrInviteExpired  = errors.New("invite expired")
	ErrInviteConsumed = errors.New("invite already accepted")
	ErrInviteEmail    = errors.New("invite was issued for a different email")
)
