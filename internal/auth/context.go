// internal/auth/context.go
package auth

import (
	"context"

	"github.com/casedesk/casedesk/internal/model"
	"github.com/google/uuid"
)

type identityContextKey struct{}
type callerContextKey struct{}

// Identity is the resolved caller before any organization is attached: the
// user record plus every active membership, ordered by membership creation.
type Identity struct {
	User        *model.User
	Memberships []model.Membership
}

// Caller is the request-scoped authorization context handed to business
// handlers. OrgID and Role are nil when the caller has no active membership
// and no organization was requested; handlers that require an org must reject
// such requests themselves.
type Caller struct {
	UserID uuid.UUID
	Email  string
	OrgID  *uuid.UUID
	Role   *model.Role
}

// ContextWithIdentity attaches the resolved identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the resolved identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithCaller attaches the attached-org caller to the context.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from the context.
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	v, ok := ctx.Value(callerContextKey{}).(*Caller)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
