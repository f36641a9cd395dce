// internal/middleware/role.go
package middleware

import (
	"net/http"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/model"
)

type roleErrorResponse struct {
	Error    string       `json:"error"`
	Required []model.Role `json:"required"`
	Current  *model.Role  `json:"current,omitempty"`
}

// RequireRole gates a route on an explicit allowed-role set. There is no
// seniority ordering between roles: an endpoint that admits owners must name
// owner in its set. The rejection reports required and actual role to the
// caller's own session only.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CallerFromContext(r.Context())
			if !ok || caller.Role == nil {
				respondWithJSON(w, http.StatusForbidden, roleErrorResponse{
					Error:    "insufficient role",
					Required: roles,
				})
				return
			}

			if _, ok := allowed[*caller.Role]; !ok {
				respondWithJSON(w, http.StatusForbidden, roleErrorResponse{
					Error:    "insufficient role",
					Required: roles,
					Current:  caller.Role,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Named allowed sets for the common gates. These are enumerations, not a
// hierarchy; each endpoint picks one deliberately.
var (
	RequireOwner  = RequireRole(model.RoleOwner)
	RequireAdmin  = RequireRole(model.RoleOwner, model.RoleAdmin)
	RequireLawyer = RequireRole(model.RoleOwner, model.RoleAdmin, model.RoleLawyer)
	RequireMember = RequireRole(model.RoleOwner, model.RoleAdmin, model.RoleLawyer, model.RoleAssistant)
)
