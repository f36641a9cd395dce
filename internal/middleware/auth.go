// internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/domain"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/google/uuid"
)

// UserFinder loads a user record during identity resolution.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// MembershipSource loads a user's active memberships, earliest first.
type MembershipSource interface {
	FindActiveMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error)
}

// RequireAuth resolves the caller's identity from the bearer token: it
// validates the token, re-reads the user (a deleted account fails even with a
// still-valid token) and loads the active memberships. It does not pick an
// organization; AttachOrg does that.
func RequireAuth(tokenManager *auth.TokenManager, users UserFinder, memberships MembershipSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "No authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			claims, err := tokenManager.Validate(parts[1])
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					respondWithError(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			active, err := memberships.FindActiveMembershipsByUser(r.Context(), user.ID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			identity := &auth.Identity{
				User:        user,
				Memberships: active,
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
