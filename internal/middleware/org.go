// internal/middleware/org.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/google/uuid"
)

// OrgIDHeader is the explicit organization selector. Precedence against the
// other sources is fixed: header, then query parameter, then body field.
const OrgIDHeader = "X-Org-Id"

const maxBodyPeek = 1 << 20

// AttachOrg decides which single organization the request operates under.
// With no org requested it defaults to the caller's earliest active
// membership, or to none at all when the caller has zero memberships
// (org-optional endpoints tolerate that). A requested org the caller holds
// no active membership in is rejected outright, whether or not the org
// exists.
func AttachOrg() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "No authenticated identity")
				return
			}

			caller := &auth.Caller{
				UserID: identity.User.ID,
				Email:  identity.User.Email,
			}

			requested := requestedOrgID(r)
			if requested == "" {
				if len(identity.Memberships) > 0 {
					m := identity.Memberships[0]
					caller.OrgID = &m.OrganizationID
					caller.Role = &m.Role
				}
				next.ServeHTTP(w, r.WithContext(auth.ContextWithCaller(r.Context(), caller)))
				return
			}

			orgID, err := uuid.Parse(requested)
			if err != nil {
				respondWithError(w, http.StatusForbidden, "access denied to organization")
				return
			}

			for i := range identity.Memberships {
				m := &identity.Memberships[i]
				if m.OrganizationID == orgID {
					caller.OrgID = &m.OrganizationID
					caller.Role = &m.Role
					next.ServeHTTP(w, r.WithContext(auth.ContextWithCaller(r.Context(), caller)))
					return
				}
			}

			respondWithError(w, http.StatusForbidden, "access denied to organization")
		})
	}
}

// requestedOrgID applies the selector precedence: X-Org-Id header, orgId
// query parameter, orgId JSON body field. The body is peeked and restored so
// handlers can still decode it.
func requestedOrgID(r *http.Request) string {
	if v := r.Header.Get(OrgIDHeader); v != "" {
		return v
	}
	if v := r.URL.Query().Get("orgId"); v != "" {
		return v
	}

	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	if err != nil {
		return ""
	}
	// Stitch the unread remainder back on so bodies larger than the peek
	// window reach the handler intact.
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	var peek struct {
		OrgID string `json:"orgId"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return ""
	}
	return peek.OrgID
}
