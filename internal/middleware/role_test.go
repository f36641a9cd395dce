package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/middleware"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callWithRole(t *testing.T, gate func(http.Handler) http.Handler, role *model.Role) *httptest.ResponseRecorder {
	t.Helper()

	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	orgID := uuid.New()
	caller := &auth.Caller{UserID: uuid.New(), Email: "alice@example.com", OrgID: &orgID, Role: role}

	req := httptest.NewRequest(http.MethodGet, "/api/orgs/invites", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(auth.ContextWithCaller(req.Context(), caller)))
	return rec
}

func TestRequireRole(t *testing.T) {
	owner := model.RoleOwner
	admin := model.RoleAdmin
	lawyer := model.RoleLawyer
	assistant := model.RoleAssistant

	t.Run("allowed roles pass", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, callWithRole(t, middleware.RequireAdmin, &owner).Code)
		assert.Equal(t, http.StatusOK, callWithRole(t, middleware.RequireAdmin, &admin).Code)
	})

	t.Run("membership in the set is exact, not seniority based", func(t *testing.T) {
		// owner is not implicitly included in a set that omits it
		gate := middleware.RequireRole(model.RoleLawyer, model.RoleAssistant)
		assert.Equal(t, http.StatusForbidden, callWithRole(t, gate, &owner).Code)
		assert.Equal(t, http.StatusOK, callWithRole(t, gate, &lawyer).Code)
		assert.Equal(t, http.StatusOK, callWithRole(t, gate, &assistant).Code)
	})

	t.Run("role outside the set is rejected with required and current", func(t *testing.T) {
		rec := callWithRole(t, middleware.RequireAdmin, &assistant)
		require.Equal(t, http.StatusForbidden, rec.Code)

		var payload struct {
			Error    string       `json:"error"`
			Required []model.Role `json:"required"`
			Current  *model.Role  `json:"current"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "insufficient role", payload.Error)
		assert.ElementsMatch(t, []model.Role{model.RoleOwner, model.RoleAdmin}, payload.Required)
		require.NotNil(t, payload.Current)
		assert.Equal(t, model.RoleAssistant, *payload.Current)
	})

	t.Run("caller without a role is rejected", func(t *testing.T) {
		rec := callWithRole(t, middleware.RequireMember, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing caller context is rejected", func(t *testing.T) {
		handler := middleware.RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
