// internal/handler/audit_log.go
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/repository"
	"github.com/casedesk/casedesk/internal/service"
	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type AuditLogHandler struct {
	auditService *service.AuditService
}

func NewAuditLogHandler(auditService *service.AuditService) *AuditLogHandler {
	return &AuditLogHandler{auditService: auditService}
}

// QueryHandler returns the attached org's audit trail, newest first. Routing
// gates it to owner/admin; the query itself is always org-scoped so no filter
// combination can cross tenants.
func (h *AuditLogHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok || caller.OrgID == nil {
		respondWithError(w, http.StatusForbidden, "no organization in scope")
		return
	}

	q := r.URL.Query()
	params := repository.AuditQueryParams{
		OrgID:        *caller.OrgID,
		Action:       q.Get("action"),
		ResourceType: q.Get("resourceType"),
		ResourceID:   q.Get("resourceId"),
	}

	if v := q.Get("userId"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid userId filter")
			return
		}
		params.UserID = &userID
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid start time, expected RFC3339")
			return
		}
		params.StartTime = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid end time, expected RFC3339")
			return
		}
		params.EndTime = t
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			params.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			params.Offset = n
		}
	}

	entries, total, err := h.auditService.Query(r.Context(), params)
	if err != nil {
		slog.ErrorContext(r.Context(), "Audit log query failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"entries": entries,
		"total":   total,
	})
}
