// internal/service/audit.go
package service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/repository"
	"github.com/google/uuid"
)

// AuditService appends entries to the append-only audit log. Recording is
// fire-and-forget: a failed write is logged locally and never surfaces to the
// request that triggered it.
type AuditService struct {
	repo repository.AuditLogRepositoryIface
}

func NewAuditService(repo repository.AuditLogRepositoryIface) *AuditService {
	return &AuditService{repo: repo}
}

// AuditEntry describes one auditable action. OrgID and UserID are optional;
// system actions carry neither.
type AuditEntry struct {
	OrgID        *uuid.UUID
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Meta         model.JSONMap
}

// Record appends the entry, enriched with client IP and user agent when the
// originating request is supplied.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry, req *http.Request) {
	row := &model.AuditLog{
		OrganizationID: entry.OrgID,
		UserID:         entry.UserID,
		Action:         entry.Action,
		ResourceType:   entry.ResourceType,
		ResourceID:     entry.ResourceID,
		Meta:           entry.Meta,
	}

	if req != nil {
		row.ClientIP = req.RemoteAddr
		row.UserAgent = req.UserAgent()
	}

	if err := s.repo.Create(ctx, row); err != nil {
		slog.ErrorContext(ctx, "Failed to record audit entry",
			"error", err,
			"action", entry.Action,
			"resource_type", entry.ResourceType,
		)
	}
}

// Query returns audit entries for one organization, newest first.
func (s *AuditService) Query(ctx context.Context, params repository.AuditQueryParams) ([]model.AuditLog, int64, error) {
	return s.repo.Query(ctx, params)
}
