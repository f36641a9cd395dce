// internal/repository/audit_log.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/casedesk/casedesk/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepositoryIface interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	Query(ctx context.Context, params AuditQueryParams) ([]model.AuditLog, int64, error)
}

// AuditLogRepository handles database operations for audit logs. The table is
// append-only; there are no update or delete operations.
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to create audit log: %w", result.Error)
	}

	return nil
}

// AuditQueryParams holds parameters for querying audit logs. OrgID is
// mandatory: audit reads are always tenant-scoped.
type AuditQueryParams struct {
	OrgID        uuid.UUID
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit logs based on the provided query parameters
func (r *AuditLogRepository) Query(ctx context.Context, params AuditQueryParams) ([]model.AuditLog, int64, error) {
	var entries []model.AuditLog
	var count int64

	query := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Where("organization_id = ?", params.OrgID)

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Action != "" {
		query = query.Where("action = ?", params.Action)
	}
	if params.ResourceType != "" {
		query = query.Where("resource_type = ?", params.ResourceType)
	}
	if params.ResourceID != "" {
		query = query.Where("resource_id = ?", params.ResourceID)
	}
	if !params.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", params.StartTime)
	}
	if !params.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", params.EndTime)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	} else {
		query = query.Limit(100) // Default limit
	}

	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	result := query.Order("timestamp DESC").Find(&entries)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", result.Error)
	}

	return entries, count, nil
}
