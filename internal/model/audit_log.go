// internal/model/audit_log.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of who did what, when, from where.
// Entries are never updated or deleted.
type AuditLog struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty" gorm:"type:uuid;index"`
	UserID         *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	Action         string     `json:"action" gorm:"type:text;not null"`
	ResourceType   string     `json:"resource_type" gorm:"type:text;not null"`
	ResourceID     string     `json:"resource_id,omitempty" gorm:"type:text"`
	Meta           JSONMap    `json:"meta,omitempty" gorm:"type:jsonb"`
	ClientIP       string     `json:"client_ip,omitempty" gorm:"type:text"`
	UserAgent      string     `json:"user_agent,omitempty" gorm:"type:text"`
	Timestamp      time.Time  `json:"timestamp" gorm:"default:CURRENT_TIMESTAMP;index"`
	CreatedAt      time.Time  `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit action names recorded by the session core; business handlers append
// their own.
const (
	ActionRegister   = "register"
	ActionLogin      = "login"
	ActionInviteSent = "invite_sent"
)

// JSONMap represents a generic map stored as JSONB in the database
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion failed: failed to decode JSONB")
	}

	return json.Unmarshal(bytes, m)
}
