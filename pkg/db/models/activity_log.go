package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLog is a best-effort audit record of billing actions.
type ActivityLog struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID       `gorm:"column:cooperative_id;type:uuid;not null;index"`
	UserID        *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Action        string          `gorm:"column:action;not null"`
	Description   string          `gorm:"column:description;not null"`
	Metadata      json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
