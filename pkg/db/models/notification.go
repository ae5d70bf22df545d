package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/pkg/enums"
)

// Notification is a billing notice delivered to one cooperative admin.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID              `gorm:"column:cooperative_id;type:uuid;not null;index"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Kind          enums.NotificationKind `gorm:"column:kind;not null"`
	Title         string                 `gorm:"column:title;not null"`
	Body          string                 `gorm:"column:body;not null"`
	Metadata      json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
