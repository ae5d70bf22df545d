package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the append-only log of inbound provider events. EventID is
// unique; a redelivered-but-unprocessed event updates the stored payload.
type WebhookEvent struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     string          `gorm:"column:event_id;not null;uniqueIndex"`
	EventType   string          `gorm:"column:event_type;not null"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb"`
	Processed   bool            `gorm:"column:processed;not null;default:false"`
	ProcessedAt *time.Time      `gorm:"column:processed_at"`
	Error       *string         `gorm:"column:error"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
