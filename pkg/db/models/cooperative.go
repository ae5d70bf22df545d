package models

import (
	"time"

	"github.com/google/uuid"
)

// Cooperative is the tenant this engine bills. Most of its fields live in the
// wider platform; billing only needs identity and contact data.
type Cooperative struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	ContactEmail string    `gorm:"column:contact_email;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
