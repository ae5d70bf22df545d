package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/pkg/enums"
)

// CooperativeMembership links a user to a cooperative with a role. The billing
// engine only reads it to answer "is this user an active admin".
type CooperativeMembership struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID              `gorm:"column:cooperative_id;type:uuid;not null;index"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Role          enums.MemberRole       `gorm:"column:role;not null"`
	Status        enums.MembershipStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
