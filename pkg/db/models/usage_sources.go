package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/pkg/enums"
)

// The rows below are owned by other modules of the platform. Billing maps just
// enough of each to run the count queries behind usage accounting.

// Member is a person enrolled in a cooperative.
type Member struct {
	ID            uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID          `gorm:"column:cooperative_id;type:uuid;not null;index"`
	Status        enums.MemberStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// ContributionPlan is a recurring savings scheme within a cooperative.
type ContributionPlan struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID `gorm:"column:cooperative_id;type:uuid;not null;index"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// GroupBuy is a collective purchase run by a cooperative.
type GroupBuy struct {
	ID            uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID            `gorm:"column:cooperative_id;type:uuid;not null;index"`
	Status        enums.GroupBuyStatus `gorm:"column:status;not null;default:'draft'"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// Loan is a member loan request. RequestedAt drives the per-month usage count.
type Loan struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID        `gorm:"column:cooperative_id;type:uuid;not null;index"`
	Status        enums.LoanStatus `gorm:"column:status;not null;default:'pending'"`
	RequestedAt   time.Time        `gorm:"column:requested_at;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}
