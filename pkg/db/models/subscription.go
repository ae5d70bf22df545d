package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/pkg/enums"
)

// Subscription holds the billing state for a cooperative. At most one row per
// cooperative is live at a time; cancelled rows are kept for history.
type Subscription struct {
	ID            uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CooperativeID uuid.UUID                `gorm:"column:cooperative_id;type:uuid;not null;index"`
	PlanID        uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	Status        enums.SubscriptionStatus `gorm:"column:status;not null;default:'pending'"`
	BillingCycle  enums.BillingCycle       `gorm:"column:billing_cycle;not null;default:'monthly'"`

	CurrentPeriodStart time.Time  `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd   time.Time  `gorm:"column:current_period_end;not null"`
	CancelAtPeriodEnd  bool       `gorm:"column:cancel_at_period_end;not null;default:false"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CancelReason       *string    `gorm:"column:cancel_reason"`

	ProviderCustomerCode string     `gorm:"column:provider_customer_code"`
	CreatedBy            *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCurrent reports whether the row represents the cooperative's live record.
func (s Subscription) IsCurrent() bool {
	return s.Status != enums.SubscriptionStatusCancelled
}

// PeriodLapsed reports whether the current billing period is behind now.
func (s Subscription) PeriodLapsed(now time.Time) bool {
	return now.After(s.CurrentPeriodEnd)
}
