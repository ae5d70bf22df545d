package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/coopvest/coopvest-backend/pkg/enums"
)

// SubscriptionPayment records one payment attempt against a subscription. The
// reference is the idempotency key correlating initiation, verification, and
// webhook delivery; it never changes once the row exists.
type SubscriptionPayment struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID            `gorm:"column:subscription_id;type:uuid;not null;index"`
	CooperativeID  uuid.UUID            `gorm:"column:cooperative_id;type:uuid;not null;index"`
	Reference      string               `gorm:"column:reference;not null;uniqueIndex"`
	Amount         int64                `gorm:"column:amount;not null"`
	Status         enums.PaymentStatus  `gorm:"column:status;not null;default:'pending'"`
	Purpose        enums.PaymentPurpose `gorm:"column:purpose;not null;default:'subscription'"`
	TargetPlanID   *uuid.UUID           `gorm:"column:target_plan_id;type:uuid"`

	PeriodStart time.Time `gorm:"column:period_start;not null"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null"`

	ProviderTransactionID *string    `gorm:"column:provider_transaction_id"`
	PaidAt                *time.Time `gorm:"column:paid_at"`
	Channel               *string    `gorm:"column:channel"`
	CardLast4             *string    `gorm:"column:card_last4"`
	CardBrand             *string    `gorm:"column:card_brand"`
	CardExpMonth          *string    `gorm:"column:card_exp_month"`
	CardExpYear           *string    `gorm:"column:card_exp_year"`
	FailureReason         *string    `gorm:"column:failure_reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
