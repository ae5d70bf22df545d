package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/coopvest/coopvest-backend/pkg/enums"
)

// Limit sentinel for plan features that have no cap.
const LimitUnlimited = -1

// Plan captures a subscription tier with prices and usage limits.
// Prices are integer minor currency units (kobo). A limit of zero disables the
// feature entirely; LimitUnlimited removes the cap.
type Plan struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string         `gorm:"column:code;not null;uniqueIndex"`
	Name         string         `gorm:"column:name;not null"`
	MonthlyPrice int64          `gorm:"column:monthly_price;not null;default:0"`
	YearlyPrice  int64          `gorm:"column:yearly_price;not null;default:0"`

	MaxMembers           int `gorm:"column:max_members;not null;default:0"`
	MaxContributionPlans int `gorm:"column:max_contribution_plans;not null;default:0"`
	MaxLoansPerMonth     int `gorm:"column:max_loans_per_month;not null;default:0"`
	MaxGroupBuys         int `gorm:"column:max_group_buys;not null;default:0"`

	Features  pq.StringArray `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	SortOrder int            `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the plan price for the given cycle in minor units.
func (p Plan) PriceFor(cycle enums.BillingCycle) int64 {
	if cycle == enums.BillingCycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// IsFree reports whether the plan carries no charge on any cycle.
func (p Plan) IsFree() bool {
	return p.MonthlyPrice == 0 && p.YearlyPrice == 0
}
