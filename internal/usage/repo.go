package usage

import (
	"context"
	"time"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository counts the authoritative records that back usage limits.
type Repository interface {
	CountActiveMembers(ctx context.Context, cooperativeID uuid.UUID) (int64, error)
	CountActiveContributionPlans(ctx context.Context, cooperativeID uuid.UUID) (int64, error)
	CountActiveGroupBuys(ctx context.Context, cooperativeID uuid.UUID) (int64, error)
	CountLoansRequestedSince(ctx context.Context, cooperativeID uuid.UUID, since time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountActiveMembers(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("cooperative_id = ? AND status = ?", cooperativeID, enums.MemberStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveContributionPlans(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContributionPlan{}).
		Where("cooperative_id = ? AND is_active = ?", cooperativeID, true).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveGroupBuys(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("cooperative_id = ? AND status = ?", cooperativeID, enums.GroupBuyStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) CountLoansRequestedSince(ctx context.Context, cooperativeID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("cooperative_id = ? AND requested_at >= ?", cooperativeID, since).
		Count(&count).Error
	return count, err
}
