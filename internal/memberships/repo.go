package memberships

import (
	"context"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository answers membership questions for the billing engine. Billing
// never mutates memberships; it reads them to gate admin-only operations and
// to fan notifications out to a cooperative's admins.
type Repository interface {
	IsActiveAdmin(ctx context.Context, cooperativeID, userID uuid.UUID) (bool, error)
	ListAdminUserIDs(ctx context.Context, cooperativeID uuid.UUID) ([]uuid.UUID, error)
	CountActive(ctx context.Context, cooperativeID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IsActiveAdmin(ctx context.Context, cooperativeID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CooperativeMembership{}).
		Where("cooperative_id = ? AND user_id = ?", cooperativeID, userID).
		Where("role = ?", enums.MemberRoleAdmin).
		Where("status = ?", enums.MembershipStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListAdminUserIDs(ctx context.Context, cooperativeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CooperativeMembership{}).
		Where("cooperative_id = ?", cooperativeID).
		Where("role = ?", enums.MemberRoleAdmin).
		Where("status = ?", enums.MembershipStatusActive).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountActive backs the member usage counter: invited and removed rows do not
// count against a plan's member limit.
func (r *repository) CountActive(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CooperativeMembership{}).
		Where("cooperative_id = ?", cooperativeID).
		Where("status = ?", enums.MembershipStatusActive).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
