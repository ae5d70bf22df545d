package activity

import (
	"context"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists audit records of billing actions.
type Repository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, cooperativeID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ActivityLog, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an activity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, cooperativeID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ActivityLog, *pagination.Cursor, error) {
	fetch := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Where("cooperative_id = ?", cooperativeID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at DESC, id DESC").Limit(fetch).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		next := entries[normalized]
		entries = entries[:normalized]
		return entries, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return entries, nil, nil
}
