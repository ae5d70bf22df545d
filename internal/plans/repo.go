package plans

import (
	"context"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles plan catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, plan *models.Plan) error
	List(ctx context.Context, params ListPlansQuery) ([]models.Plan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindByCode(ctx context.Context, code string) (*models.Plan, error)
}

type repository struct {
	db *gorm.DB
}

// ListPlansQuery configures plan list queries.
type ListPlansQuery struct {
	IsActive *bool
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) Update(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) List(ctx context.Context, params ListPlansQuery) ([]models.Plan, error) {
	query := r.db.WithContext(ctx).Model(&models.Plan{})
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}

	var plans []models.Plan
	if err := query.Order("sort_order ASC, name ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Plan, error) {
	if code == "" {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
