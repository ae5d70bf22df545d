package billing

import (
	"context"
	"time"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	"github.com/coopvest/coopvest-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles subscription billing persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSubscription(ctx context.Context, subscription *models.Subscription) error
	UpdateSubscription(ctx context.Context, subscription *models.Subscription) error
	FindSubscriptionByCooperative(ctx context.Context, cooperativeID uuid.UUID) (*models.Subscription, error)
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindSubscriptionByCustomerCode(ctx context.Context, customerCode string) (*models.Subscription, error)
	ListLapsedSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	CreatePayment(ctx context.Context, payment *models.SubscriptionPayment) error
	UpdatePayment(ctx context.Context, payment *models.SubscriptionPayment) error
	FindPaymentByReference(ctx context.Context, reference string) (*models.SubscriptionPayment, error)
	ClaimPendingPayment(ctx context.Context, reference string, status enums.PaymentStatus) (bool, error)
	ListPayments(ctx context.Context, params ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error)
	UpsertWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
	FindWebhookEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, eventID string, processedAt time.Time) error
	MarkWebhookError(ctx context.Context, eventID string, message string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) FindSubscriptionByCooperative(ctx context.Context, cooperativeID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("cooperative_id = ?", cooperativeID).
		Where("status IN (?)", []enums.SubscriptionStatus{
			enums.SubscriptionStatusPending,
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindSubscriptionByCustomerCode(ctx context.Context, customerCode string) (*models.Subscription, error) {
	if customerCode == "" {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("provider_customer_code = ?", customerCode).
		Where("status IN (?)", []enums.SubscriptionStatus{
			enums.SubscriptionStatusPending,
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListLapsedSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	if limit <= 0 {
		limit = 250
	}
	statuses := []enums.SubscriptionStatus{
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusPastDue,
	}
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status IN (?)", statuses).
		Where("current_period_end < ?", now).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) UpdatePayment(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) FindPaymentByReference(ctx context.Context, reference string) (*models.SubscriptionPayment, error) {
	if reference == "" {
		return nil, nil
	}
	var payment models.SubscriptionPayment
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ClaimPendingPayment flips a pending payment to the given terminal status.
// The conditional update is the serialization point for concurrent webhook
// delivery and synchronous verification of the same reference: exactly one
// caller observes rows affected.
func (r *repository) ClaimPendingPayment(ctx context.Context, reference string, status enums.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("reference = ? AND status = ?", reference, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPaymentsQuery configures payment history queries.
type ListPaymentsQuery struct {
	CooperativeID uuid.UUID
	Limit         int
	Cursor        *pagination.Cursor
	Status        *enums.PaymentStatus
}

func (r *repository) ListPayments(ctx context.Context, params ListPaymentsQuery) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("cooperative_id = ?", params.CooperativeID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var payments []models.SubscriptionPayment
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&payments).Error; err != nil {
		return nil, nil, err
	}

	if len(payments) > limit {
		next := payments[limit]
		payments = payments[:limit]
		return payments, &pagination.Cursor{
			CreatedAt: next.CreatedAt,
			ID:        next.ID,
		}, nil
	}

	return payments, nil, nil
}

// UpsertWebhookEvent records an inbound event keyed by its provider event id.
// Redelivery of an unprocessed event refreshes the stored payload instead of
// erroring, which keeps the dedup check race-free under concurrent delivery.
func (r *repository) UpsertWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"event_type", "payload", "updated_at"}),
		}).
		Create(event).Error
}

func (r *repository) FindWebhookEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	if eventID == "" {
		return nil, nil
	}
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"processed":    true,
			"processed_at": processedAt,
			"error":        nil,
		}).Error
}

func (r *repository) MarkWebhookError(ctx context.Context, eventID string, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"processed": false,
			"error":     message,
		}).Error
}
