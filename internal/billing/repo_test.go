package billing

import (
	"context"
	"testing"
	"time"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	subscriptions := `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  cooperative_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  status TEXT NOT NULL,
  billing_cycle TEXT NOT NULL,
  current_period_start DATETIME NOT NULL,
  current_period_end DATETIME NOT NULL,
  cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
  cancelled_at DATETIME,
  cancel_reason TEXT,
  provider_customer_code TEXT NOT NULL DEFAULT '',
  created_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS subscription_payments (
  id TEXT PRIMARY KEY,
  subscription_id TEXT NOT NULL,
  cooperative_id TEXT NOT NULL,
  reference TEXT NOT NULL UNIQUE,
  amount INTEGER NOT NULL,
  status TEXT NOT NULL,
  purpose TEXT NOT NULL,
  target_plan_id TEXT,
  period_start DATETIME NOT NULL,
  period_end DATETIME NOT NULL,
  provider_transaction_id TEXT,
  paid_at DATETIME,
  channel TEXT,
  card_last4 TEXT,
  card_brand TEXT,
  card_exp_month TEXT,
  card_exp_year TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	webhookEvents := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  payload TEXT,
  processed INTEGER NOT NULL DEFAULT 0,
  processed_at DATETIME,
  error TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(subscriptions).Error)
	require.NoError(t, db.Exec(payments).Error)
	require.NoError(t, db.Exec(webhookEvents).Error)
	return db
}

func newSubscription(t *testing.T, db *gorm.DB, cooperativeID uuid.UUID, status enums.SubscriptionStatus, periodEnd time.Time) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		ID:                 uuid.New(),
		CooperativeID:      cooperativeID,
		PlanID:             uuid.New(),
		Status:             status,
		BillingCycle:       enums.BillingCycleMonthly,
		CurrentPeriodStart: periodEnd.AddDate(0, -1, 0),
		CurrentPeriodEnd:   periodEnd,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func newPayment(t *testing.T, db *gorm.DB, sub *models.Subscription, reference string, status enums.PaymentStatus) *models.SubscriptionPayment {
	t.Helper()

	payment := &models.SubscriptionPayment{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		CooperativeID:  sub.CooperativeID,
		Reference:      reference,
		Amount:         250000,
		Status:         status,
		Purpose:        enums.PaymentPurposeSubscription,
		PeriodStart:    sub.CurrentPeriodStart,
		PeriodEnd:      sub.CurrentPeriodEnd,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestFindSubscriptionByCooperativeSkipsTerminal(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	coopID := uuid.New()

	cancelled := newSubscription(t, db, coopID, enums.SubscriptionStatusCancelled, time.Now().UTC())
	require.NoError(t, db.Model(cancelled).Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	current := newSubscription(t, db, coopID, enums.SubscriptionStatusActive, time.Now().UTC().AddDate(0, 1, 0))

	found, err := repo.FindSubscriptionByCooperative(ctx, coopID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, current.ID, found.ID)

	missing, err := repo.FindSubscriptionByCooperative(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListLapsedSubscriptions(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	lapsed := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusActive, now.Add(-time.Hour))
	pastDue := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusPastDue, now.Add(-48*time.Hour))
	newSubscription(t, db, uuid.New(), enums.SubscriptionStatusActive, now.AddDate(0, 1, 0))
	newSubscription(t, db, uuid.New(), enums.SubscriptionStatusCancelled, now.Add(-time.Hour))

	subs, err := repo.ListLapsedSubscriptions(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	// Ordered oldest period end first.
	assert.Equal(t, pastDue.ID, subs[0].ID)
	assert.Equal(t, lapsed.ID, subs[1].ID)
}

func TestClaimPendingPayment(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusPending, time.Now().UTC().AddDate(0, 1, 0))
	newPayment(t, db, sub, "ref-claim", enums.PaymentStatusPending)

	claimed, err := repo.ClaimPendingPayment(ctx, "ref-claim", enums.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim on the same reference is a no-op.
	claimed, err = repo.ClaimPendingPayment(ctx, "ref-claim", enums.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.False(t, claimed)

	payment, err := repo.FindPaymentByReference(ctx, "ref-claim")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, enums.PaymentStatusSuccess, payment.Status)
}

func TestClaimPendingPaymentIgnoresSettled(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusActive, time.Now().UTC().AddDate(0, 1, 0))
	newPayment(t, db, sub, "ref-failed", enums.PaymentStatusFailed)

	claimed, err := repo.ClaimPendingPayment(ctx, "ref-failed", enums.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestListPaymentsPaginates(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusActive, time.Now().UTC().AddDate(0, 1, 0))
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		payment := newPayment(t, db, sub, "ref-"+uuid.NewString(), enums.PaymentStatusSuccess)
		require.NoError(t, db.Model(payment).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page, cursor, err := repo.ListPayments(ctx, ListPaymentsQuery{
		CooperativeID: sub.CooperativeID,
		Limit:         3,
	})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, cursor)

	rest, cursor, err := repo.ListPayments(ctx, ListPaymentsQuery{
		CooperativeID: sub.CooperativeID,
		Limit:         3,
		Cursor:        cursor,
	})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Nil(t, cursor)
}

func TestWebhookEventLifecycle(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	event := &models.WebhookEvent{
		ID:        uuid.New(),
		EventID:   "charge.success:abc123",
		EventType: "charge.success",
		Payload:   []byte(`{"event":"charge.success"}`),
	}
	require.NoError(t, repo.UpsertWebhookEvent(ctx, event))

	// Redelivery of the same event id refreshes the payload, no new row.
	dup := &models.WebhookEvent{
		ID:        uuid.New(),
		EventID:   "charge.success:abc123",
		EventType: "charge.success",
		Payload:   []byte(`{"event":"charge.success","retry":true}`),
	}
	require.NoError(t, repo.UpsertWebhookEvent(ctx, dup))

	var count int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindWebhookEvent(ctx, event.EventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.JSONEq(t, `{"event":"charge.success","retry":true}`, string(stored.Payload))

	require.NoError(t, repo.MarkWebhookError(ctx, event.EventID, "dispatch failed"))
	found, err := repo.FindWebhookEvent(ctx, event.EventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.Processed)
	require.NotNil(t, found.Error)
	assert.Equal(t, "dispatch failed", *found.Error)

	processedAt := time.Now().UTC()
	require.NoError(t, repo.MarkWebhookProcessed(ctx, event.EventID, processedAt))
	found, err = repo.FindWebhookEvent(ctx, event.EventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Processed)
	assert.Nil(t, found.Error)
	require.NotNil(t, found.ProcessedAt)
}

func TestFindSubscriptionByCustomerCode(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	periodEnd := time.Now().UTC().Add(720 * time.Hour)
	active := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusActive, periodEnd)
	active.ProviderCustomerCode = "CUS_live"
	require.NoError(t, repo.UpdateSubscription(ctx, active))

	cancelled := newSubscription(t, db, uuid.New(), enums.SubscriptionStatusCancelled, periodEnd)
	cancelled.ProviderCustomerCode = "CUS_gone"
	require.NoError(t, repo.UpdateSubscription(ctx, cancelled))

	found, err := repo.FindSubscriptionByCustomerCode(ctx, "CUS_live")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)

	// Terminal rows and unknown codes resolve to nil.
	found, err = repo.FindSubscriptionByCustomerCode(ctx, "CUS_gone")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindSubscriptionByCustomerCode(ctx, "CUS_missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}
