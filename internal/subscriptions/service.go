package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coopvest/coopvest-backend/internal/activity"
	"github.com/coopvest/coopvest-backend/internal/billing"
	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/metrics"
	"github.com/coopvest/coopvest-backend/pkg/pagination"
	"github.com/coopvest/coopvest-backend/pkg/paystack"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The free plan carries an effectively unbounded period end instead of a
// real billing boundary.
var freePlanPeriodEnd = time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC)

type planCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FreePlan(ctx context.Context) (*models.Plan, error)
}

type paymentProvider interface {
	InitializeTransaction(ctx context.Context, params paystack.TransactionInitParams) (*paystack.TransactionInitData, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type billingNotifier interface {
	BillingEvent(ctx context.Context, cooperativeID uuid.UUID, kind enums.NotificationKind, meta map[string]string)
}

type auditRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Service defines the subscription lifecycle surface.
type Service interface {
	Get(ctx context.Context, cooperativeID uuid.UUID) (*models.Subscription, error)
	EffectivePlan(ctx context.Context, cooperativeID uuid.UUID) (*models.Plan, error)
	SelectPlan(ctx context.Context, cooperativeID uuid.UUID, input SelectPlanInput) (*SelectPlanResult, error)
	ChangePlan(ctx context.Context, cooperativeID uuid.UUID, input ChangePlanInput) (*SelectPlanResult, error)
	Cancel(ctx context.Context, cooperativeID uuid.UUID, input CancelInput) (*models.Subscription, error)
	VerifyPayment(ctx context.Context, reference string) (*models.SubscriptionPayment, error)
	ApplyPaymentSuccess(ctx context.Context, details ProviderPayment) error
	ApplyPaymentFailure(ctx context.Context, reference, reason string) error
	DisableByCustomerCode(ctx context.Context, customerCode, reason string) error
	ListPayments(ctx context.Context, params ListPaymentsParams) ([]models.SubscriptionPayment, *pagination.Cursor, error)
	SweepLapsed(ctx context.Context, limit int) (int, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	BillingRepo       billing.Repository
	Plans             planCatalog
	Provider          paymentProvider
	TransactionRunner txRunner
	Notifier          billingNotifier
	Audit             auditRecorder
	Metrics           *metrics.BillingMetrics
	Currency          string
	CallbackURL       string
	Now               func() time.Time
}

// SelectPlanInput captures the data required to start a subscription.
type SelectPlanInput struct {
	PlanID       uuid.UUID
	BillingCycle enums.BillingCycle
	Email        string
	ActorID      uuid.UUID
}

// ChangePlanInput captures a plan switch on an existing subscription.
type ChangePlanInput struct {
	PlanID  uuid.UUID
	Email   string
	ActorID uuid.UUID
}

// CancelInput configures a cancellation request.
type CancelInput struct {
	Immediate bool
	Reason    string
	ActorID   uuid.UUID
}

// PaymentIntent points the caller at the provider's hosted checkout.
type PaymentIntent struct {
	Reference        string `json:"reference"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// SelectPlanResult is the outcome of a plan selection or change. Payment is
// nil when the transition completed without a charge.
type SelectPlanResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Payment      *PaymentIntent       `json:"payment,omitempty"`
}

// ProviderPayment carries the provider's settled view of a charge.
type ProviderPayment struct {
	Reference     string
	TransactionID string
	Amount        int64
	PaidAt        *time.Time
	Channel       string
	CardLast4     string
	CardBrand     string
	CardExpMonth  string
	CardExpYear   string
	CustomerCode  string
}

// ListPaymentsParams configures payment history reads.
type ListPaymentsParams struct {
	CooperativeID uuid.UUID
	Limit         int
	Cursor        string
	Status        *enums.PaymentStatus
}

type service struct {
	billingRepo billing.Repository
	plans       planCatalog
	provider    paymentProvider
	txRunner    txRunner
	notifier    billingNotifier
	audit       auditRecorder
	metrics     *metrics.BillingMetrics
	currency    string
	callbackURL string
	now         func() time.Time
}

// NewService builds a subscription lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.BillingRepo == nil {
		return nil, errors.New("billing repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Provider == nil {
		return nil, errors.New("payment provider is required")
	}
	if params.TransactionRunner == nil {
		return nil, errors.New("transaction runner is required")
	}
	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = "NGN"
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		billingRepo: params.BillingRepo,
		plans:       params.Plans,
		provider:    params.Provider,
		txRunner:    params.TransactionRunner,
		notifier:    params.Notifier,
		audit:       params.Audit,
		metrics:     params.Metrics,
		currency:    currency,
		callbackURL: params.CallbackURL,
		now:         now,
	}, nil
}

// Get returns the cooperative's current subscription after lazily resolving
// any lapsed billing period. Returns nil when no subscription exists.
func (s *service) Get(ctx context.Context, cooperativeID uuid.UUID) (*models.Subscription, error) {
	if cooperativeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooperative id is required")
	}
	sub, err := s.billingRepo.FindSubscriptionByCooperative(ctx, cooperativeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding subscription")
	}
	return s.resolveLapsed(ctx, sub)
}

// EffectivePlan resolves the plan whose limits currently apply. A cooperative
// without a subscription defaults to the free plan.
func (s *service) EffectivePlan(ctx context.Context, cooperativeID uuid.UUID) (*models.Plan, error) {
	sub, err := s.Get(ctx, cooperativeID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return s.plans.FreePlan(ctx)
	}
	return s.plans.Get(ctx, sub.PlanID)
}

func (s *service) SelectPlan(ctx context.Context, cooperativeID uuid.UUID, input SelectPlanInput) (*SelectPlanResult, error) {
	if cooperativeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooperative id is required")
	}
	if !input.BillingCycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid billing cycle %q", input.BillingCycle))
	}

	plan, err := s.plans.Get(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %s is no longer available", plan.Code))
	}

	existing, err := s.Get(ctx, cooperativeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	price := plan.PriceFor(input.BillingCycle)

	if price == 0 {
		sub, err := s.activateWithoutCharge(ctx, existing, cooperativeID, plan, input.BillingCycle, input.ActorID, now)
		if err != nil {
			return nil, err
		}
		s.record(ctx, cooperativeID, input.ActorID, "subscription.select",
			fmt.Sprintf("Activated the %s plan.", plan.Name), map[string]string{"plan": plan.Code})
		return &SelectPlanResult{Subscription: sub}, nil
	}

	if existing != nil && existing.Status == enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an active subscription exists; change plan instead")
	}

	periodStart := now
	periodEnd := input.BillingCycle.PeriodEnd(now)
	reference := newPaymentReference()

	sub := existing
	var payment *models.SubscriptionPayment
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)

		if sub == nil {
			sub = &models.Subscription{
				CooperativeID: cooperativeID,
				CreatedBy:     actorRef(input.ActorID),
			}
		}
		sub.PlanID = plan.ID
		sub.Status = enums.SubscriptionStatusPending
		sub.BillingCycle = input.BillingCycle
		sub.CurrentPeriodStart = periodStart
		sub.CurrentPeriodEnd = periodEnd
		sub.CancelAtPeriodEnd = false
		sub.CancelledAt = nil
		sub.CancelReason = nil

		if sub.ID == uuid.Nil {
			if err := repo.CreateSubscription(ctx, sub); err != nil {
				return err
			}
		} else if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}

		payment = &models.SubscriptionPayment{
			SubscriptionID: sub.ID,
			CooperativeID:  cooperativeID,
			Reference:      reference,
			Amount:         price,
			Status:         enums.PaymentStatusPending,
			Purpose:        enums.PaymentPurposeSubscription,
			PeriodStart:    periodStart,
			PeriodEnd:      periodEnd,
		}
		return repo.CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording pending subscription")
	}

	intent, err := s.initiateCheckout(ctx, input.Email, payment, plan)
	if err != nil {
		return nil, err
	}

	s.record(ctx, cooperativeID, input.ActorID, "subscription.select",
		fmt.Sprintf("Started checkout for the %s plan.", plan.Name),
		map[string]string{"plan": plan.Code, "reference": reference})
	return &SelectPlanResult{Subscription: sub, Payment: intent}, nil
}

func (s *service) ChangePlan(ctx context.Context, cooperativeID uuid.UUID, input ChangePlanInput) (*SelectPlanResult, error) {
	sub, err := s.Get(ctx, cooperativeID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription exists; select a plan first")
	}

	newPlan, err := s.plans.Get(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if !newPlan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %s is no longer available", newPlan.Code))
	}
	if newPlan.ID == sub.PlanID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is already on this plan")
	}

	currentPlan, err := s.plans.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	currentPrice := currentPlan.PriceFor(sub.BillingCycle)
	newPrice := newPlan.PriceFor(sub.BillingCycle)

	// Moving to a zero-price plan behaves as an immediate cancellation plus
	// free-plan reactivation.
	if newPrice == 0 {
		cancelled, err := s.cancelToFree(ctx, sub, "downgraded to free plan", input.ActorID)
		if err != nil {
			return nil, err
		}
		return &SelectPlanResult{Subscription: cancelled}, nil
	}

	if newPrice <= currentPrice {
		// Downgrades and laterals take effect at the next billing period;
		// the current period and status are untouched.
		err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			sub.PlanID = newPlan.ID
			return s.billingRepo.WithTx(tx).UpdateSubscription(ctx, sub)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording plan change")
		}
		s.notify(ctx, cooperativeID, enums.NotificationKindPlanChanged, map[string]string{
			"plan": newPlan.Code,
		})
		s.record(ctx, cooperativeID, input.ActorID, "subscription.change_plan",
			fmt.Sprintf("Moved the subscription to the %s plan.", newPlan.Name),
			map[string]string{"plan": newPlan.Code})
		return &SelectPlanResult{Subscription: sub}, nil
	}

	if sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription must be active to upgrade")
	}

	now := s.now()
	amount := ProratedUpgradeCharge(currentPrice, newPrice, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, now)
	if amount == 0 {
		// Nothing left to bill in this period; commit the swap directly.
		err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			sub.PlanID = newPlan.ID
			return s.billingRepo.WithTx(tx).UpdateSubscription(ctx, sub)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording plan change")
		}
		s.notify(ctx, cooperativeID, enums.NotificationKindPlanChanged, map[string]string{
			"plan": newPlan.Code,
		})
		s.record(ctx, cooperativeID, input.ActorID, "subscription.change_plan",
			fmt.Sprintf("Moved the subscription to the %s plan.", newPlan.Name),
			map[string]string{"plan": newPlan.Code})
		return &SelectPlanResult{Subscription: sub}, nil
	}

	// The plan swap is only committed once the prorated payment verifies.
	reference := newPaymentReference()
	targetPlanID := newPlan.ID
	payment := &models.SubscriptionPayment{
		SubscriptionID: sub.ID,
		CooperativeID:  cooperativeID,
		Reference:      reference,
		Amount:         amount,
		Status:         enums.PaymentStatusPending,
		Purpose:        enums.PaymentPurposeUpgrade,
		TargetPlanID:   &targetPlanID,
		PeriodStart:    sub.CurrentPeriodStart,
		PeriodEnd:      sub.CurrentPeriodEnd,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.billingRepo.WithTx(tx).CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording upgrade payment")
	}

	intent, err := s.initiateCheckout(ctx, input.Email, payment, newPlan)
	if err != nil {
		return nil, err
	}

	s.record(ctx, cooperativeID, input.ActorID, "subscription.change_plan",
		fmt.Sprintf("Started a prorated upgrade to the %s plan.", newPlan.Name),
		map[string]string{"plan": newPlan.Code, "reference": reference})
	return &SelectPlanResult{Subscription: sub, Payment: intent}, nil
}

func (s *service) Cancel(ctx context.Context, cooperativeID uuid.UUID, input CancelInput) (*models.Subscription, error) {
	sub, err := s.Get(ctx, cooperativeID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription exists")
	}
	if sub.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is already cancelled")
	}

	plan, err := s.plans.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "cancelled by cooperative"
	}

	// Zero-price plans have no period boundary worth waiting for.
	if input.Immediate || plan.PriceFor(sub.BillingCycle) == 0 {
		return s.cancelToFree(ctx, sub, reason, input.ActorID)
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		sub.CancelAtPeriodEnd = true
		sub.CancelReason = &reason
		return s.billingRepo.WithTx(tx).UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording cancellation")
	}
	s.record(ctx, sub.CooperativeID, input.ActorID, "subscription.cancel",
		"Scheduled cancellation at the end of the current billing period.",
		map[string]string{"reason": reason})
	return sub, nil
}

// VerifyPayment reconciles a payment synchronously against the provider. It
// converges on the same transition logic as the webhook path and tolerates
// being invoked after the webhook already settled the reference.
func (s *service) VerifyPayment(ctx context.Context, reference string) (*models.SubscriptionPayment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	payment, err := s.billingRepo.FindPaymentByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %q not found", reference))
	}
	if payment.Status != enums.PaymentStatusPending {
		return payment, nil
	}

	data, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	if data.Succeeded() {
		err = s.ApplyPaymentSuccess(ctx, ProviderPaymentFromTransaction(data))
	} else {
		err = s.ApplyPaymentFailure(ctx, reference, data.GatewayResp)
	}
	if err != nil {
		return nil, err
	}

	settled, err := s.billingRepo.FindPaymentByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading payment")
	}
	return settled, nil
}

// ApplyPaymentSuccess settles a pending payment and advances the
// subscription. Safe to call multiple times for the same reference: only the
// first caller claims the pending row, later calls are no-ops.
func (s *service) ApplyPaymentSuccess(ctx context.Context, details ProviderPayment) error {
	reference := strings.TrimSpace(details.Reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var activatedSub *models.Subscription
	var mismatchedSub *models.Subscription
	var activatedPlan uuid.UUID
	var purpose enums.PaymentPurpose
	var paidAmount int64

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)

		claimed, err := repo.ClaimPendingPayment(ctx, reference, enums.PaymentStatusSuccess)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		payment, err := repo.FindPaymentByReference(ctx, reference)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("claimed payment %q disappeared", reference)
		}
		paidAmount = payment.Amount

		if details.Amount > 0 && details.Amount != payment.Amount {
			// The provider settled a different amount than we charged for.
			// Do not activate; fail the attempt and leave the record behind.
			payment.Status = enums.PaymentStatusFailed
			reason := fmt.Sprintf("amount mismatch: expected %d, provider reported %d", payment.Amount, details.Amount)
			payment.FailureReason = &reason
			if err := repo.UpdatePayment(ctx, payment); err != nil {
				return err
			}
			sub, err := repo.FindSubscriptionByID(ctx, payment.SubscriptionID)
			if err != nil {
				return err
			}
			if sub == nil || sub.Status.IsTerminal() {
				return nil
			}
			sub.Status = enums.SubscriptionStatusPastDue
			if err := repo.UpdateSubscription(ctx, sub); err != nil {
				return err
			}
			mismatchedSub = sub
			return nil
		}

		applyProviderDetails(payment, details)
		if err := repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		sub, err := repo.FindSubscriptionByID(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return fmt.Errorf("subscription %s for payment %q not found", payment.SubscriptionID, reference)
		}
		if sub.Status.IsTerminal() {
			// The subscription was cancelled while the charge settled. Keep
			// the payment settled; a cancelled subscription is not revived.
			return nil
		}

		purpose = payment.Purpose
		if payment.Purpose == enums.PaymentPurposeUpgrade && payment.TargetPlanID != nil {
			// The upgrade keeps the current period; only the plan swaps.
			sub.PlanID = *payment.TargetPlanID
		} else {
			sub.Status = enums.SubscriptionStatusActive
			sub.CurrentPeriodStart = payment.PeriodStart
			sub.CurrentPeriodEnd = payment.PeriodEnd
			sub.CancelAtPeriodEnd = false
		}
		if details.CustomerCode != "" {
			sub.ProviderCustomerCode = details.CustomerCode
		}
		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}

		activatedSub = sub
		activatedPlan = sub.PlanID
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying payment success")
	}

	if mismatchedSub != nil {
		s.metrics.IncPaymentFailed()
		s.notify(ctx, mismatchedSub.CooperativeID, enums.NotificationKindPaymentFailed, map[string]string{
			"reference": reference,
			"amount":    strconv.FormatInt(paidAmount, 10),
			"currency":  s.currency,
		})
		return nil
	}

	if activatedSub != nil {
		s.metrics.IncPaymentConfirmed()
		kind := enums.NotificationKindSubscriptionActivated
		if purpose == enums.PaymentPurposeUpgrade {
			kind = enums.NotificationKindPlanChanged
		}
		s.notify(ctx, activatedSub.CooperativeID, kind, map[string]string{
			"plan_id":   activatedPlan.String(),
			"reference": reference,
			"amount":    strconv.FormatInt(paidAmount, 10),
			"currency":  s.currency,
		})
	}
	return nil
}

// ApplyPaymentFailure settles a pending payment as failed and flags the
// subscription past due. Idempotent under redelivery.
func (s *service) ApplyPaymentFailure(ctx context.Context, reference, reason string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var failedSub *models.Subscription
	var failedAmount int64
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)

		claimed, err := repo.ClaimPendingPayment(ctx, reference, enums.PaymentStatusFailed)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		payment, err := repo.FindPaymentByReference(ctx, reference)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("claimed payment %q disappeared", reference)
		}
		failedAmount = payment.Amount

		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			payment.FailureReason = &trimmed
		}
		if err := repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		sub, err := repo.FindSubscriptionByID(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		if sub == nil || sub.Status.IsTerminal() {
			return nil
		}

		sub.Status = enums.SubscriptionStatusPastDue
		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		failedSub = sub
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying payment failure")
	}

	if failedSub != nil {
		s.metrics.IncPaymentFailed()
		s.notify(ctx, failedSub.CooperativeID, enums.NotificationKindPaymentFailed, map[string]string{
			"reference": reference,
			"amount":    strconv.FormatInt(failedAmount, 10),
			"currency":  s.currency,
		})
	}
	return nil
}

// DisableByCustomerCode cancels the subscription tied to a provider customer
// code and moves the cooperative onto the free plan. Codes that match no live
// subscription are a no-op so stale provider events cannot fail delivery.
func (s *service) DisableByCustomerCode(ctx context.Context, customerCode, reason string) error {
	customerCode = strings.TrimSpace(customerCode)
	if customerCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer code is required")
	}

	sub, err := s.billingRepo.FindSubscriptionByCustomerCode(ctx, customerCode)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding subscription by customer code")
	}
	if sub == nil || sub.Status.IsTerminal() {
		return nil
	}

	if strings.TrimSpace(reason) == "" {
		reason = "provider disabled the subscription"
	}
	_, err = s.cancelToFree(ctx, sub, reason, uuid.Nil)
	return err
}

func (s *service) ListPayments(ctx context.Context, params ListPaymentsParams) ([]models.SubscriptionPayment, *pagination.Cursor, error) {
	if params.CooperativeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cooperative id is required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	payments, next, err := s.billingRepo.ListPayments(ctx, billing.ListPaymentsQuery{
		CooperativeID: params.CooperativeID,
		Limit:         params.Limit,
		Cursor:        cursor,
		Status:        params.Status,
	})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payments")
	}
	return payments, next, nil
}

// SweepLapsed eagerly resolves subscriptions whose period boundary has
// passed. The same transitions apply lazily on read; the sweep keeps
// notification timing honest for cooperatives nobody is reading.
func (s *service) SweepLapsed(ctx context.Context, limit int) (int, error) {
	subs, err := s.billingRepo.ListLapsedSubscriptions(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing lapsed subscriptions")
	}

	resolved := 0
	for i := range subs {
		sub := subs[i]
		origStatus := sub.Status
		after, err := s.resolveLapsed(ctx, &sub)
		if err != nil {
			return resolved, err
		}
		if after == nil || after.ID != sub.ID || after.Status != origStatus {
			resolved++
		}
	}
	return resolved, nil
}

// resolveLapsed applies the period-boundary transitions on read: an active
// subscription flagged cancel-at-period-end downgrades to a fresh free
// subscription, any other lapsed paid subscription goes past due.
func (s *service) resolveLapsed(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if sub == nil {
		return nil, nil
	}
	now := s.now()
	if !sub.PeriodLapsed(now) || sub.Status.IsTerminal() {
		return sub, nil
	}

	if sub.Status == enums.SubscriptionStatusActive && sub.CancelAtPeriodEnd {
		reason := "period ended after cancellation request"
		if sub.CancelReason != nil {
			reason = *sub.CancelReason
		}
		return s.cancelToFree(ctx, sub, reason, uuid.Nil)
	}

	if sub.Status == enums.SubscriptionStatusActive {
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			sub.Status = enums.SubscriptionStatusPastDue
			return s.billingRepo.WithTx(tx).UpdateSubscription(ctx, sub)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking subscription past due")
		}
		s.notify(ctx, sub.CooperativeID, enums.NotificationKindSubscriptionPastDue, map[string]string{
			"period_end": sub.CurrentPeriodEnd.Format(time.RFC3339),
		})
	}

	// Pending and past-due subscriptions wait for payment or cancellation.
	return sub, nil
}

// cancelToFree cancels the subscription and immediately creates a fresh
// active free-plan subscription in the same transaction, so the cooperative
// is never left without a subscription record.
func (s *service) cancelToFree(ctx context.Context, sub *models.Subscription, reason string, actorID uuid.UUID) (*models.Subscription, error) {
	freePlan, err := s.plans.FreePlan(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var replacement *models.Subscription
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)

		sub.Status = enums.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.CancelReason = &reason
		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}

		createdBy := sub.CreatedBy
		if actorID != uuid.Nil {
			createdBy = actorRef(actorID)
		}
		replacement = &models.Subscription{
			CooperativeID:      sub.CooperativeID,
			PlanID:             freePlan.ID,
			Status:             enums.SubscriptionStatusActive,
			BillingCycle:       sub.BillingCycle,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   freePlanPeriodEnd,
			CreatedBy:          createdBy,
		}
		return repo.CreateSubscription(ctx, replacement)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling subscription")
	}

	s.notify(ctx, sub.CooperativeID, enums.NotificationKindSubscriptionCancelled, map[string]string{
		"reason": reason,
	})
	s.record(ctx, sub.CooperativeID, actorID, "subscription.cancel",
		"Cancelled the subscription and reverted to the free plan.",
		map[string]string{"reason": reason})
	return replacement, nil
}

// activateWithoutCharge applies a zero-price plan selection directly.
func (s *service) activateWithoutCharge(ctx context.Context, existing *models.Subscription, cooperativeID uuid.UUID, plan *models.Plan, cycle enums.BillingCycle, actorID uuid.UUID, now time.Time) (*models.Subscription, error) {
	periodEnd := cycle.PeriodEnd(now)
	if plan.IsFree() {
		periodEnd = freePlanPeriodEnd
	}

	sub := existing
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)
		if sub == nil {
			sub = &models.Subscription{
				CooperativeID: cooperativeID,
				CreatedBy:     actorRef(actorID),
			}
		}
		sub.PlanID = plan.ID
		sub.Status = enums.SubscriptionStatusActive
		sub.BillingCycle = cycle
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = periodEnd
		sub.CancelAtPeriodEnd = false
		sub.CancelledAt = nil
		sub.CancelReason = nil

		if sub.ID == uuid.Nil {
			return repo.CreateSubscription(ctx, sub)
		}
		return repo.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activating subscription")
	}

	s.notify(ctx, cooperativeID, enums.NotificationKindSubscriptionActivated, map[string]string{
		"plan": plan.Code,
	})
	return sub, nil
}

func (s *service) initiateCheckout(ctx context.Context, email string, payment *models.SubscriptionPayment, plan *models.Plan) (*PaymentIntent, error) {
	data, err := s.provider.InitializeTransaction(ctx, paystack.TransactionInitParams{
		Email:       email,
		Amount:      payment.Amount,
		Reference:   payment.Reference,
		Currency:    s.currency,
		CallbackURL: s.callbackURL,
		Metadata: map[string]string{
			"cooperative_id": payment.CooperativeID.String(),
			"purpose":        payment.Purpose.String(),
			"plan":           plan.Code,
		},
	})
	if err != nil {
		// The pending payment row stays behind; verification of the same
		// reference can still settle it if the provider accepted the call.
		return nil, err
	}

	return &PaymentIntent{
		Reference:        payment.Reference,
		Amount:           payment.Amount,
		Currency:         s.currency,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

func (s *service) notify(ctx context.Context, cooperativeID uuid.UUID, kind enums.NotificationKind, meta map[string]string) {
	if s.notifier == nil {
		return
	}
	s.notifier.BillingEvent(ctx, cooperativeID, kind, meta)
}

func (s *service) record(ctx context.Context, cooperativeID, actorID uuid.UUID, action, description string, meta map[string]string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, activity.Entry{
		CooperativeID: cooperativeID,
		UserID:        actorRef(actorID),
		Action:        action,
		Description:   description,
		Metadata:      meta,
	})
}

func applyProviderDetails(payment *models.SubscriptionPayment, details ProviderPayment) {
	if details.TransactionID != "" {
		payment.ProviderTransactionID = &details.TransactionID
	}
	if details.PaidAt != nil {
		payment.PaidAt = details.PaidAt
	}
	if details.Channel != "" {
		payment.Channel = &details.Channel
	}
	if details.CardLast4 != "" {
		payment.CardLast4 = &details.CardLast4
	}
	if details.CardBrand != "" {
		payment.CardBrand = &details.CardBrand
	}
	if details.CardExpMonth != "" {
		payment.CardExpMonth = &details.CardExpMonth
	}
	if details.CardExpYear != "" {
		payment.CardExpYear = &details.CardExpYear
	}
}

// ProviderPaymentFromTransaction maps a verified provider transaction onto
// the settlement details the lifecycle applies.
func ProviderPaymentFromTransaction(data *paystack.TransactionData) ProviderPayment {
	return ProviderPayment{
		Reference:     data.Reference,
		TransactionID: fmt.Sprintf("%d", data.ID),
		Amount:        data.Amount,
		PaidAt:        data.PaidAt,
		Channel:       data.Channel,
		CardLast4:     data.Authorization.Last4,
		CardBrand:     data.Authorization.Brand,
		CardExpMonth:  data.Authorization.ExpMonth,
		CardExpYear:   data.Authorization.ExpYear,
		CustomerCode:  data.Customer.CustomerCode,
	}
}

func newPaymentReference() string {
	return "cvp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
