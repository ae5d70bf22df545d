package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	"github.com/coopvest/coopvest-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// adminDirectory resolves the recipients of a billing notice.
type adminDirectory interface {
	ListAdminUserIDs(ctx context.Context, cooperativeID uuid.UUID) ([]uuid.UUID, error)
}

// eventPublisher is the slice of the Pub/Sub publisher used for fan-out to
// external consumers.
type eventPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Service defines notification delivery and list/read operations.
type Service interface {
	BillingEvent(ctx context.Context, cooperativeID uuid.UUID, kind enums.NotificationKind, meta map[string]string)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, cooperativeID, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, cooperativeID, userID uuid.UUID) (int64, error)
}

type ServiceParams struct {
	Repo      Repository
	Admins    adminDirectory
	Publisher eventPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	admins    adminDirectory
	publisher eventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService wires notification dependencies. The publisher is optional;
// without one billing events still land as rows but are not fanned out.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	if params.Admins == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin directory required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		admins:    params.Admins,
		publisher: params.Publisher,
		logger:    params.Logger,
		now:       now,
	}, nil
}

// ListParams configures pagination for notifications.
type ListParams struct {
	CooperativeID uuid.UUID
	UserID        uuid.UUID
	Limit         int
	Cursor        string
	UnreadOnly    bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type billingEventEnvelope struct {
	EventID       uuid.UUID              `json:"event_id"`
	CooperativeID uuid.UUID              `json:"cooperative_id"`
	Kind          enums.NotificationKind `json:"kind"`
	Metadata      map[string]string      `json:"metadata,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// BillingEvent delivers a billing notice to every active admin of the
// cooperative and fans the event out to the billing topic. Delivery is
// best-effort: failures are logged and never surface to the subscription
// state change that triggered them.
func (s *service) BillingEvent(ctx context.Context, cooperativeID uuid.UUID, kind enums.NotificationKind, meta map[string]string) {
	if cooperativeID == uuid.Nil || !kind.IsValid() {
		return
	}

	title, body := kindCopy(kind)
	if amount := displayAmount(meta); amount != "" {
		body = body + " Amount: " + amount + "."
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		metadata = nil
	}

	admins, err := s.admins.ListAdminUserIDs(ctx, cooperativeID)
	if err != nil {
		s.logger.Error(ctx, "listing cooperative admins for notification", err)
	}
	for _, adminID := range admins {
		row := &models.Notification{
			CooperativeID: cooperativeID,
			UserID:        adminID,
			Kind:          kind,
			Title:         title,
			Body:          body,
			Metadata:      metadata,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			s.logger.Error(s.logger.WithFields(ctx, map[string]any{
				"cooperative_id": cooperativeID.String(),
				"kind":           kind.String(),
			}), "creating billing notification", err)
		}
	}

	s.publish(ctx, billingEventEnvelope{
		EventID:       uuid.New(),
		CooperativeID: cooperativeID,
		Kind:          kind,
		Metadata:      meta,
		OccurredAt:    s.now().UTC(),
	})
}

func (s *service) publish(ctx context.Context, envelope billingEventEnvelope) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Error(ctx, "encoding billing event envelope", err)
		return
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":       envelope.EventID.String(),
			"kind":           envelope.Kind.String(),
			"cooperative_id": envelope.CooperativeID.String(),
		},
	})
	if result == nil {
		return
	}
	if _, err := result.Get(ctx); err != nil {
		s.logger.Error(ctx, "publishing billing event", err)
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.CooperativeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooperative id required")
	}
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		CooperativeID: params.CooperativeID,
		UserID:        params.UserID,
		Limit:         params.Limit,
		UnreadOnly:    params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, cooperativeID, userID, notificationID uuid.UUID) error {
	if cooperativeID == uuid.Nil || userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cooperative and user ids required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, cooperativeID, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, cooperativeID, userID uuid.UUID) (int64, error) {
	if cooperativeID == uuid.Nil || userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cooperative and user ids required")
	}

	count, err := s.repo.MarkAllRead(ctx, cooperativeID, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
	}
	return count, nil
}

// displayAmount renders the event's minor-unit amount as a major-unit money
// string, e.g. "NGN 2500.00". Events without an amount render nothing.
func displayAmount(meta map[string]string) string {
	minor, err := strconv.ParseInt(meta["amount"], 10, 64)
	if err != nil || minor <= 0 {
		return ""
	}
	major := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).StringFixed(2)
	if currency := meta["currency"]; currency != "" {
		return currency + " " + major
	}
	return major
}

func kindCopy(kind enums.NotificationKind) (string, string) {
	switch kind {
	case enums.NotificationKindSubscriptionActivated:
		return "Subscription activated", "Your cooperative's subscription payment was confirmed and the plan is now active."
	case enums.NotificationKindSubscriptionPastDue:
		return "Subscription past due", "A subscription payment did not go through. Renew to keep your plan's features."
	case enums.NotificationKindSubscriptionCancelled:
		return "Subscription cancelled", "Your cooperative's subscription was cancelled and moved to the free plan."
	case enums.NotificationKindPlanChanged:
		return "Plan changed", "Your cooperative's subscription plan was updated."
	case enums.NotificationKindPaymentFailed:
		return "Payment failed", "A subscription payment attempt failed. Check your payment method and try again."
	default:
		return "Billing update", fmt.Sprintf("Billing event: %s", kind)
	}
}
