package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/coopvest/coopvest-backend/pkg/logger"
	paginationpkg "github.com/coopvest/coopvest-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeRepository struct {
	created       []*models.Notification
	createErr     error
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markReadFn    func(ctx context.Context, cooperativeID, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, cooperativeID, userID uuid.UUID, now time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, cooperativeID, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, cooperativeID, userID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, cooperativeID, userID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, cooperativeID, userID, now)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeAdmins struct {
	ids []uuid.UUID
	err error
}

func (f *fakeAdmins) ListAdminUserIDs(ctx context.Context, cooperativeID uuid.UUID) ([]uuid.UUID, error) {
	return f.ids, f.err
}

type fakePublisher struct {
	messages []*pubsub.Message
}

func (f *fakePublisher) Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult {
	f.messages = append(f.messages, msg)
	return nil
}

func newTestService(t *testing.T, repo *fakeRepository, admins *fakeAdmins, publisher *fakePublisher) Service {
	t.Helper()
	params := ServiceParams{
		Repo:   repo,
		Admins: admins,
		Logger: logger.New(logger.Options{Level: zerolog.Disabled}),
		Now:    func() time.Time { return time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC) },
	}
	if publisher != nil {
		params.Publisher = publisher
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestBillingEventFansOutToAdmins(t *testing.T) {
	repo := &fakeRepository{}
	firstAdmin := uuid.New()
	secondAdmin := uuid.New()
	admins := &fakeAdmins{ids: []uuid.UUID{firstAdmin, secondAdmin}}
	publisher := &fakePublisher{}
	svc := newTestService(t, repo, admins, publisher)

	coopID := uuid.New()
	svc.BillingEvent(context.Background(), coopID, enums.NotificationKindSubscriptionActivated, map[string]string{
		"reference": "cvp_abc",
	})

	if len(repo.created) != 2 {
		t.Fatalf("expected a row per admin, got %d", len(repo.created))
	}
	for _, row := range repo.created {
		if row.CooperativeID != coopID || row.Kind != enums.NotificationKindSubscriptionActivated {
			t.Fatalf("unexpected notification row: %+v", row)
		}
		if row.Title == "" || row.Body == "" {
			t.Fatal("expected human-readable title and body")
		}
	}

	if len(publisher.messages) != 1 {
		t.Fatalf("expected one published envelope, got %d", len(publisher.messages))
	}
	msg := publisher.messages[0]
	if msg.Attributes["kind"] != "subscription.activated" || msg.Attributes["cooperative_id"] != coopID.String() {
		t.Fatalf("unexpected message attributes: %v", msg.Attributes)
	}
}

func TestBillingEventSwallowsFailures(t *testing.T) {
	repo := &fakeRepository{createErr: errors.New("db down")}
	admins := &fakeAdmins{ids: []uuid.UUID{uuid.New()}}
	svc := newTestService(t, repo, admins, nil)

	// Must not panic or propagate; delivery is best-effort.
	svc.BillingEvent(context.Background(), uuid.New(), enums.NotificationKindPaymentFailed, nil)

	admins.err = errors.New("directory down")
	svc.BillingEvent(context.Background(), uuid.New(), enums.NotificationKindPaymentFailed, nil)
}

func TestBillingEventIgnoresInvalidInput(t *testing.T) {
	repo := &fakeRepository{}
	admins := &fakeAdmins{ids: []uuid.UUID{uuid.New()}}
	publisher := &fakePublisher{}
	svc := newTestService(t, repo, admins, publisher)

	svc.BillingEvent(context.Background(), uuid.Nil, enums.NotificationKindPaymentFailed, nil)
	svc.BillingEvent(context.Background(), uuid.New(), enums.NotificationKind("bogus"), nil)

	if len(repo.created) != 0 || len(publisher.messages) != 0 {
		t.Fatal("invalid input must not deliver anything")
	}
}

func TestListRequiresIdentity(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeAdmins{}, nil)

	if _, err := svc.List(context.Background(), ListParams{UserID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.List(context.Background(), ListParams{CooperativeID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListEncodesNextCursor(t *testing.T) {
	next := &paginationpkg.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			return []models.Notification{{ID: uuid.New()}}, next, nil
		},
	}
	svc := newTestService(t, repo, &fakeAdmins{}, nil)

	result, err := svc.List(context.Background(), ListParams{CooperativeID: uuid.New(), UserID: uuid.New(), Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Cursor == "" {
		t.Fatal("expected encoded next cursor")
	}
}

func TestMarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, cooperativeID, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newTestService(t, repo, &fakeAdmins{}, nil)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkAllReadReturnsCount(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, cooperativeID, userID uuid.UUID, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	svc := newTestService(t, repo, &fakeAdmins{}, nil)

	count, err := svc.MarkAllRead(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}

func TestDisplayAmount(t *testing.T) {
	cases := []struct {
		meta map[string]string
		want string
	}{
		{map[string]string{"amount": "250000", "currency": "NGN"}, "NGN 2500.00"},
		{map[string]string{"amount": "99"}, "0.99"},
		{map[string]string{"amount": "0", "currency": "NGN"}, ""},
		{map[string]string{"amount": "not-a-number"}, ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := displayAmount(tc.meta); got != tc.want {
			t.Fatalf("displayAmount(%v) = %q, want %q", tc.meta, got, tc.want)
		}
	}
}
