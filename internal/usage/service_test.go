package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubRepo struct {
	members      int64
	contribPlans int64
	groupBuys    int64
	loans        int64
	loansSince   time.Time
	err          error
}

func (s *stubRepo) CountActiveMembers(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	return s.members, s.err
}
func (s *stubRepo) CountActiveContributionPlans(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	return s.contribPlans, s.err
}
func (s *stubRepo) CountActiveGroupBuys(ctx context.Context, cooperativeID uuid.UUID) (int64, error) {
	return s.groupBuys, s.err
}
func (s *stubRepo) CountLoansRequestedSince(ctx context.Context, cooperativeID uuid.UUID, since time.Time) (int64, error) {
	s.loansSince = since
	return s.loans, s.err
}

type stubPlans struct {
	plan *models.Plan
	err  error
}

func (s *stubPlans) EffectivePlan(ctx context.Context, cooperativeID uuid.UUID) (*models.Plan, error) {
	return s.plan, s.err
}

func newUsageService(t *testing.T, repo *stubRepo, plan *models.Plan, planErr error, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:  repo,
		Plans: &stubPlans{plan: plan, err: planErr},
		Now:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestComputeUsageSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 18, 14, 30, 0, 0, time.UTC)
	repo := &stubRepo{members: 12, contribPlans: 3, groupBuys: 2, loans: 4}
	svc := newUsageService(t, repo, &models.Plan{}, nil, now)

	snap, err := svc.ComputeUsage(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("compute usage: %v", err)
	}
	if snap.Members != 12 || snap.ContributionPlans != 3 || snap.GroupBuys != 2 || snap.LoansThisMonth != 4 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	wantSince := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !repo.loansSince.Equal(wantSince) {
		t.Fatalf("expected loans counted from %v, got %v", wantSince, repo.loansSince)
	}
}

func TestComputeUsageRequiresCooperative(t *testing.T) {
	svc := newUsageService(t, &stubRepo{}, &models.Plan{}, nil, time.Now())
	if _, err := svc.ComputeUsage(context.Background(), uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckLimitUnderCap(t *testing.T) {
	plan := &models.Plan{MaxMembers: 25}
	svc := newUsageService(t, &stubRepo{members: 24}, plan, nil, time.Now())

	decision, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitTypeMembers)
	if err != nil {
		t.Fatalf("check limit: %v", err)
	}
	if !decision.Allowed || decision.Current != 24 || decision.Limit != 25 {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if decision.Reason != "" {
		t.Fatalf("allowed decision must carry no reason, got %q", decision.Reason)
	}
}

func TestCheckLimitAtCap(t *testing.T) {
	plan := &models.Plan{MaxMembers: 25}
	svc := newUsageService(t, &stubRepo{members: 25}, plan, nil, time.Now())

	decision, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitTypeMembers)
	if err != nil {
		t.Fatalf("check limit: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial at cap, got %+v", decision)
	}
	if decision.Reason != "your plan allows up to 25 members" {
		t.Fatalf("unexpected denial reason %q", decision.Reason)
	}
}

func TestCheckLimitZeroMeansDisabled(t *testing.T) {
	plan := &models.Plan{MaxLoansPerMonth: 0}
	svc := newUsageService(t, &stubRepo{loans: 0}, plan, nil, time.Now())

	decision, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitTypeLoans)
	if err != nil {
		t.Fatalf("check limit: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected zero limit to disable the feature, got %+v", decision)
	}
	if decision.Reason != "loans per month are not available on your plan" {
		t.Fatalf("unexpected denial reason %q", decision.Reason)
	}
}

func TestCheckLimitUnlimitedSentinel(t *testing.T) {
	plan := &models.Plan{MaxGroupBuys: models.LimitUnlimited}
	svc := newUsageService(t, &stubRepo{groupBuys: 100000}, plan, nil, time.Now())

	decision, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitTypeGroupBuys)
	if err != nil {
		t.Fatalf("check limit: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected unlimited sentinel to allow, got %+v", decision)
	}
}

func TestCheckLimitFailsClosedOnCountError(t *testing.T) {
	plan := &models.Plan{MaxMembers: 25}
	svc := newUsageService(t, &stubRepo{err: errors.New("db down")}, plan, nil, time.Now())

	if _, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitTypeMembers); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestCheckLimitFailsClosedOnPlanError(t *testing.T) {
	svc := newUsageService(t, &stubRepo{}, nil, errors.New("plan lookup failed"), time.Now())

	if _, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitTypeMembers); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestCheckLimitUnknownType(t *testing.T) {
	svc := newUsageService(t, &stubRepo{}, &models.Plan{}, nil, time.Now())

	if _, err := svc.CheckLimit(context.Background(), uuid.New(), enums.LimitType("storage")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
