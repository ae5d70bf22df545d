package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	"github.com/coopvest/coopvest-backend/pkg/enums"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/google/uuid"
)

type planResolver interface {
	EffectivePlan(ctx context.Context, cooperativeID uuid.UUID) (*models.Plan, error)
}

// Snapshot is a point-in-time view of a cooperative's resource usage.
// Counts are recomputed from the authoritative records on every call.
type Snapshot struct {
	Members           int64 `json:"members"`
	ContributionPlans int64 `json:"contribution_plans"`
	GroupBuys         int64 `json:"group_buys"`
	LoansThisMonth    int64 `json:"loans_this_month"`
}

// LimitDecision reports whether one more unit of a resource is allowed.
// Reason carries the denial message shown to the admin; it is empty when the
// action is allowed.
type LimitDecision struct {
	Type    enums.LimitType `json:"type"`
	Allowed bool            `json:"allowed"`
	Current int64           `json:"current"`
	Limit   int             `json:"limit"`
	Reason  string          `json:"reason,omitempty"`
}

// ServiceParams groups dependencies for the usage accounting service.
type ServiceParams struct {
	Repo  Repository
	Plans planResolver
	Now   func() time.Time
}

// Service computes usage snapshots and enforces plan limits.
type Service struct {
	repo  Repository
	plans planResolver
	now   func() time.Time
}

// NewService builds a usage accounting service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan resolver is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:  params.Repo,
		plans: params.Plans,
		now:   now,
	}, nil
}

// ComputeUsage counts the cooperative's live records across every limited
// resource. Loans are scoped to the current UTC calendar month.
func (s *Service) ComputeUsage(ctx context.Context, cooperativeID uuid.UUID) (*Snapshot, error) {
	if cooperativeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooperative id is required")
	}

	members, err := s.repo.CountActiveMembers(ctx, cooperativeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting members")
	}
	contribPlans, err := s.repo.CountActiveContributionPlans(ctx, cooperativeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting contribution plans")
	}
	groupBuys, err := s.repo.CountActiveGroupBuys(ctx, cooperativeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting group buys")
	}
	loans, err := s.repo.CountLoansRequestedSince(ctx, cooperativeID, monthStart(s.now()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting loans")
	}

	return &Snapshot{
		Members:           members,
		ContributionPlans: contribPlans,
		GroupBuys:         groupBuys,
		LoansThisMonth:    loans,
	}, nil
}

// CheckLimit decides whether the cooperative may create one more record of
// the given type under its effective plan. Any failure to resolve the plan
// or count usage denies the action rather than allowing a limit breach.
func (s *Service) CheckLimit(ctx context.Context, cooperativeID uuid.UUID, limitType enums.LimitType) (*LimitDecision, error) {
	if cooperativeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooperative id is required")
	}
	if !limitType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown limit type %q", limitType))
	}

	plan, err := s.plans.EffectivePlan(ctx, cooperativeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving effective plan")
	}

	current, err := s.countFor(ctx, cooperativeID, limitType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting usage")
	}

	limit := limitFor(plan, limitType)
	decision := &LimitDecision{
		Type:    limitType,
		Current: current,
		Limit:   limit,
	}
	switch {
	case limit == models.LimitUnlimited:
		decision.Allowed = true
	case limit <= 0:
		decision.Allowed = false
		decision.Reason = fmt.Sprintf("%s are not available on your plan", limitType.Label())
	default:
		decision.Allowed = current < int64(limit)
		if !decision.Allowed {
			decision.Reason = fmt.Sprintf("your plan allows up to %d %s", limit, limitType.Label())
		}
	}
	return decision, nil
}

func (s *Service) countFor(ctx context.Context, cooperativeID uuid.UUID, limitType enums.LimitType) (int64, error) {
	switch limitType {
	case enums.LimitTypeMembers:
		return s.repo.CountActiveMembers(ctx, cooperativeID)
	case enums.LimitTypeContributionPlans:
		return s.repo.CountActiveContributionPlans(ctx, cooperativeID)
	case enums.LimitTypeGroupBuys:
		return s.repo.CountActiveGroupBuys(ctx, cooperativeID)
	case enums.LimitTypeLoans:
		return s.repo.CountLoansRequestedSince(ctx, cooperativeID, monthStart(s.now()))
	default:
		return 0, fmt.Errorf("unknown limit type %q", limitType)
	}
}

func limitFor(plan *models.Plan, limitType enums.LimitType) int {
	switch limitType {
	case enums.LimitTypeMembers:
		return plan.MaxMembers
	case enums.LimitTypeContributionPlans:
		return plan.MaxContributionPlans
	case enums.LimitTypeGroupBuys:
		return plan.MaxGroupBuys
	case enums.LimitTypeLoans:
		return plan.MaxLoansPerMonth
	default:
		return 0
	}
}

func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
