package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubRepo struct {
	listFn       func(ctx context.Context, params ListPlansQuery) ([]models.Plan, error)
	findByIDFn   func(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	findByCodeFn func(ctx context.Context, code string) (*models.Plan, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, plan *models.Plan) error {
	return nil
}
func (s *stubRepo) Update(ctx context.Context, plan *models.Plan) error {
	return nil
}
func (s *stubRepo) List(ctx context.Context, params ListPlansQuery) ([]models.Plan, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, nil
}
func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (s *stubRepo) FindByCode(ctx context.Context, code string) (*models.Plan, error) {
	if s.findByCodeFn != nil {
		return s.findByCodeFn(ctx, code)
	}
	return nil, nil
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error when repo is missing")
	}
}

func TestListActiveFiltersInactive(t *testing.T) {
	var gotParams ListPlansQuery
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{
		listFn: func(ctx context.Context, params ListPlansQuery) ([]models.Plan, error) {
			gotParams = params
			return []models.Plan{{Code: "free"}, {Code: "basic"}}, nil
		},
	}})

	plans, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if gotParams.IsActive == nil || !*gotParams.IsActive {
		t.Fatal("expected query scoped to active plans")
	}
}

func TestGetNotFound(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}})
	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestGetReturnsInactivePlan(t *testing.T) {
	planID := uuid.New()
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
			return &models.Plan{ID: id, Code: "legacy", IsActive: false}, nil
		},
	}})

	plan, err := svc.Get(context.Background(), planID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if plan.Code != "legacy" {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestGetByCodeValidation(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}})
	if _, err := svc.GetByCode(context.Background(), "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFreePlanMissingSeed(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}, FreePlanCode: "free"})
	_, err := svc.FreePlan(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestFreePlanUsesConfiguredCode(t *testing.T) {
	var gotCode string
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Plan, error) {
			gotCode = code
			return &models.Plan{Code: code}, nil
		},
	}, FreePlanCode: "starter"})

	plan, err := svc.FreePlan(context.Background())
	if err != nil {
		t.Fatalf("free plan: %v", err)
	}
	if gotCode != "starter" || plan.Code != "starter" {
		t.Fatalf("expected configured free code, got %q", gotCode)
	}
}

func TestListActivePropagatesRepoError(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{
		listFn: func(ctx context.Context, params ListPlansQuery) ([]models.Plan, error) {
			return nil, errors.New("boom")
		},
	}})

	if _, err := svc.ListActive(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
