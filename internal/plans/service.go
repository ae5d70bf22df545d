package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coopvest/coopvest-backend/pkg/db/models"
	pkgerrors "github.com/coopvest/coopvest-backend/pkg/errors"
	"github.com/google/uuid"
)

// ServiceParams groups dependencies for the plan catalog service.
type ServiceParams struct {
	Repo         Repository
	FreePlanCode string
}

// Service exposes the plan catalog.
type Service struct {
	repo         Repository
	freePlanCode string
}

// NewService builds a plan catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	code := strings.TrimSpace(params.FreePlanCode)
	if code == "" {
		code = "free"
	}
	return &Service{
		repo:         params.Repo,
		freePlanCode: code,
	}, nil
}

// ListActive returns the selectable plans ordered for display.
func (s *Service) ListActive(ctx context.Context) ([]models.Plan, error) {
	active := true
	plans, err := s.repo.List(ctx, ListPlansQuery{IsActive: &active})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing plans")
	}
	return plans, nil
}

// Get resolves a plan by id regardless of its active flag. Existing
// subscribers keep entitlements on deactivated plans.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %s not found", id))
	}
	return plan, nil
}

// GetByCode resolves a plan by its machine name.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code is required")
	}
	plan, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding plan by code")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %q not found", code))
	}
	return plan, nil
}

// FreePlan resolves the designated zero-price fallback plan.
func (s *Service) FreePlan(ctx context.Context) (*models.Plan, error) {
	plan, err := s.repo.FindByCode(ctx, s.freePlanCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding free plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("free plan %q is not seeded", s.freePlanCode))
	}
	return plan, nil
}
