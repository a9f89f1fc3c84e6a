package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CatalogService resolves purchase selectors against the catalog. All prices
// and minute grants come out of here; client-supplied amounts are never used.
type CatalogService interface {
	// Resolve maps a selector to its authoritative price and credit.
	// Inactive entries and unknown references resolve to ErrNotFound.
	Resolve(ctx context.Context, selector domain.Selector) (domain.Selection, error)

	// ResolveFromMetadata rebuilds a selection from gateway intent metadata.
	// Used during reconciliation so the credit granted always reflects the
	// catalog entry the intent was opened for.
	ResolveFromMetadata(ctx context.Context, metadata map[string]string) (domain.Selection, error)

	ListPlans(ctx context.Context) ([]domain.Plan, error)
	ListMinutePackages(ctx context.Context) ([]domain.MinutePackage, error)
}

type catalogService struct {
	repo repository.CatalogRepository
	log  *logger.Logger
}

// NewCatalogService creates a new catalog resolution service
func NewCatalogService(repo repository.CatalogRepository, log *logger.Logger) CatalogService {
	return &catalogService{
		repo: repo,
		log:  log,
	}
}

func (s *catalogService) Resolve(ctx context.Context, selector domain.Selector) (domain.Selection, error) {
	switch {
	case selector.PlanRef != "" && selector.Minutes != 0:
		s.log.Warn("Selector sets both planRef and minutes")
		return domain.Selection{}, repository.ErrInvalidData
	case selector.PlanRef != "":
		return s.resolvePlan(ctx, selector.PlanRef)
	case selector.Minutes > 0:
		return s.resolveMinutes(ctx, selector.Minutes)
	default:
		s.log.Warn("Empty purchase selector")
		return domain.Selection{}, repository.ErrInvalidData
	}
}

// resolvePlan accepts either a plan id or a plan display name.
func (s *catalogService) resolvePlan(ctx context.Context, ref string) (domain.Selection, error) {
	var (
		plan domain.Plan
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		plan, err = s.repo.GetPlanByID(ctx, id)
	} else {
		plan, err = s.repo.GetPlanByName(ctx, ref)
	}
	if err != nil {
		return domain.Selection{}, err
	}
	if !plan.Active {
		s.log.Warn("Plan %s is inactive, rejecting selector", plan.ID)
		return domain.Selection{}, repository.ErrNotFound
	}

	return domain.Selection{
		Kind:       domain.CreditKindSubscription,
		SelectorID: plan.ID,
		Label:      plan.Name,
		Amount:     plan.Price,
		Currency:   plan.Currency,
		Minutes:    plan.MinuteGrant,
	}, nil
}

func (s *catalogService) resolveMinutes(ctx context.Context, minutes int) (domain.Selection, error) {
	pkg, err := s.repo.GetMinutePackageByMinutes(ctx, minutes)
	if err != nil {
		return domain.Selection{}, err
	}
	if !pkg.Active {
		s.log.Warn("Minute package %s is inactive, rejecting selector", pkg.ID)
		return domain.Selection{}, repository.ErrNotFound
	}

	return selectionFromPackage(pkg), nil
}

func (s *catalogService) ResolveFromMetadata(ctx context.Context, metadata map[string]string) (domain.Selection, error) {
	if id, err := uuid.Parse(metadata[stripe.MetadataSelectorIDKey]); err == nil {
		switch domain.CreditKind(metadata[stripe.MetadataKindKey]) {
		case domain.CreditKindSubscription:
			plan, err := s.repo.GetPlanByID(ctx, id)
			if err != nil {
				return domain.Selection{}, err
			}
			return domain.Selection{
				Kind:       domain.CreditKindSubscription,
				SelectorID: plan.ID,
				Label:      plan.Name,
				Amount:     plan.Price,
				Currency:   plan.Currency,
				Minutes:    plan.MinuteGrant,
			}, nil
		case domain.CreditKindMinutes:
			pkg, err := s.repo.GetMinutePackageByID(ctx, id)
			if err != nil {
				return domain.Selection{}, err
			}
			return selectionFromPackage(pkg), nil
		}
	}

	// Older intents carried only the minute count
	if raw, ok := metadata[stripe.MetadataMinutesKey]; ok {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			s.log.Warn("Unparseable minutes metadata: %q", raw)
			return domain.Selection{}, repository.ErrInvalidData
		}
		pkg, err := s.repo.GetMinutePackageByMinutes(ctx, minutes)
		if err != nil {
			return domain.Selection{}, err
		}
		return selectionFromPackage(pkg), nil
	}

	s.log.Warn("Payment intent metadata identifies no catalog entry")
	return domain.Selection{}, repository.ErrInvalidData
}

func (s *catalogService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.repo.ListActivePlans(ctx)
}

func (s *catalogService) ListMinutePackages(ctx context.Context) ([]domain.MinutePackage, error) {
	return s.repo.ListActiveMinutePackages(ctx)
}

func selectionFromPackage(pkg domain.MinutePackage) domain.Selection {
	return domain.Selection{
		Kind:       domain.CreditKindMinutes,
		SelectorID: pkg.ID,
		Label:      strconv.Itoa(pkg.Minutes) + " minutes",
		Amount:     pkg.Price,
		Currency:   pkg.Currency,
		Minutes:    pkg.Minutes,
	}
}
