package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CatalogRepository is the read-only lookup over plans and minute packages.
// The catalog is owned by the admin system; this service never writes it.
type CatalogRepository interface {
	GetPlanByID(ctx context.Context, id uuid.UUID) (domain.Plan, error)
	GetPlanByName(ctx context.Context, name string) (domain.Plan, error)
	GetMinutePackageByID(ctx context.Context, id uuid.UUID) (domain.MinutePackage, error)
	GetMinutePackageByMinutes(ctx context.Context, minutes int) (domain.MinutePackage, error)
	ListActivePlans(ctx context.Context) ([]domain.Plan, error)
	ListActiveMinutePackages(ctx context.Context) ([]domain.MinutePackage, error)
}

// InMemoryCatalogRepository is the in-memory CatalogRepository used in tests
type InMemoryCatalogRepository struct {
	plans    map[uuid.UUID]domain.Plan
	packages map[uuid.UUID]domain.MinutePackage
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryCatalogRepository creates a new in-memory catalog repository
func NewInMemoryCatalogRepository(log *logger.Logger) *InMemoryCatalogRepository {
	return &InMemoryCatalogRepository{
		plans:    make(map[uuid.UUID]domain.Plan),
		packages: make(map[uuid.UUID]domain.MinutePackage),
		log:      log,
	}
}

// AddPlan seeds a plan; test helper, not part of CatalogRepository
func (r *InMemoryCatalogRepository) AddPlan(plan domain.Plan) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.plans[plan.ID] = plan
}

// AddMinutePackage seeds a package; test helper, not part of CatalogRepository
func (r *InMemoryCatalogRepository) AddMinutePackage(pkg domain.MinutePackage) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.packages[pkg.ID] = pkg
}

// GetPlanByID returns a plan by its id
func (r *InMemoryCatalogRepository) GetPlanByID(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plan, exists := r.plans[id]
	if !exists {
		return domain.Plan{}, ErrNotFound
	}

	return plan, nil
}

// GetPlanByName returns a plan by its display name
func (r *InMemoryCatalogRepository) GetPlanByName(ctx context.Context, name string) (domain.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, plan := range r.plans {
		if plan.Name == name {
			return plan, nil
		}
	}

	return domain.Plan{}, ErrNotFound
}

// GetMinutePackageByID returns a minute package by its id
func (r *InMemoryCatalogRepository) GetMinutePackageByID(ctx context.Context, id uuid.UUID) (domain.MinutePackage, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	pkg, exists := r.packages[id]
	if !exists {
		return domain.MinutePackage{}, ErrNotFound
	}

	return pkg, nil
}

// GetMinutePackageByMinutes returns the package granting exactly the given minutes
func (r *InMemoryCatalogRepository) GetMinutePackageByMinutes(ctx context.Context, minutes int) (domain.MinutePackage, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, pkg := range r.packages {
		if pkg.Minutes == minutes {
			return pkg, nil
		}
	}

	return domain.MinutePackage{}, ErrNotFound
}

// ListActivePlans returns active plans in display order
func (r *InMemoryCatalogRepository) ListActivePlans(ctx context.Context) ([]domain.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var plans []domain.Plan
	for _, plan := range r.plans {
		if plan.Active {
			plans = append(plans, plan)
		}
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].DisplayOrder < plans[j].DisplayOrder
	})

	return plans, nil
}

// ListActiveMinutePackages returns active packages ordered by size
func (r *InMemoryCatalogRepository) ListActiveMinutePackages(ctx context.Context) ([]domain.MinutePackage, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var pkgs []domain.MinutePackage
	for _, pkg := range r.packages {
		if pkg.Active {
			pkgs = append(pkgs, pkg)
		}
	}

	sort.Slice(pkgs, func(i, j int) bool {
		return pkgs[i].Minutes < pkgs[j].Minutes
	})

	return pkgs, nil
}
