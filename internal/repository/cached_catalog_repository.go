package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CachedCatalogRepository decorates a CatalogRepository with a Redis cache.
// Cache failures are logged and degrade to the underlying store; the catalog
// is the price authority, so correctness never depends on the cache.
type CachedCatalogRepository struct {
	base  CatalogRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedCatalogRepository creates a caching decorator over base
func NewCachedCatalogRepository(base CatalogRepository, cache *RedisCacheRepository, log *logger.Logger) *CachedCatalogRepository {
	return &CachedCatalogRepository{
		base:  base,
		cache: cache,
		log:   log,
	}
}

// GetPlanByID returns a plan by id, preferring the cache
func (r *CachedCatalogRepository) GetPlanByID(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	key := planKeyPrefix + id.String()

	var plan domain.Plan
	err := r.cache.Get(ctx, key, &plan)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.Warnw("Catalog cache read failed, falling back to store", "key", key, "error", err)
	}

	plan, err = r.base.GetPlanByID(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}

	if err := r.cache.Set(ctx, key, plan); err != nil {
		r.log.Warnw("Failed to cache plan", "key", key, "error", err)
	}

	return plan, nil
}

// GetPlanByName returns a plan by display name, preferring the cache
func (r *CachedCatalogRepository) GetPlanByName(ctx context.Context, name string) (domain.Plan, error) {
	key := planNameKeyPrefix + name

	var plan domain.Plan
	err := r.cache.Get(ctx, key, &plan)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.Warnw("Catalog cache read failed, falling back to store", "key", key, "error", err)
	}

	plan, err = r.base.GetPlanByName(ctx, name)
	if err != nil {
		return domain.Plan{}, err
	}

	if err := r.cache.Set(ctx, key, plan); err != nil {
		r.log.Warnw("Failed to cache plan", "key", key, "error", err)
	}

	return plan, nil
}

// GetMinutePackageByID returns a minute package by id, preferring the cache
func (r *CachedCatalogRepository) GetMinutePackageByID(ctx context.Context, id uuid.UUID) (domain.MinutePackage, error) {
	key := packageKeyPrefix + id.String()

	var pkg domain.MinutePackage
	err := r.cache.Get(ctx, key, &pkg)
	if err == nil {
		return pkg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.Warnw("Catalog cache read failed, falling back to store", "key", key, "error", err)
	}

	pkg, err = r.base.GetMinutePackageByID(ctx, id)
	if err != nil {
		return domain.MinutePackage{}, err
	}

	if err := r.cache.Set(ctx, key, pkg); err != nil {
		r.log.Warnw("Failed to cache minute package", "key", key, "error", err)
	}

	return pkg, nil
}

// GetMinutePackageByMinutes returns the package for a minute quantity, preferring the cache
func (r *CachedCatalogRepository) GetMinutePackageByMinutes(ctx context.Context, minutes int) (domain.MinutePackage, error) {
	key := fmt.Sprintf("%s%d", packageMinKeyPrefix, minutes)

	var pkg domain.MinutePackage
	err := r.cache.Get(ctx, key, &pkg)
	if err == nil {
		return pkg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.Warnw("Catalog cache read failed, falling back to store", "key", key, "error", err)
	}

	pkg, err = r.base.GetMinutePackageByMinutes(ctx, minutes)
	if err != nil {
		return domain.MinutePackage{}, err
	}

	if err := r.cache.Set(ctx, key, pkg); err != nil {
		r.log.Warnw("Failed to cache minute package", "key", key, "error", err)
	}

	return pkg, nil
}

// ListActivePlans always hits the store; listings are cheap and admin edits
// should show up immediately on the pricing page
func (r *CachedCatalogRepository) ListActivePlans(ctx context.Context) ([]domain.Plan, error) {
	return r.base.ListActivePlans(ctx)
}

// ListActiveMinutePackages always hits the store
func (r *CachedCatalogRepository) ListActiveMinutePackages(ctx context.Context) ([]domain.MinutePackage, error) {
	return r.base.ListActiveMinutePackages(ctx)
}
