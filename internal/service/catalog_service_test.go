package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

func newCatalogFixture(t *testing.T) (CatalogService, domain.Plan, domain.MinutePackage) {
	t.Helper()
	log := logger.New(logger.ERROR)
	repo := repository.NewInMemoryCatalogRepository(log)

	plan := domain.Plan{
		ID:          uuid.New(),
		Name:        "Unlimited",
		Price:       2900,
		Currency:    "usd",
		Interval:    domain.PlanIntervalMonth,
		MinuteGrant: 300,
		Active:      true,
	}
	repo.AddPlan(plan)
	repo.AddPlan(domain.Plan{
		ID:       uuid.New(),
		Name:     "Legacy",
		Price:    1900,
		Currency: "usd",
		Interval: domain.PlanIntervalMonth,
		Active:   false,
	})

	pkg := domain.MinutePackage{
		ID:       uuid.New(),
		Minutes:  40,
		Price:    999,
		Currency: "usd",
		Active:   true,
	}
	repo.AddMinutePackage(pkg)

	return NewCatalogService(repo, log), plan, pkg
}

func TestResolvePlanByName(t *testing.T) {
	svc, plan, _ := newCatalogFixture(t)

	selection, err := svc.Resolve(context.Background(), domain.Selector{PlanRef: "Unlimited"})
	require.NoError(t, err)

	assert.Equal(t, domain.CreditKindSubscription, selection.Kind)
	assert.Equal(t, plan.ID, selection.SelectorID)
	assert.Equal(t, int64(2900), selection.Amount)
	assert.Equal(t, 300, selection.Minutes)
}

func TestResolvePlanByID(t *testing.T) {
	svc, plan, _ := newCatalogFixture(t)

	selection, err := svc.Resolve(context.Background(), domain.Selector{PlanRef: plan.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, selection.SelectorID)
}

func TestResolveInactivePlanRejected(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	_, err := svc.Resolve(context.Background(), domain.Selector{PlanRef: "Legacy"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResolveMinutes(t *testing.T) {
	svc, _, pkg := newCatalogFixture(t)

	selection, err := svc.Resolve(context.Background(), domain.Selector{Minutes: 40})
	require.NoError(t, err)

	assert.Equal(t, domain.CreditKindMinutes, selection.Kind)
	assert.Equal(t, pkg.ID, selection.SelectorID)
	assert.Equal(t, int64(999), selection.Amount)
	assert.Equal(t, "40 minutes", selection.Label)
}

func TestResolveUnknownMinutes(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	_, err := svc.Resolve(context.Background(), domain.Selector{Minutes: 55})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResolveEmptySelector(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	_, err := svc.Resolve(context.Background(), domain.Selector{})
	assert.ErrorIs(t, err, repository.ErrInvalidData)
}

func TestResolveFromMetadataSelectorID(t *testing.T) {
	svc, plan, _ := newCatalogFixture(t)

	selection, err := svc.ResolveFromMetadata(context.Background(), map[string]string{
		stripe.MetadataKindKey:       string(domain.CreditKindSubscription),
		stripe.MetadataSelectorIDKey: plan.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, selection.SelectorID)
	assert.Equal(t, int64(2900), selection.Amount)
}

func TestResolveFromMetadataMinutesFallback(t *testing.T) {
	svc, _, pkg := newCatalogFixture(t)

	selection, err := svc.ResolveFromMetadata(context.Background(), map[string]string{
		stripe.MetadataMinutesKey: "40",
	})
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, selection.SelectorID)
	assert.Equal(t, 40, selection.Minutes)
}

func TestResolveFromMetadataEmpty(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	_, err := svc.ResolveFromMetadata(context.Background(), map[string]string{})
	assert.ErrorIs(t, err, repository.ErrInvalidData)
}
