package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/metrics"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

type checkoutFixture struct {
	users   *repository.InMemoryUserRepository
	gateway *fakeGateway
	svc     CheckoutService

	user domain.User
	pkg  domain.MinutePackage
	plan domain.Plan
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	log := logger.New(logger.ERROR)

	users := repository.NewInMemoryUserRepository(log)
	catalogRepo := repository.NewInMemoryCatalogRepository(log)
	gateway := newFakeGateway()

	pkg := domain.MinutePackage{
		ID:       uuid.New(),
		Minutes:  40,
		Price:    999,
		Currency: "usd",
		Active:   true,
	}
	catalogRepo.AddMinutePackage(pkg)

	plan := domain.Plan{
		ID:          uuid.New(),
		Name:        "Unlimited",
		Price:       2900,
		Currency:    "usd",
		Interval:    domain.PlanIntervalMonth,
		MinuteGrant: 300,
		Active:      true,
	}
	catalogRepo.AddPlan(plan)

	user, err := users.Create(context.Background(), domain.User{
		ID:    uuid.New(),
		Email: "buyer@example.com",
	})
	require.NoError(t, err)

	catalog := NewCatalogService(catalogRepo, log)
	svc := NewCheckoutService(users, catalog, gateway, metrics.NopMetrics{}, log)

	return &checkoutFixture{
		users:   users,
		gateway: gateway,
		svc:     svc,
		user:    user,
		pkg:     pkg,
		plan:    plan,
	}
}

func TestCreateIntentUsesCatalogPrice(t *testing.T) {
	f := newCheckoutFixture(t)

	intent, err := f.svc.CreateIntent(context.Background(), f.user.ID.String(), domain.Selector{Minutes: 40})
	require.NoError(t, err)

	assert.Equal(t, int64(999), intent.Amount)
	assert.Equal(t, "usd", intent.Currency)
	assert.Equal(t, "40 minutes", intent.Label)
	assert.NotEmpty(t, intent.ClientSecret)

	require.Len(t, f.gateway.intentsCreated, 1)
	params := f.gateway.intentsCreated[0]
	assert.Equal(t, int64(999), params.Amount)
	assert.Equal(t, f.user.ID.String(), params.Metadata[stripe.MetadataUserIDKey])
	assert.Equal(t, string(domain.CreditKindMinutes), params.Metadata[stripe.MetadataKindKey])
	assert.Equal(t, f.pkg.ID.String(), params.Metadata[stripe.MetadataSelectorIDKey])
	assert.Equal(t, "40", params.Metadata[stripe.MetadataMinutesKey])
}

func TestCreateIntentCreatesCustomerOnce(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), f.user.ID.String(), domain.Selector{Minutes: 40})
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.customersCreated)

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, user.StripeCustomerID)

	_, err = f.svc.CreateIntent(context.Background(), f.user.ID.String(), domain.Selector{PlanRef: "Unlimited"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.customersCreated, "customer is created lazily, once")
}

func TestCreateIntentForPlanByName(t *testing.T) {
	f := newCheckoutFixture(t)

	intent, err := f.svc.CreateIntent(context.Background(), f.user.ID.String(), domain.Selector{PlanRef: "Unlimited"})
	require.NoError(t, err)

	assert.Equal(t, int64(2900), intent.Amount)
	assert.Equal(t, "Unlimited", intent.Label)

	params := f.gateway.intentsCreated[len(f.gateway.intentsCreated)-1]
	assert.Equal(t, string(domain.CreditKindSubscription), params.Metadata[stripe.MetadataKindKey])
	assert.Equal(t, f.plan.ID.String(), params.Metadata[stripe.MetadataSelectorIDKey])
}

func TestCreateIntentUnknownSelector(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), f.user.ID.String(), domain.Selector{Minutes: 999})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.gateway.intentsCreated, "no intent may be opened for an unknown selector")
}

func TestCreateIntentRejectsAmbiguousSelector(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), f.user.ID.String(), domain.Selector{PlanRef: "Unlimited", Minutes: 40})
	assert.ErrorIs(t, err, repository.ErrInvalidData)
}

func TestCreateIntentInvalidUserID(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), "not-a-uuid", domain.Selector{Minutes: 40})
	assert.ErrorIs(t, err, repository.ErrInvalidData)
}
