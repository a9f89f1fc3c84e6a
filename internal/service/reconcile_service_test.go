package service

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/kafka"
	"github.com/pawmed/billing-service/internal/metrics"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

type reconcileFixture struct {
	users        *repository.InMemoryUserRepository
	transactions *repository.InMemoryTransactionRepository
	subs         *repository.InMemorySubscriptionRepository
	gateway      *fakeGateway
	svc          ReconcileService

	user domain.User
	pkg  domain.MinutePackage
	plan domain.Plan
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	log := logger.New(logger.ERROR)

	users := repository.NewInMemoryUserRepository(log)
	transactions := repository.NewInMemoryTransactionRepository(log)
	subs := repository.NewInMemorySubscriptionRepository(log)
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
		ID:               uuid.New(),
		Email:            "owner@example.com",
		StripeCustomerID: "cus_existing",
	})
	require.NoError(t, err)

	catalog := NewCatalogService(catalogRepo, log)
	svc := NewReconcileService(users, transactions, subs, catalog, gateway, kafka.NopProducer{}, metrics.NopMetrics{}, log)

	return &reconcileFixture{
		users:        users,
		transactions: transactions,
		subs:         subs,
		gateway:      gateway,
		svc:          svc,
		user:         user,
		pkg:          pkg,
		plan:         plan,
	}
}

func (f *reconcileFixture) seedMinuteIntent(id, status string) {
	f.gateway.addIntent(&stripe.PaymentIntent{
		ID:         id,
		Status:     status,
		Amount:     f.pkg.Price,
		Currency:   f.pkg.Currency,
		CustomerID: f.user.StripeCustomerID,
		Metadata: map[string]string{
			stripe.MetadataUserIDKey:     f.user.ID.String(),
			stripe.MetadataKindKey:       string(domain.CreditKindMinutes),
			stripe.MetadataSelectorIDKey: f.pkg.ID.String(),
			stripe.MetadataMinutesKey:    strconv.Itoa(f.pkg.Minutes),
		},
	})
}

func (f *reconcileFixture) seedPlanIntent(id string) {
	f.gateway.addIntent(&stripe.PaymentIntent{
		ID:         id,
		Status:     stripe.StatusSucceeded,
		Amount:     f.plan.Price,
		Currency:   f.plan.Currency,
		CustomerID: f.user.StripeCustomerID,
		Metadata: map[string]string{
			stripe.MetadataUserIDKey:     f.user.ID.String(),
			stripe.MetadataKindKey:       string(domain.CreditKindSubscription),
			stripe.MetadataSelectorIDKey: f.plan.ID.String(),
			stripe.MetadataMinutesKey:    strconv.Itoa(f.plan.MinuteGrant),
		},
	})
}

func TestReconcileGrantsMinutes(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", stripe.StatusSucceeded)
	f.gateway.addCharge("pi_1", stripe.Charge{
		ID:              "ch_1",
		PaymentMethodID: "pm_1",
		CardBrand:       "visa",
		CardLast4:       "4242",
	})

	result, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	require.NoError(t, err)

	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, 40, result.MinutesGranted)
	assert.Equal(t, domain.TransactionStatusCompleted, result.Transaction.Status)
	assert.Equal(t, int64(999), result.Transaction.Amount)
	assert.Equal(t, "ch_1", result.Transaction.StripeChargeID)
	assert.Equal(t, "visa", result.Transaction.CardBrand)
	assert.Equal(t, "4242", result.Transaction.CardLast4)

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, user.MinuteBalance)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", stripe.StatusSucceeded)

	first, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	require.NoError(t, err)

	second, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	require.NoError(t, err)

	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, 40, second.MinutesGranted)

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, user.MinuteBalance, "credit must be granted exactly once")
}

func TestReconcileConcurrentCallsGrantOnce(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", stripe.StatusSucceeded)

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, user.MinuteBalance)

	transactions, err := f.transactions.ListByUserID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}

func TestReconcileRejectsUnconfirmedPayment(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", "requires_payment_method")

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	assert.ErrorIs(t, err, domain.ErrPaymentNotCompleted)

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.MinuteBalance)

	transactions, err := f.transactions.ListByUserID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestReconcileRejectsForeignIntent(t *testing.T) {
	f := newReconcileFixture(t)
	f.gateway.addIntent(&stripe.PaymentIntent{
		ID:       "pi_1",
		Status:   stripe.StatusSucceeded,
		Amount:   999,
		Currency: "usd",
		Metadata: map[string]string{
			stripe.MetadataUserIDKey:     uuid.NewString(),
			stripe.MetadataKindKey:       string(domain.CreditKindMinutes),
			stripe.MetadataSelectorIDKey: f.pkg.ID.String(),
		},
	})

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	assert.ErrorIs(t, err, repository.ErrInvalidData)
}

func TestReconcileUnknownIntent(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReconcileActivatesSubscription(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedPlanIntent("pi_plan")

	result, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_plan")
	require.NoError(t, err)
	assert.Equal(t, 300, result.MinutesGranted)
	assert.Equal(t, "Unlimited", result.Transaction.Label)

	sub, err := f.subs.GetByUserID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "Unlimited", sub.PlanLabel)

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, user.MinuteBalance)
	require.NotNil(t, user.SubscriptionStartedAt)
	assert.Equal(t, int64(2900), user.SubscriptionAmount)
}

func TestReconcileSubscriptionUpsertKeepsSingleRow(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedPlanIntent("pi_plan_1")
	f.seedPlanIntent("pi_plan_2")

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_plan_1")
	require.NoError(t, err)

	first, err := f.subs.GetByUserID(context.Background(), f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_plan_2")
	require.NoError(t, err)

	second, err := f.subs.GetByUserID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "renewal must update the existing subscription row")

	user, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 600, user.MinuteBalance, "each plan payment grants its minutes")
}

func TestReconcileAttachesLoosePaymentMethod(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", stripe.StatusSucceeded)
	f.gateway.methods["pm_loose"] = &stripe.PaymentMethod{ID: "pm_loose"}
	f.gateway.addCharge("pi_1", stripe.Charge{
		ID:              "ch_1",
		PaymentMethodID: "pm_loose",
		CardBrand:       "visa",
		CardLast4:       "4242",
	})

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	require.NoError(t, err)

	pm, err := f.gateway.GetPaymentMethod(context.Background(), "pm_loose")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", pm.CustomerID)
	assert.Empty(t, f.gateway.detached, "a loose method needs no detach first")
}

func TestReconcileReattachesStalePaymentMethod(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", stripe.StatusSucceeded)
	f.gateway.methods["pm_stale"] = &stripe.PaymentMethod{
		ID:         "pm_stale",
		CustomerID: "cus_stale_previous",
	}
	f.gateway.addCharge("pi_1", stripe.Charge{
		ID:              "ch_1",
		PaymentMethodID: "pm_stale",
		CardBrand:       "mastercard",
		CardLast4:       "4444",
	})

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	require.NoError(t, err)

	pm, err := f.gateway.GetPaymentMethod(context.Background(), "pm_stale")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", pm.CustomerID, "the card must move off the stale customer")
	assert.Equal(t, []string{"pm_stale"}, f.gateway.detached)
}

func TestReconcileSkipsReattachWhenAlreadyOwned(t *testing.T) {
	f := newReconcileFixture(t)
	f.seedMinuteIntent("pi_1", stripe.StatusSucceeded)
	f.gateway.methods["pm_owned"] = &stripe.PaymentMethod{
		ID:         "pm_owned",
		CustomerID: "cus_existing",
	}
	f.gateway.addCharge("pi_1", stripe.Charge{
		ID:              "ch_1",
		PaymentMethodID: "pm_owned",
	})

	_, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_1")
	require.NoError(t, err)

	assert.Empty(t, f.gateway.detached)
	assert.Empty(t, f.gateway.attachments)
}

func TestReconcileResolvesLegacyMinutesMetadata(t *testing.T) {
	f := newReconcileFixture(t)
	f.gateway.addIntent(&stripe.PaymentIntent{
		ID:       "pi_legacy",
		Status:   stripe.StatusSucceeded,
		Amount:   f.pkg.Price,
		Currency: f.pkg.Currency,
		Metadata: map[string]string{
			stripe.MetadataUserIDKey:  f.user.ID.String(),
			stripe.MetadataMinutesKey: strconv.Itoa(f.pkg.Minutes),
		},
	})

	result, err := f.svc.Reconcile(context.Background(), f.user.ID.String(), "pi_legacy")
	require.NoError(t, err)
	assert.Equal(t, 40, result.MinutesGranted)
}
