package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/metrics"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CheckoutIntent is what the client needs to confirm a payment.
type CheckoutIntent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	CustomerID      string `json:"customer_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Label           string `json:"label"`
}

// CheckoutService opens payment intents for catalog purchases.
type CheckoutService interface {
	// CreateIntent resolves the selector, ensures the user has a gateway
	// customer, and opens an intent tagged with enough metadata to
	// reconcile it later without trusting the client.
	CreateIntent(ctx context.Context, userID string, selector domain.Selector) (CheckoutIntent, error)
}

type checkoutService struct {
	users   repository.UserRepository
	catalog CatalogService
	gateway stripe.Client
	metrics metrics.BillingMetrics
	log     *logger.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	users repository.UserRepository,
	catalog CatalogService,
	gateway stripe.Client,
	m metrics.BillingMetrics,
	log *logger.Logger,
) CheckoutService {
	return &checkoutService{
		users:   users,
		catalog: catalog,
		gateway: gateway,
		metrics: m,
		log:     log,
	}
}

func (s *checkoutService) CreateIntent(ctx context.Context, userID string, selector domain.Selector) (CheckoutIntent, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return CheckoutIntent{}, repository.ErrInvalidData
	}

	selection, err := s.catalog.Resolve(ctx, selector)
	if err != nil {
		return CheckoutIntent{}, err
	}

	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return CheckoutIntent{}, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return CheckoutIntent{}, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, stripe.CreateIntentParams{
		Amount:      selection.Amount,
		Currency:    selection.Currency,
		CustomerID:  customerID,
		Description: stripe.IntentDescription(selection.Label),
		Metadata: map[string]string{
			stripe.MetadataUserIDKey:     user.ID.String(),
			stripe.MetadataKindKey:       string(selection.Kind),
			stripe.MetadataSelectorIDKey: selection.SelectorID.String(),
			stripe.MetadataMinutesKey:    strconv.Itoa(selection.Minutes),
		},
	})
	if err != nil {
		return CheckoutIntent{}, err
	}

	s.metrics.IncIntentCreated(string(selection.Kind))
	s.log.Infow("Checkout intent opened",
		"userID", user.ID,
		"paymentIntentID", intent.ID,
		"kind", string(selection.Kind),
		"label", selection.Label,
		"amount", selection.Amount,
	)

	return CheckoutIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		CustomerID:      customerID,
		Amount:          selection.Amount,
		Currency:        selection.Currency,
		Label:           selection.Label,
	}, nil
}

// ensureCustomer lazily creates the gateway customer on first purchase.
// Concurrent first purchases race to SetStripeCustomerID; the loser adopts
// the winner's id and its own Stripe customer stays unused.
func (s *checkoutService) ensureCustomer(ctx context.Context, user domain.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	created, err := s.gateway.CreateCustomer(ctx, user.ID.String(), user.Email, user.Name)
	if err != nil {
		return "", err
	}

	customerID, err := s.users.SetStripeCustomerID(ctx, user.ID, created)
	if err != nil {
		return "", err
	}
	if customerID != created {
		s.log.Warn("Lost customer creation race for user %s, using %s", user.ID, customerID)
	}
	return customerID, nil
}
