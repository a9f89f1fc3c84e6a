package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/pawmed/billing-service/pkg/logger"
)

const (
	// Metadata keys linking Stripe objects back to local state. The
	// reconciliation flow trusts these over anything the client sends.
	MetadataUserIDKey     = "user_id"
	MetadataKindKey       = "kind"
	MetadataSelectorIDKey = "selector_id"
	MetadataMinutesKey    = "minutes"

	// StatusSucceeded is the only intent status that releases credit
	StatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)

	callTimeout = 15 * time.Second
)

// PaymentIntent is the gateway-neutral view of a Stripe payment intent
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	CustomerID   string
	Metadata     map[string]string
}

// Charge is the gateway-neutral view of a Stripe charge
type Charge struct {
	ID              string
	PaymentMethodID string
	CardBrand       string
	CardLast4       string
}

// PaymentMethod is the gateway-neutral view of a Stripe payment method
type PaymentMethod struct {
	ID         string
	CustomerID string // empty when detached
	Brand      string
	Last4      string
	ExpMonth   int
	ExpYear    int
}

// CreateIntentParams carries everything needed to open a payment intent.
// Amount always comes from the catalog resolver, never from a client.
type CreateIntentParams struct {
	Amount         int64
	Currency       string
	CustomerID     string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Client defines the gateway operations the billing service consumes.
type Client interface {
	// CreateCustomer creates a Stripe customer and returns its id.
	CreateCustomer(ctx context.Context, userID, email, name string) (string, error)

	// CreatePaymentIntent opens an intent for a server-computed amount.
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves the authoritative state of an intent.
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)

	// ListCharges returns the charges made under a payment intent.
	ListCharges(ctx context.Context, paymentIntentID string) ([]Charge, error)

	// GetPaymentMethod retrieves a payment method and its current owner.
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)

	// AttachPaymentMethod attaches a payment method to a customer for reuse.
	AttachPaymentMethod(ctx context.Context, id, customerID string) error

	// DetachPaymentMethod detaches a payment method from its current customer.
	DetachPaymentMethod(ctx context.Context, id string) error

	// ListPaymentMethods lists a customer's stored cards.
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
}

// stripeClient implements Client over the official SDK.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewStripeClient creates a new Stripe gateway client.
func NewStripeClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

// CreateCustomer creates a new customer in Stripe.
func (sc *stripeClient) CreateCustomer(ctx context.Context, userID, email, name string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			MetadataUserIDKey: userID,
		},
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = callCtx

	var cus *stripe.Customer
	err := withRetry(callCtx, sc.log, "CreateCustomer", func() error {
		var err error
		cus, err = sc.client.Customers.New(params)
		return err
	})
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", classify(err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

// CreatePaymentIntent opens a payment intent for the given amount.
func (sc *stripeClient) CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (*PaymentIntent, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(p.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Params: stripe.Params{
			Context:  callCtx,
			Metadata: p.Metadata,
		},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if p.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(p.IdempotencyKey)
	}

	var pi *stripe.PaymentIntent
	err := withRetry(callCtx, sc.log, "CreatePaymentIntent", func() error {
		var err error
		pi, err = sc.client.PaymentIntents.New(params)
		return err
	})
	if err != nil {
		logStripeError(sc.log, "CreatePaymentIntent", err)
		return nil, classify(err)
	}

	sc.log.Infow("Stripe payment intent created", "paymentIntentID", pi.ID, "amount", p.Amount, "currency", p.Currency)
	return mapIntent(pi), nil
}

// GetPaymentIntent retrieves a payment intent from Stripe.
func (sc *stripeClient) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = callCtx

	var pi *stripe.PaymentIntent
	err := withRetry(callCtx, sc.log, "GetPaymentIntent", func() error {
		var err error
		pi, err = sc.client.PaymentIntents.Get(id, params)
		return err
	})
	if err != nil {
		logStripeError(sc.log, "GetPaymentIntent", err)
		return nil, classify(err)
	}

	sc.log.Debugw("Stripe payment intent retrieved", "paymentIntentID", pi.ID, "status", string(pi.Status))
	return mapIntent(pi), nil
}

// ListCharges returns the charges made under a payment intent.
func (sc *stripeClient) ListCharges(ctx context.Context, paymentIntentID string) ([]Charge, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.ChargeListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = callCtx

	var charges []Charge
	err := withRetry(callCtx, sc.log, "ListCharges", func() error {
		charges = charges[:0]
		iter := sc.client.Charges.List(params)
		for iter.Next() {
			ch := iter.Charge()
			charge := Charge{
				ID:              ch.ID,
				PaymentMethodID: ch.PaymentMethod,
			}
			if ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
				charge.CardBrand = string(ch.PaymentMethodDetails.Card.Brand)
				charge.CardLast4 = ch.PaymentMethodDetails.Card.Last4
			}
			charges = append(charges, charge)
		}
		return iter.Err()
	})
	if err != nil {
		logStripeError(sc.log, "ListCharges", err)
		return nil, classify(err)
	}

	return charges, nil
}

// GetPaymentMethod retrieves a payment method from Stripe.
func (sc *stripeClient) GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentMethodParams{}
	params.Context = callCtx

	var pm *stripe.PaymentMethod
	err := withRetry(callCtx, sc.log, "GetPaymentMethod", func() error {
		var err error
		pm, err = sc.client.PaymentMethods.Get(id, params)
		return err
	})
	if err != nil {
		logStripeError(sc.log, "GetPaymentMethod", err)
		return nil, classify(err)
	}

	return mapPaymentMethod(pm), nil
}

// AttachPaymentMethod attaches a payment method to a customer.
func (sc *stripeClient) AttachPaymentMethod(ctx context.Context, id, customerID string) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = callCtx

	err := withRetry(callCtx, sc.log, "AttachPaymentMethod", func() error {
		_, err := sc.client.PaymentMethods.Attach(id, params)
		return err
	})
	if err != nil {
		logStripeError(sc.log, "AttachPaymentMethod", err)
		return classify(err)
	}

	sc.log.Infow("Payment method attached", "paymentMethodID", id, "stripeCustomerID", customerID)
	return nil
}

// DetachPaymentMethod detaches a payment method from its current customer.
func (sc *stripeClient) DetachPaymentMethod(ctx context.Context, id string) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentMethodDetachParams{}
	params.Context = callCtx

	err := withRetry(callCtx, sc.log, "DetachPaymentMethod", func() error {
		_, err := sc.client.PaymentMethods.Detach(id, params)
		return err
	})
	if err != nil {
		logStripeError(sc.log, "DetachPaymentMethod", err)
		return classify(err)
	}

	sc.log.Infow("Payment method detached", "paymentMethodID", id)
	return nil
}

// ListPaymentMethods lists a customer's stored cards.
func (sc *stripeClient) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = callCtx

	var methods []PaymentMethod
	err := withRetry(callCtx, sc.log, "ListPaymentMethods", func() error {
		methods = methods[:0]
		iter := sc.client.PaymentMethods.List(params)
		for iter.Next() {
			methods = append(methods, *mapPaymentMethod(iter.PaymentMethod()))
		}
		return iter.Err()
	})
	if err != nil {
		logStripeError(sc.log, "ListPaymentMethods", err)
		return nil, classify(err)
	}

	return methods, nil
}

func mapIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	intent := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if pi.Customer != nil {
		intent.CustomerID = pi.Customer.ID
	}
	return intent
}

func mapPaymentMethod(pm *stripe.PaymentMethod) *PaymentMethod {
	method := &PaymentMethod{
		ID: pm.ID,
	}
	if pm.Customer != nil {
		method.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		method.Brand = string(pm.Card.Brand)
		method.Last4 = pm.Card.Last4
		method.ExpMonth = int(pm.Card.ExpMonth)
		method.ExpYear = int(pm.Card.ExpYear)
	}
	return method
}

// IntentDescription renders the human-visible statement line for a purchase.
func IntentDescription(label string) string {
	return fmt.Sprintf("PawMed: %s", label)
}
