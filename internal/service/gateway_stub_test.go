package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
)

// fakeGateway is an in-memory stand-in for the Stripe client.
type fakeGateway struct {
	mu sync.Mutex

	intents map[string]*stripe.PaymentIntent
	charges map[string][]stripe.Charge
	methods map[string]*stripe.PaymentMethod

	customersCreated int
	intentsCreated   []stripe.CreateIntentParams
	attachments      map[string]string
	detached         []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		intents:     make(map[string]*stripe.PaymentIntent),
		charges:     make(map[string][]stripe.Charge),
		methods:     make(map[string]*stripe.PaymentMethod),
		attachments: make(map[string]string),
	}
}

func (g *fakeGateway) addIntent(intent *stripe.PaymentIntent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intent.ID] = intent
}

func (g *fakeGateway) addCharge(paymentIntentID string, charge stripe.Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[paymentIntentID] = append(g.charges[paymentIntentID], charge)
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, userID, email, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customersCreated++
	return fmt.Sprintf("cus_test_%d", g.customersCreated), nil
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, params stripe.CreateIntentParams) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intentsCreated = append(g.intentsCreated, params)
	intent := &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%d", len(g.intentsCreated)),
		ClientSecret: "secret_test",
		Status:       "requires_payment_method",
		Amount:       params.Amount,
		Currency:     params.Currency,
		CustomerID:   params.CustomerID,
		Metadata:     params.Metadata,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return intent, nil
}

func (g *fakeGateway) ListCharges(ctx context.Context, paymentIntentID string) ([]stripe.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges[paymentIntentID], nil
}

func (g *fakeGateway) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pm, ok := g.methods[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return pm, nil
}

func (g *fakeGateway) AttachPaymentMethod(ctx context.Context, id, customerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachments[id] = customerID
	if pm, ok := g.methods[id]; ok {
		pm.CustomerID = customerID
	}
	return nil
}

func (g *fakeGateway) DetachPaymentMethod(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detached = append(g.detached, id)
	delete(g.attachments, id)
	if pm, ok := g.methods[id]; ok {
		pm.CustomerID = ""
	}
	return nil
}

func (g *fakeGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]stripe.PaymentMethod, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []stripe.PaymentMethod
	for _, pm := range g.methods {
		if pm.CustomerID == customerID {
			out = append(out, *pm)
		}
	}
	return out, nil
}
