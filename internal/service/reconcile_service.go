package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/kafka"
	"github.com/pawmed/billing-service/internal/metrics"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

// ReconcileResult reports what a reconciliation call settled on.
type ReconcileResult struct {
	Transaction      domain.Transaction `json:"transaction"`
	MinutesGranted   int                `json:"minutes_granted"`
	AlreadyProcessed bool               `json:"already_processed"`
}

// ReconcileService turns confirmed gateway payments into credit. The client
// report is only a hint: status, amount and credit all come from the gateway
// and the catalog. Safe to call any number of times per payment.
type ReconcileService interface {
	Reconcile(ctx context.Context, userID, paymentIntentID string) (ReconcileResult, error)
}

type reconcileService struct {
	users        repository.UserRepository
	transactions repository.TransactionRepository
	subs         repository.SubscriptionRepository
	catalog      CatalogService
	gateway      stripe.Client
	producer     kafka.Producer
	metrics      metrics.BillingMetrics
	log          *logger.Logger
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(
	users repository.UserRepository,
	transactions repository.TransactionRepository,
	subs repository.SubscriptionRepository,
	catalog CatalogService,
	gateway stripe.Client,
	producer kafka.Producer,
	m metrics.BillingMetrics,
	log *logger.Logger,
) ReconcileService {
	return &reconcileService{
		users:        users,
		transactions: transactions,
		subs:         subs,
		catalog:      catalog,
		gateway:      gateway,
		producer:     producer,
		metrics:      m,
		log:          log,
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, userID, paymentIntentID string) (ReconcileResult, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return ReconcileResult{}, repository.ErrInvalidData
	}
	if paymentIntentID == "" {
		return ReconcileResult{}, repository.ErrInvalidData
	}

	// Fast idempotency path: a completed transaction for this intent means
	// credit was already granted, so report the stored outcome.
	if existing, err := s.transactions.GetByPaymentIntentID(ctx, paymentIntentID); err == nil {
		s.log.Info("Payment intent %s already reconciled as transaction %s", paymentIntentID, existing.ID)
		s.metrics.IncReconcileDuplicate()
		return ReconcileResult{
			Transaction:      existing,
			MinutesGranted:   existing.MinutesGranted,
			AlreadyProcessed: true,
		}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return ReconcileResult{}, err
	}

	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return ReconcileResult{}, err
	}

	// The gateway is the source of truth for payment status
	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return ReconcileResult{}, err
	}
	if intent.Status != stripe.StatusSucceeded {
		s.log.Warn("Payment intent %s is %s, not succeeded; no credit", paymentIntentID, intent.Status)
		s.metrics.IncReconcileRejected("not_completed")
		return ReconcileResult{}, domain.ErrPaymentNotCompleted
	}

	if owner := intent.Metadata[stripe.MetadataUserIDKey]; owner != "" && owner != user.ID.String() {
		s.log.Warn("Payment intent %s belongs to user %s, not %s", paymentIntentID, owner, user.ID)
		s.metrics.IncReconcileRejected("wrong_user")
		return ReconcileResult{}, repository.ErrInvalidData
	}

	// Credit is recomputed from the catalog entry the intent was opened for,
	// never taken from the request
	selection, err := s.catalog.ResolveFromMetadata(ctx, intent.Metadata)
	if err != nil {
		s.metrics.IncReconcileRejected("unresolvable")
		return ReconcileResult{}, err
	}

	tx := domain.Transaction{
		ID:                    uuid.New(),
		UserID:                user.ID,
		Label:                 selection.Label,
		Amount:                intent.Amount,
		Currency:              intent.Currency,
		StripePaymentIntentID: paymentIntentID,
		Status:                domain.TransactionStatusCompleted,
		MinutesGranted:        selection.Minutes,
	}

	created, err := s.transactions.Create(ctx, tx)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent reconciliation won the insert race. Its credit
		// already happened (or is about to); return its transaction.
		winner, getErr := s.transactions.GetByPaymentIntentID(ctx, paymentIntentID)
		if getErr != nil {
			return ReconcileResult{}, getErr
		}
		s.log.Info("Lost reconciliation race for intent %s to transaction %s", paymentIntentID, winner.ID)
		s.metrics.IncReconcileDuplicate()
		return ReconcileResult{
			Transaction:      winner,
			MinutesGranted:   winner.MinutesGranted,
			AlreadyProcessed: true,
		}, nil
	}
	if err != nil {
		return ReconcileResult{}, err
	}

	if selection.Minutes > 0 {
		if err := s.users.IncrementMinuteBalance(ctx, user.ID, selection.Minutes); err != nil {
			// The transaction row exists but the balance was not bumped.
			// Surface loudly: this needs operator attention, a retry will
			// take the duplicate path and must not double-grant.
			s.log.Errorw("Balance increment failed after transaction insert",
				"userID", user.ID,
				"transactionID", created.ID,
				"paymentIntentID", paymentIntentID,
				"minutes", selection.Minutes,
				"error", err,
			)
			return ReconcileResult{}, err
		}
	}

	if selection.Kind == domain.CreditKindSubscription {
		s.activateSubscription(ctx, user, intent, selection)
	}

	// Everything below is best effort: card capture and event publishing
	// never fail a reconciliation that already granted credit.
	created = s.enrichFromCharge(ctx, created, intent)
	s.publishCompleted(ctx, created, selection)

	s.metrics.IncReconcileCompleted(string(selection.Kind))
	s.metrics.ObserveChargedAmount(float64(intent.Amount), intent.Currency)
	s.metrics.AddMinutesGranted(selection.Minutes)

	s.log.Infow("Payment reconciled",
		"userID", user.ID,
		"paymentIntentID", paymentIntentID,
		"transactionID", created.ID,
		"kind", string(selection.Kind),
		"minutesGranted", selection.Minutes,
		"amount", intent.Amount,
	)

	return ReconcileResult{
		Transaction:    created,
		MinutesGranted: selection.Minutes,
	}, nil
}

// activateSubscription records the plan on the user and upserts the local
// subscription row. Failures log and continue: the credit was granted and the
// next plan payment repairs the subscription record.
func (s *reconcileService) activateSubscription(ctx context.Context, user domain.User, intent *stripe.PaymentIntent, selection domain.Selection) {
	now := time.Now()
	if err := s.users.SetSubscriptionInfo(ctx, user.ID, now, intent.Amount); err != nil {
		s.log.Errorw("Failed to record subscription info on user", "userID", user.ID, "error", err)
	}

	customerID := intent.CustomerID
	if customerID == "" {
		customerID = user.StripeCustomerID
	}
	sub := domain.Subscription{
		ID:               uuid.New(),
		UserID:           user.ID,
		StripeCustomerID: customerID,
		PlanLabel:        selection.Label,
		Status:           domain.SubscriptionStatusActive,
	}
	stored, err := s.subs.Upsert(ctx, sub)
	if err != nil {
		s.log.Errorw("Failed to upsert subscription", "userID", user.ID, "error", err)
		return
	}

	event := &kafka.PaymentEvent{
		UserID:          user.ID.String(),
		PaymentIntentID: intent.ID,
		Kind:            string(selection.Kind),
		Label:           selection.Label,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		OccurredAt:      time.Now(),
	}
	if err := s.producer.PublishPaymentEvent(ctx, kafka.TopicSubscriptionActivated, event); err != nil {
		s.log.Warnw("Failed to publish subscription activation event", "userID", user.ID, "subscriptionID", stored.ID, "error", err)
	}
}

// enrichFromCharge pulls the charge and card summary off the gateway and, when
// the card is reusable, attaches it to the customer for future renewals.
func (s *reconcileService) enrichFromCharge(ctx context.Context, tx domain.Transaction, intent *stripe.PaymentIntent) domain.Transaction {
	charges, err := s.gateway.ListCharges(ctx, intent.ID)
	if err != nil || len(charges) == 0 {
		if err != nil {
			s.log.Warnw("Failed to list charges for enrichment", "paymentIntentID", intent.ID, "error", err)
		}
		return tx
	}
	charge := charges[0]

	if err := s.transactions.Enrich(ctx, tx.ID, charge.ID, charge.CardBrand, charge.CardLast4); err != nil {
		s.log.Warnw("Failed to enrich transaction", "transactionID", tx.ID, "error", err)
	} else {
		tx.StripeChargeID = charge.ID
		tx.CardBrand = charge.CardBrand
		tx.CardLast4 = charge.CardLast4
	}

	if charge.PaymentMethodID != "" && intent.CustomerID != "" {
		pm, err := s.gateway.GetPaymentMethod(ctx, charge.PaymentMethodID)
		if err != nil {
			s.log.Warnw("Failed to inspect payment method", "paymentMethodID", charge.PaymentMethodID, "error", err)
			return tx
		}
		switch {
		case pm.CustomerID == intent.CustomerID:
			// Already where it belongs
		case pm.CustomerID != "":
			// Attached to a stale customer; the gateway requires a
			// detach before the method can move.
			if err := s.gateway.DetachPaymentMethod(ctx, pm.ID); err != nil {
				s.log.Warnw("Failed to detach payment method from stale customer", "paymentMethodID", pm.ID, "staleCustomerID", pm.CustomerID, "error", err)
				break
			}
			fallthrough
		default:
			if err := s.gateway.AttachPaymentMethod(ctx, pm.ID, intent.CustomerID); err != nil {
				s.log.Warnw("Failed to attach payment method", "paymentMethodID", pm.ID, "error", err)
			}
		}
	}
	return tx
}

func (s *reconcileService) publishCompleted(ctx context.Context, tx domain.Transaction, selection domain.Selection) {
	event := &kafka.PaymentEvent{
		UserID:          tx.UserID.String(),
		TransactionID:   tx.ID.String(),
		PaymentIntentID: tx.StripePaymentIntentID,
		Kind:            string(selection.Kind),
		Label:           tx.Label,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		MinutesGranted:  tx.MinutesGranted,
		OccurredAt:      time.Now(),
	}
	if err := s.producer.PublishPaymentEvent(ctx, kafka.TopicPaymentCompleted, event); err != nil {
		s.log.Warnw("Failed to publish payment completed event", "transactionID", tx.ID, "error", err)
	}
}
