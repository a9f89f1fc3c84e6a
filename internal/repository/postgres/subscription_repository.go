package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// PostgresSubscriptionRepository implements repository.SubscriptionRepository
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository creates a new PostgreSQL subscription repository
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

const subscriptionColumns = `id, user_id, stripe_customer_id, stripe_subscription_id,
		plan_label, status, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (domain.Subscription, error) {
	var sub domain.Subscription
	var stripeSubID *string

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeCustomerID,
		&stripeSubID,
		&sub.PlanLabel,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return domain.Subscription{}, err
	}

	if stripeSubID != nil {
		sub.StripeSubscriptionID = *stripeSubID
	}

	return sub, nil
}

// GetByUserID returns the subscription for a user
func (r *PostgresSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return domain.Subscription{}, mapError(err)
	}

	return sub, nil
}

// Upsert creates or replaces the user's subscription row. The unique index on
// user_id is the upsert key, so two plan purchases by the same user converge
// on one row.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, user_id, stripe_customer_id, stripe_subscription_id, plan_label, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, subscriptions.stripe_subscription_id),
			plan_label = EXCLUDED.plan_label,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING ` + subscriptionColumns

	upserted, err := scanSubscription(r.db.QueryRow(ctx, query,
		sub.ID, sub.UserID, sub.StripeCustomerID, sub.StripeSubscriptionID, sub.PlanLabel, sub.Status))
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", mapError(err))
	}

	r.log.Debugw("Subscription upserted", "userID", sub.UserID, "plan", sub.PlanLabel, "status", sub.Status)
	return upserted, nil
}
