package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// PostgresUserRepository implements repository.UserRepository over pgx
type PostgresUserRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:  db,
		log: log,
	}
}

const userColumns = `id, email, name, minute_balance, stripe_customer_id, auto_renew,
		subscription_started_at, subscription_amount, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var user domain.User
	var customerID *string
	var subscriptionAmount *int64

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.MinuteBalance,
		&customerID,
		&user.AutoRenew,
		&user.SubscriptionStartedAt,
		&subscriptionAmount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	if customerID != nil {
		user.StripeCustomerID = *customerID
	}
	if subscriptionAmount != nil {
		user.SubscriptionAmount = *subscriptionAmount
	}

	return user, nil
}

// GetByID returns a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.User{}, mapError(err)
	}

	return user, nil
}

// Create stores a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := `
		INSERT INTO users (id, email, name, minute_balance, auto_renew)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.MinuteBalance, user.AutoRenew))
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to create user: %w", mapError(err))
	}

	return created, nil
}

// SetStripeCustomerID sets the customer id only when none is present yet. The
// WHERE clause makes the write a compare-and-set, so concurrent provisioning
// attempts converge on the first value; the caller always gets the winner back.
func (r *PostgresUserRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error) {
	query := `
		UPDATE users
		SET stripe_customer_id = $2, updated_at = NOW()
		WHERE id = $1 AND stripe_customer_id IS NULL
	`

	if _, err := r.db.Exec(ctx, query, id, customerID); err != nil {
		return "", fmt.Errorf("failed to set stripe customer id: %w", mapError(err))
	}

	var winner *string
	readBack := `SELECT stripe_customer_id FROM users WHERE id = $1`
	if err := r.db.QueryRow(ctx, readBack, id).Scan(&winner); err != nil {
		return "", mapError(err)
	}
	if winner == nil {
		return "", fmt.Errorf("stripe customer id not set for user %s", id)
	}

	return *winner, nil
}

// IncrementMinuteBalance atomically adds minutes to the user's balance
func (r *PostgresUserRepository) IncrementMinuteBalance(ctx context.Context, id uuid.UUID, minutes int) error {
	query := `
		UPDATE users
		SET minute_balance = minute_balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, minutes)
	if err != nil {
		return fmt.Errorf("failed to increment minute balance: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	r.log.Debugw("Minute balance incremented", "userID", id, "minutes", minutes)
	return nil
}

// SetAutoRenew toggles the auto-renew flag
func (r *PostgresUserRepository) SetAutoRenew(ctx context.Context, id uuid.UUID, renew bool) error {
	query := `
		UPDATE users
		SET auto_renew = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, renew)
	if err != nil {
		return fmt.Errorf("failed to set auto renew: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetSubscriptionInfo records the start time and amount of the active plan
func (r *PostgresUserRepository) SetSubscriptionInfo(ctx context.Context, id uuid.UUID, startedAt time.Time, amount int64) error {
	query := `
		UPDATE users
		SET subscription_started_at = $2, subscription_amount = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, startedAt, amount)
	if err != nil {
		return fmt.Errorf("failed to set subscription info: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
