package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// PostgresTransactionRepository implements repository.TransactionRepository.
// The unique index on stripe_payment_intent_id carries the idempotency
// guarantee; Create surfaces its violation as repository.ErrDuplicate.
type PostgresTransactionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository
func NewPostgresTransactionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{
		db:  db,
		log: log,
	}
}

const transactionColumns = `id, user_id, label, amount, currency, stripe_payment_intent_id,
		stripe_charge_id, status, card_brand, card_last4, minutes_granted, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (domain.Transaction, error) {
	var tx domain.Transaction
	var chargeID, cardBrand, cardLast4 *string

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Label,
		&tx.Amount,
		&tx.Currency,
		&tx.StripePaymentIntentID,
		&chargeID,
		&tx.Status,
		&cardBrand,
		&cardLast4,
		&tx.MinutesGranted,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	if chargeID != nil {
		tx.StripeChargeID = *chargeID
	}
	if cardBrand != nil {
		tx.CardBrand = *cardBrand
	}
	if cardLast4 != nil {
		tx.CardLast4 = *cardLast4
	}

	return tx, nil
}

// GetByPaymentIntentID returns the transaction recorded for a payment intent
func (r *PostgresTransactionRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE stripe_payment_intent_id = $1`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, paymentIntentID))
	if err != nil {
		return domain.Transaction{}, mapError(err)
	}

	return tx, nil
}

// Create inserts a transaction. A concurrent insert for the same payment
// intent loses on the unique index and gets ErrDuplicate back.
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	query := `
		INSERT INTO transactions
			(id, user_id, label, amount, currency, stripe_payment_intent_id, status, minutes_granted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + transactionColumns

	created, err := scanTransaction(r.db.QueryRow(ctx, query,
		tx.ID, tx.UserID, tx.Label, tx.Amount, tx.Currency,
		tx.StripePaymentIntentID, tx.Status, tx.MinutesGranted))
	if err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, repository.ErrDuplicate) {
			return domain.Transaction{}, repository.ErrDuplicate
		}
		return domain.Transaction{}, fmt.Errorf("failed to create transaction: %w", mapped)
	}

	return created, nil
}

// Enrich adds the charge id and card summary to an existing transaction
func (r *PostgresTransactionRepository) Enrich(ctx context.Context, id uuid.UUID, chargeID, cardBrand, cardLast4 string) error {
	query := `
		UPDATE transactions
		SET stripe_charge_id = $2, card_brand = $3, card_last4 = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, chargeID, cardBrand, cardLast4)
	if err != nil {
		return fmt.Errorf("failed to enrich transaction: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByUserID returns a user's transactions, newest first
func (r *PostgresTransactionRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", mapError(err))
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
