package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// PostgresCardRepository implements repository.CardRepository. The default
// flip (unset all, set one) always runs inside a single transaction so no
// reader ever observes two defaults, and a crash cannot strand the flip
// halfway.
type PostgresCardRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresCardRepository creates a new PostgreSQL card repository
func NewPostgresCardRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresCardRepository {
	return &PostgresCardRepository{
		db:  db,
		log: log,
	}
}

const cardColumns = `id, user_id, stripe_payment_method_id, brand, last4,
		exp_month, exp_year, is_default, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (domain.Card, error) {
	var card domain.Card
	var pmID *string

	err := row.Scan(
		&card.ID,
		&card.UserID,
		&pmID,
		&card.Brand,
		&card.Last4,
		&card.ExpMonth,
		&card.ExpYear,
		&card.IsDefault,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return domain.Card{}, err
	}

	if pmID != nil {
		card.StripePaymentMethodID = *pmID
	}

	return card, nil
}

// GetByID returns a card by ID
func (r *PostgresCardRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	card, err := scanCard(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Card{}, mapError(err)
	}

	return card, nil
}

// ListByUserID returns a user's cards, oldest first
func (r *PostgresCardRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", mapError(err))
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// Create stores a new card; a default card displaces the previous default
// within the same transaction
func (r *PostgresCardRepository) Create(ctx context.Context, card domain.Card) (domain.Card, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	if card.IsDefault {
		unset := `UPDATE cards SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default`
		if _, err := tx.Exec(ctx, unset, card.UserID); err != nil {
			return domain.Card{}, fmt.Errorf("failed to unset previous default: %w", mapError(err))
		}
	}

	insert := `
		INSERT INTO cards (id, user_id, stripe_payment_method_id, brand, last4, exp_month, exp_year, is_default)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING ` + cardColumns

	created, err := scanCard(tx.QueryRow(ctx, insert,
		card.ID, card.UserID, card.StripePaymentMethodID,
		card.Brand, card.Last4, card.ExpMonth, card.ExpYear, card.IsDefault))
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to create card: %w", mapError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Card{}, fmt.Errorf("failed to commit card creation: %w", mapError(err))
	}

	return created, nil
}

// SetDefault makes the given card the user's only default, in one transaction
func (r *PostgresCardRepository) SetDefault(ctx context.Context, userID, cardID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	// Ownership check inside the transaction keeps the flip and the check
	// in one consistent view
	var owner uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT user_id FROM cards WHERE id = $1`, cardID).Scan(&owner); err != nil {
		if err == pgx.ErrNoRows {
			return repository.ErrNotFound
		}
		return mapError(err)
	}
	if owner != userID {
		return repository.ErrNotFound
	}

	unset := `UPDATE cards SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default AND id <> $2`
	if _, err := tx.Exec(ctx, unset, userID, cardID); err != nil {
		return fmt.Errorf("failed to unset previous default: %w", mapError(err))
	}

	set := `UPDATE cards SET is_default = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, set, cardID); err != nil {
		return fmt.Errorf("failed to set default card: %w", mapError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit default change: %w", mapError(err))
	}

	return nil
}

// Delete removes a card; deleting the default leaves the user with none
func (r *PostgresCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
