package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// TransactionRepository persists reconciled payments. Create must reject a
// second row for the same payment intent id with ErrDuplicate; that rejection
// is what makes reconciliation idempotent under concurrent calls.
type TransactionRepository interface {
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (domain.Transaction, error)
	Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)

	// Enrich attaches the charge id and card summary after the fact. Only the
	// reconciliation that created the row calls this.
	Enrich(ctx context.Context, id uuid.UUID, chargeID, cardBrand, cardLast4 string) error

	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}

// InMemoryTransactionRepository is the in-memory TransactionRepository used in tests
type InMemoryTransactionRepository struct {
	transactions map[uuid.UUID]domain.Transaction
	byIntentID   map[string]uuid.UUID
	mutex        sync.RWMutex
	log          *logger.Logger
}

// NewInMemoryTransactionRepository creates a new in-memory transaction repository
func NewInMemoryTransactionRepository(log *logger.Logger) *InMemoryTransactionRepository {
	return &InMemoryTransactionRepository{
		transactions: make(map[uuid.UUID]domain.Transaction),
		byIntentID:   make(map[string]uuid.UUID),
		log:          log,
	}
}

// GetByPaymentIntentID returns the transaction recorded for a payment intent
func (r *InMemoryTransactionRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (domain.Transaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byIntentID[paymentIntentID]
	if !exists {
		return domain.Transaction{}, ErrNotFound
	}

	return r.transactions[id], nil
}

// Create stores a new transaction, enforcing payment intent uniqueness
func (r *InMemoryTransactionRepository) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.byIntentID[tx.StripePaymentIntentID]; exists {
		return domain.Transaction{}, ErrDuplicate
	}

	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()
	r.transactions[tx.ID] = tx
	r.byIntentID[tx.StripePaymentIntentID] = tx.ID

	return tx, nil
}

// Enrich adds the charge id and card summary to an existing transaction
func (r *InMemoryTransactionRepository) Enrich(ctx context.Context, id uuid.UUID, chargeID, cardBrand, cardLast4 string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tx, exists := r.transactions[id]
	if !exists {
		return ErrNotFound
	}

	tx.StripeChargeID = chargeID
	tx.CardBrand = cardBrand
	tx.CardLast4 = cardLast4
	tx.UpdatedAt = time.Now()
	r.transactions[id] = tx

	return nil
}

// ListByUserID returns a user's transactions, newest first
func (r *InMemoryTransactionRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var txs []domain.Transaction
	for _, tx := range r.transactions {
		if tx.UserID == userID {
			txs = append(txs, tx)
		}
	}

	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})

	return txs, nil
}
