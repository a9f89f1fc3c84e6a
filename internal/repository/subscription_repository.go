package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// SubscriptionRepository persists the one-row-per-user subscription record.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error)

	// Upsert creates or replaces the user's subscription row, keyed by user id.
	Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
}

// InMemorySubscriptionRepository is the in-memory SubscriptionRepository used in tests
type InMemorySubscriptionRepository struct {
	byUserID map[uuid.UUID]domain.Subscription
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemorySubscriptionRepository creates a new in-memory subscription repository
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		byUserID: make(map[uuid.UUID]domain.Subscription),
		log:      log,
	}
}

// GetByUserID returns the subscription for a user
func (r *InMemorySubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sub, exists := r.byUserID[userID]
	if !exists {
		return domain.Subscription{}, ErrNotFound
	}

	return sub, nil
}

// Upsert creates or updates the user's subscription row
func (r *InMemorySubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.byUserID[sub.UserID]
	if exists {
		// Keep identity and creation time of the original row
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = time.Now()
	r.byUserID[sub.UserID] = sub

	return sub, nil
}
