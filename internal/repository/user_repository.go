package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/pkg/logger"
)

// UserRepository persists the user aggregate. Mutations are field-scoped so
// concurrent writers touching different fields never clobber each other.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)

	// SetStripeCustomerID sets the customer id only if none is set yet and
	// returns the id that ended up on the user. Concurrent callers converge
	// on a single value.
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error)

	// IncrementMinuteBalance atomically adds minutes to the balance.
	IncrementMinuteBalance(ctx context.Context, id uuid.UUID, minutes int) error

	SetAutoRenew(ctx context.Context, id uuid.UUID, renew bool) error

	// SetSubscriptionInfo records the start time and amount of the active plan.
	SetSubscriptionInfo(ctx context.Context, id uuid.UUID, startedAt time.Time, amount int64) error
}

// InMemoryUserRepository is the in-memory UserRepository used in tests
type InMemoryUserRepository struct {
	users map[uuid.UUID]domain.User
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository(log *logger.Logger) *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]domain.User),
		log:   log,
	}
}

// GetByID returns a user by ID
func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return domain.User{}, ErrNotFound
	}

	return user, nil
}

// Create stores a new user
func (r *InMemoryUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return domain.User{}, ErrDuplicate
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user

	return user, nil
}

// SetStripeCustomerID sets the customer id once; later calls keep the first value
func (r *InMemoryUserRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return "", ErrNotFound
	}

	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	user.StripeCustomerID = customerID
	user.UpdatedAt = time.Now()
	r.users[id] = user

	return customerID, nil
}

// IncrementMinuteBalance adds minutes to the balance under the repository lock
func (r *InMemoryUserRepository) IncrementMinuteBalance(ctx context.Context, id uuid.UUID, minutes int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrNotFound
	}

	user.MinuteBalance += minutes
	user.UpdatedAt = time.Now()
	r.users[id] = user

	return nil
}

// SetAutoRenew toggles the auto-renew flag
func (r *InMemoryUserRepository) SetAutoRenew(ctx context.Context, id uuid.UUID, renew bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrNotFound
	}

	user.AutoRenew = renew
	user.UpdatedAt = time.Now()
	r.users[id] = user

	return nil
}

// SetSubscriptionInfo records the subscription summary on the user
func (r *InMemoryUserRepository) SetSubscriptionInfo(ctx context.Context, id uuid.UUID, startedAt time.Time, amount int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrNotFound
	}

	user.SubscriptionStartedAt = &startedAt
	user.SubscriptionAmount = amount
	user.UpdatedAt = time.Now()
	r.users[id] = user

	return nil
}
