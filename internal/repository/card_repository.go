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

// CardRepository persists vaulted payment methods. Create and SetDefault apply
// the default flip (unset all others, set the target) as one atomic unit so
// the at-most-one-default invariant holds across concurrent updates.
type CardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Card, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Card, error)
	Create(ctx context.Context, card domain.Card) (domain.Card, error)
	SetDefault(ctx context.Context, userID, cardID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InMemoryCardRepository is the in-memory CardRepository used in tests
type InMemoryCardRepository struct {
	cards map[uuid.UUID]domain.Card
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryCardRepository creates a new in-memory card repository
func NewInMemoryCardRepository(log *logger.Logger) *InMemoryCardRepository {
	return &InMemoryCardRepository{
		cards: make(map[uuid.UUID]domain.Card),
		log:   log,
	}
}

// GetByID returns a card by ID
func (r *InMemoryCardRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	card, exists := r.cards[id]
	if !exists {
		return domain.Card{}, ErrNotFound
	}

	return card, nil
}

// ListByUserID returns a user's cards, oldest first
func (r *InMemoryCardRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Card, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var cards []domain.Card
	for _, card := range r.cards {
		if card.UserID == userID {
			cards = append(cards, card)
		}
	}

	sort.Slice(cards, func(i, j int) bool {
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})

	return cards, nil
}

// Create stores a new card; a default card displaces the previous default
func (r *InMemoryCardRepository) Create(ctx context.Context, card domain.Card) (domain.Card, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if card.IsDefault {
		r.unsetDefaultLocked(card.UserID)
	}

	card.CreatedAt = time.Now()
	card.UpdatedAt = time.Now()
	r.cards[card.ID] = card

	return card, nil
}

// SetDefault makes the given card the user's only default
func (r *InMemoryCardRepository) SetDefault(ctx context.Context, userID, cardID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	card, exists := r.cards[cardID]
	if !exists || card.UserID != userID {
		return ErrNotFound
	}

	r.unsetDefaultLocked(userID)

	card.IsDefault = true
	card.UpdatedAt = time.Now()
	r.cards[cardID] = card

	return nil
}

// Delete removes a card; deleting the default leaves the user with none
func (r *InMemoryCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.cards[id]; !exists {
		return ErrNotFound
	}

	delete(r.cards, id)
	return nil
}

// unsetDefaultLocked clears the default flag on all of a user's cards.
// Callers must hold the write lock.
func (r *InMemoryCardRepository) unsetDefaultLocked(userID uuid.UUID) {
	for id, c := range r.cards {
		if c.UserID == userID && c.IsDefault {
			c.IsDefault = false
			c.UpdatedAt = time.Now()
			r.cards[id] = c
		}
	}
}
