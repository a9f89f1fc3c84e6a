package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CardService manages a user's stored payment cards. At most one card per
// user is the default at any time.
type CardService interface {
	List(ctx context.Context, userID string) ([]domain.Card, error)
	Add(ctx context.Context, userID string, req domain.CardRequest) (domain.Card, error)
	SetDefault(ctx context.Context, userID, cardID string) (domain.Card, error)
	Delete(ctx context.Context, userID, cardID string) error
}

type cardService struct {
	repo repository.CardRepository
	log  *logger.Logger
}

// NewCardService creates a new card management service
func NewCardService(repo repository.CardRepository, log *logger.Logger) CardService {
	return &cardService{
		repo: repo,
		log:  log,
	}
}

func (s *cardService) List(ctx context.Context, userID string) ([]domain.Card, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return nil, repository.ErrInvalidData
	}
	return s.repo.ListByUserID(ctx, uid)
}

func (s *cardService) Add(ctx context.Context, userID string, req domain.CardRequest) (domain.Card, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return domain.Card{}, repository.ErrInvalidData
	}

	existing, err := s.repo.ListByUserID(ctx, uid)
	if err != nil {
		return domain.Card{}, err
	}

	card := domain.Card{
		ID:                    uuid.New(),
		UserID:                uid,
		StripePaymentMethodID: req.StripePaymentMethodID,
		Brand:                 req.Brand,
		Last4:                 req.Last4,
		ExpMonth:              req.ExpMonth,
		ExpYear:               req.ExpYear,
		// The first card is always the default
		IsDefault: req.IsDefault || len(existing) == 0,
	}

	created, err := s.repo.Create(ctx, card)
	if err != nil {
		return domain.Card{}, err
	}

	s.log.Infow("Card stored", "userID", uid, "cardID", created.ID, "brand", created.Brand, "default", created.IsDefault)
	return created, nil
}

func (s *cardService) SetDefault(ctx context.Context, userID, cardID string) (domain.Card, error) {
	uid, cid, err := s.parseIDs(userID, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	if err := s.repo.SetDefault(ctx, uid, cid); err != nil {
		return domain.Card{}, err
	}
	return s.repo.GetByID(ctx, cid)
}

func (s *cardService) Delete(ctx context.Context, userID, cardID string) error {
	uid, cid, err := s.parseIDs(userID, cardID)
	if err != nil {
		return err
	}

	card, err := s.repo.GetByID(ctx, cid)
	if err != nil {
		return err
	}
	if card.UserID != uid {
		s.log.Warn("User %s tried to delete card %s owned by %s", uid, cid, card.UserID)
		return repository.ErrNotFound
	}

	// Deleting the default leaves the user with no default; the next
	// SetDefault or first added card restores one.
	if err := s.repo.Delete(ctx, cid); err != nil {
		return err
	}
	s.log.Infow("Card deleted", "userID", uid, "cardID", cid)
	return nil
}

func (s *cardService) parseIDs(userID, cardID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return uuid.Nil, uuid.Nil, repository.ErrInvalidData
	}
	cid, err := uuid.Parse(cardID)
	if err != nil {
		s.log.Warn("Invalid UUID format for card ID: %s", cardID)
		return uuid.Nil, uuid.Nil, repository.ErrInvalidData
	}
	return uid, cid, nil
}
