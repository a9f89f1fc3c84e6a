package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/kafka"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// RenewalService flips a user's auto-renewal preference.
type RenewalService interface {
	SetAutoRenew(ctx context.Context, userID string, renew bool) (domain.User, error)
}

type renewalService struct {
	users    repository.UserRepository
	producer kafka.Producer
	log      *logger.Logger
}

// NewRenewalService creates a new renewal preference service
func NewRenewalService(users repository.UserRepository, producer kafka.Producer, log *logger.Logger) RenewalService {
	return &renewalService{
		users:    users,
		producer: producer,
		log:      log,
	}
}

func (s *renewalService) SetAutoRenew(ctx context.Context, userID string, renew bool) (domain.User, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return domain.User{}, repository.ErrInvalidData
	}

	if err := s.users.SetAutoRenew(ctx, uid, renew); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return domain.User{}, err
	}

	event := &kafka.RenewalEvent{
		UserID:     user.ID.String(),
		AutoRenew:  renew,
		OccurredAt: time.Now(),
	}
	if err := s.producer.PublishRenewalEvent(ctx, event); err != nil {
		s.log.Warnw("Failed to publish renewal change event", "userID", user.ID, "error", err)
	}

	s.log.Infow("Auto-renewal updated", "userID", user.ID, "autoRenew", renew)
	return user, nil
}
