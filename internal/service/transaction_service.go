package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// TransactionService exposes the payment history.
type TransactionService interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}

type transactionService struct {
	repo repository.TransactionRepository
	log  *logger.Logger
}

// NewTransactionService creates a new transaction history service
func NewTransactionService(repo repository.TransactionRepository, log *logger.Logger) TransactionService {
	return &transactionService{
		repo: repo,
		log:  log,
	}
}

func (s *transactionService) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.log.Warn("Invalid UUID format for user ID: %s", userID)
		return nil, repository.ErrInvalidData
	}
	return s.repo.ListByUserID(ctx, uid)
}
