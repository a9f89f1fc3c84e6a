package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

func newCardFixture(t *testing.T) (CardService, uuid.UUID) {
	t.Helper()
	log := logger.New(logger.ERROR)
	repo := repository.NewInMemoryCardRepository(log)
	return NewCardService(repo, log), uuid.New()
}

func cardRequest(last4 string, isDefault bool) domain.CardRequest {
	return domain.CardRequest{
		Brand:     "visa",
		Last4:     last4,
		ExpMonth:  12,
		ExpYear:   2030,
		IsDefault: isDefault,
	}
}

func defaultCount(t *testing.T, svc CardService, userID uuid.UUID) int {
	t.Helper()
	cards, err := svc.List(context.Background(), userID.String())
	require.NoError(t, err)
	count := 0
	for _, card := range cards {
		if card.IsDefault {
			count++
		}
	}
	return count
}

func TestFirstCardBecomesDefault(t *testing.T) {
	svc, userID := newCardFixture(t)

	card, err := svc.Add(context.Background(), userID.String(), cardRequest("4242", false))
	require.NoError(t, err)
	assert.True(t, card.IsDefault, "the first stored card is the default")
}

func TestNewDefaultDisplacesPrevious(t *testing.T) {
	svc, userID := newCardFixture(t)

	first, err := svc.Add(context.Background(), userID.String(), cardRequest("4242", true))
	require.NoError(t, err)

	second, err := svc.Add(context.Background(), userID.String(), cardRequest("1881", true))
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	cards, err := svc.List(context.Background(), userID.String())
	require.NoError(t, err)
	for _, card := range cards {
		if card.ID == first.ID {
			assert.False(t, card.IsDefault, "the old default must be displaced")
		}
	}
	assert.Equal(t, 1, defaultCount(t, svc, userID))
}

func TestSetDefaultHandsOver(t *testing.T) {
	svc, userID := newCardFixture(t)

	first, err := svc.Add(context.Background(), userID.String(), cardRequest("4242", false))
	require.NoError(t, err)
	second, err := svc.Add(context.Background(), userID.String(), cardRequest("1881", false))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.False(t, second.IsDefault)

	updated, err := svc.SetDefault(context.Background(), userID.String(), second.ID.String())
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, 1, defaultCount(t, svc, userID))
}

func TestSetDefaultForeignCard(t *testing.T) {
	svc, userID := newCardFixture(t)
	otherUser := uuid.New()

	card, err := svc.Add(context.Background(), otherUser.String(), cardRequest("4242", false))
	require.NoError(t, err)

	_, err = svc.SetDefault(context.Background(), userID.String(), card.ID.String())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteCard(t *testing.T) {
	svc, userID := newCardFixture(t)

	card, err := svc.Add(context.Background(), userID.String(), cardRequest("4242", false))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID.String(), card.ID.String()))

	cards, err := svc.List(context.Background(), userID.String())
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestDeleteForeignCard(t *testing.T) {
	svc, userID := newCardFixture(t)
	otherUser := uuid.New()

	card, err := svc.Add(context.Background(), otherUser.String(), cardRequest("4242", false))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), userID.String(), card.ID.String())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	remaining, err := svc.List(context.Background(), otherUser.String())
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "the other user's card must survive")
}

func TestDeleteDefaultLeavesNoDefault(t *testing.T) {
	svc, userID := newCardFixture(t)

	first, err := svc.Add(context.Background(), userID.String(), cardRequest("4242", false))
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), userID.String(), cardRequest("1881", false))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID.String(), first.ID.String()))
	assert.Equal(t, 0, defaultCount(t, svc, userID))
}
