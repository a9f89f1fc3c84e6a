package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/middleware"
	"github.com/pawmed/billing-service/internal/service"
	"github.com/pawmed/billing-service/pkg/logger"
)

// CardHandler serves stored card management.
type CardHandler struct {
	cards service.CardService
	log   *logger.Logger
}

// NewCardHandler creates a new card handler
func NewCardHandler(cards service.CardService, log *logger.Logger) *CardHandler {
	return &CardHandler{
		cards: cards,
		log:   log,
	}
}

// List returns the user's stored cards.
// GET /api/v1/cards
func (h *CardHandler) List(c *gin.Context) {
	cards, err := h.cards.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to list cards")
		return
	}

	c.JSON(http.StatusOK, cards)
}

// Add stores a new card.
// POST /api/v1/cards
func (h *CardHandler) Add(c *gin.Context) {
	var req domain.CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid card request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card data", "details": bindingErrorDetails(err)})
		return
	}

	card, err := h.cards.Add(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, h.log, err, "Failed to store card")
		return
	}

	c.JSON(http.StatusCreated, card)
}

// SetDefault makes the card the user's default.
// PATCH /api/v1/cards/:id
func (h *CardHandler) SetDefault(c *gin.Context) {
	card, err := h.cards.SetDefault(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Failed to set default card")
		return
	}

	c.JSON(http.StatusOK, card)
}

// Delete removes a stored card.
// DELETE /api/v1/cards/:id
func (h *CardHandler) Delete(c *gin.Context) {
	if err := h.cards.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err, "Failed to delete card")
		return
	}

	c.Status(http.StatusNoContent)
}
