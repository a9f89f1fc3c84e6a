package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawmed/billing-service/internal/service"
	"github.com/pawmed/billing-service/pkg/logger"
)

// RenewalHandler serves the auto-renewal preference.
type RenewalHandler struct {
	renewal service.RenewalService
	log     *logger.Logger
}

// NewRenewalHandler creates a new renewal handler
func NewRenewalHandler(renewal service.RenewalService, log *logger.Logger) *RenewalHandler {
	return &RenewalHandler{
		renewal: renewal,
		log:     log,
	}
}

type renewalRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	AutoRenew *bool  `json:"auto_renew" binding:"required"`
}

// Set updates the user's auto-renewal preference.
// POST /api/v1/renewal
func (h *RenewalHandler) Set(c *gin.Context) {
	var req renewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid renewal request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and auto_renew are required"})
		return
	}

	user, err := h.renewal.SetAutoRenew(c.Request.Context(), req.UserID, *req.AutoRenew)
	if err != nil {
		respondError(c, h.log, err, "Failed to update auto-renewal")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"auto_renew": user.AutoRenew,
	})
}
