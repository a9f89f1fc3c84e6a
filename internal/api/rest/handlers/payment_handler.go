package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/middleware"
	"github.com/pawmed/billing-service/internal/service"
	"github.com/pawmed/billing-service/pkg/logger"
)

// PaymentHandler serves checkout, reconciliation and payment history.
type PaymentHandler struct {
	checkout     service.CheckoutService
	reconcile    service.ReconcileService
	transactions service.TransactionService
	log          *logger.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	checkout service.CheckoutService,
	reconcile service.ReconcileService,
	transactions service.TransactionService,
	log *logger.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		checkout:     checkout,
		reconcile:    reconcile,
		transactions: transactions,
		log:          log,
	}
}

type createIntentRequest struct {
	UserID   string          `json:"user_id" binding:"required"`
	Selector domain.Selector `json:"selector"`
}

type reconcileRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// CreateIntent opens a payment intent for a catalog purchase.
// POST /api/v1/payment-intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid payment intent request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	intent, err := h.checkout.CreateIntent(c.Request.Context(), req.UserID, req.Selector)
	if err != nil {
		respondError(c, h.log, err, "Failed to create payment intent")
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// Reconcile settles a client-reported payment against the gateway.
// POST /api/v1/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid reconcile request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and payment_intent_id are required"})
		return
	}

	result, err := h.reconcile.Reconcile(c.Request.Context(), req.UserID, req.PaymentIntentID)
	if err != nil {
		respondError(c, h.log, err, "Failed to reconcile payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"transaction_id":    result.Transaction.ID,
		"credit_granted":    result.MinutesGranted,
		"already_processed": result.AlreadyProcessed,
	})
}

// ListTransactions returns the authenticated user's payment history.
// GET /api/v1/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	transactions, err := h.transactions.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to list transactions")
		return
	}

	h.log.Info("Returned %d transactions", len(transactions))
	c.JSON(http.StatusOK, transactions)
}
