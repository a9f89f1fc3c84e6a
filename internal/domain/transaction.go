package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle state of a recorded payment
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is the append-only record of one reconciled payment.
// StripePaymentIntentID is unique across the table; that uniqueness is the
// idempotency anchor for the whole reconciliation flow. After insertion a
// transaction is only ever enriched with charge id and card summary inside
// the same reconciliation call.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	UserID                uuid.UUID         `json:"user_id"`
	Label                 string            `json:"label"` // plan name or "<N> minutes"
	Amount                int64             `json:"amount"`
	Currency              string            `json:"currency"`
	StripePaymentIntentID string            `json:"stripe_payment_intent_id"`
	StripeChargeID        string            `json:"stripe_charge_id,omitempty"`
	Status                TransactionStatus `json:"status"`
	CardBrand             string            `json:"card_brand,omitempty"`
	CardLast4             string            `json:"card_last4,omitempty"`
	MinutesGranted        int               `json:"minutes_granted"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}
