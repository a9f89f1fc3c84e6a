package domain

import (
	"time"

	"github.com/google/uuid"
)

// Card is a vaulted payment method. StripePaymentMethodID is empty for
// manually entered cards that only exist locally.
// Invariant: at most one card per user has IsDefault set.
type Card struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	StripePaymentMethodID string    `json:"stripe_payment_method_id,omitempty"`
	Brand                 string    `json:"brand"`
	Last4                 string    `json:"last4"`
	ExpMonth              int       `json:"exp_month"`
	ExpYear               int       `json:"exp_year"`
	IsDefault             bool      `json:"is_default"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// CardRequest is the payload for adding a card to the vault
type CardRequest struct {
	StripePaymentMethodID string `json:"stripe_payment_method_id,omitempty"`
	Brand                 string `json:"brand" binding:"required"`
	Last4                 string `json:"last4" binding:"required,len=4,numeric"`
	ExpMonth              int    `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear               int    `json:"exp_year" binding:"required,min=2020"`
	IsDefault             bool   `json:"is_default"`
}
