package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the account aggregate owned by the account system. This service
// mutates only minute_balance, stripe_customer_id, auto_renew and the
// subscription summary fields, each through field-scoped updates.
type User struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name,omitempty"`
	MinuteBalance         int        `json:"minute_balance"`
	StripeCustomerID      string     `json:"stripe_customer_id,omitempty"` // set once, lazily
	AutoRenew             bool       `json:"auto_renew"`
	SubscriptionStartedAt *time.Time `json:"subscription_started_at,omitempty"`
	SubscriptionAmount    int64      `json:"subscription_amount,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
