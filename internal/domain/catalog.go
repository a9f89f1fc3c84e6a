package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanInterval is the billing interval of a subscription plan
type PlanInterval string

const (
	PlanIntervalMonth PlanInterval = "month"
	PlanIntervalYear  PlanInterval = "year"
)

// Plan is a subscription catalog entry. Read-only from this service.
type Plan struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Price        int64        `json:"price"` // minor currency units
	Currency     string       `json:"currency"`
	Interval     PlanInterval `json:"interval"`
	MinuteGrant  int          `json:"minute_grant"`
	Active       bool         `json:"active"`
	Featured     bool         `json:"featured"`
	DisplayOrder int          `json:"display_order"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// MinutePackage is a prepaid minute bundle catalog entry. Read-only here.
type MinutePackage struct {
	ID        uuid.UUID `json:"id"`
	Minutes   int       `json:"minutes"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditKind tags what a payment buys
type CreditKind string

const (
	CreditKindSubscription CreditKind = "subscription"
	CreditKindMinutes      CreditKind = "minutes"
)

// Selector identifies a catalog entry in a purchase request. Exactly one of
// PlanRef (id or display name) and Minutes must be set.
type Selector struct {
	PlanRef string `json:"planRef,omitempty"`
	Minutes int    `json:"minutes,omitempty" binding:"omitempty,gt=0"`
}

// Selection is the authoritative price/credit resolution of a Selector.
// The amount here is the only amount ever sent to the gateway.
type Selection struct {
	Kind       CreditKind `json:"kind"`
	SelectorID uuid.UUID  `json:"selector_id"`
	Label      string     `json:"label"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Minutes    int        `json:"minutes"`
}
