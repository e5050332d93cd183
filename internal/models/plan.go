package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPlan bounds what an account may provision.
type SubscriptionPlan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"durationDays"`
	MaxShops     int             `json:"maxShops"`
	Features     []string        `json:"features"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type SubscriptionPlanInput struct {
	Name         string          `json:"name" validate:"required,max=128"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	DurationDays int             `json:"durationDays" validate:"gte=1"`
	MaxShops     int             `json:"maxShops" validate:"gte=1"`
	Features     []string        `json:"features,omitempty"`
	IsActive     *bool           `json:"isActive,omitempty"`
}
