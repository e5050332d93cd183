package models

import "time"

// UOM is a unit of measurement attached to inventory items.
type UOM struct {
	ID        string    `json:"id"`
	Shop      string    `json:"shop"`
	Name      string    `json:"name"`
	ShortName *string   `json:"shortName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UOMInput struct {
	Shop      string  `json:"shop" validate:"required"`
	Name      string  `json:"name" validate:"required,max=64"`
	ShortName *string `json:"shortName,omitempty" validate:"omitempty,max=16"`
}

func (in UOMInput) ShopID() string { return in.Shop }
