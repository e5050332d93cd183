package models

import "time"

// Customer is a buyer registered with a shop.
type Customer struct {
	ID        string    `json:"id"`
	Shop      string    `json:"shop"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CustomerInput is the create/update form for a customer.
type CustomerInput struct {
	Shop    string  `json:"shop" validate:"required"`
	Name    string  `json:"name" validate:"required,max=255"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=512"`
	Notes   *string `json:"notes,omitempty"`
}

func (in CustomerInput) ShopID() string { return in.Shop }
