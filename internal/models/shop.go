package models

import "time"

// Shop is the tenant scope every business record hangs off.
type Shop struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ShopInput struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=512"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// ShopScoped is implemented by every form that belongs to a shop.
type ShopScoped interface {
	ShopID() string
}

// ListResponse is the envelope of every paginated list endpoint.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// ShopStats is the dashboard summary card for one shop.
type ShopStats struct {
	Shop         Shop `json:"shop"`
	Customers    int  `json:"customers"`
	Vendors      int  `json:"vendors"`
	Inventory    int  `json:"inventory"`
	LowStock     int  `json:"lowStock"`
	Transactions int  `json:"transactions"`
	Expenses     int  `json:"expenses"`
}
