package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory is a stocked item of a shop.
type Inventory struct {
	ID                string           `json:"id"`
	Shop              string           `json:"shop"`
	UOM               *string          `json:"uom,omitempty"`
	UOMName           *string          `json:"uomName,omitempty"`
	Name              string           `json:"name"`
	SKU               *string          `json:"sku,omitempty"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Price             decimal.Decimal  `json:"price"`
	CostPrice         decimal.Decimal  `json:"costPrice"`
	LowStockThreshold *decimal.Decimal `json:"lowStockThreshold,omitempty"`
	Description       *string          `json:"description,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type InventoryInput struct {
	Shop              string           `json:"shop" validate:"required"`
	UOM               *string          `json:"uom,omitempty"`
	Name              string           `json:"name" validate:"required,max=255"`
	SKU               *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Quantity          decimal.Decimal  `json:"quantity" validate:"gte=0"`
	Price             decimal.Decimal  `json:"price" validate:"gte=0"`
	CostPrice         decimal.Decimal  `json:"costPrice" validate:"gte=0"`
	LowStockThreshold *decimal.Decimal `json:"lowStockThreshold,omitempty" validate:"omitempty,gte=0"`
	Description       *string          `json:"description,omitempty"`
}

func (in InventoryInput) ShopID() string { return in.Shop }
