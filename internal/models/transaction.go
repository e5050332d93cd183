package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes purchases from vendors, sales to customers
// and standalone payments.
type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionSale     TransactionType = "sale"
	TransactionPayment  TransactionType = "payment"
)

// Transaction is a purchase, sale or payment recorded against a shop.
type Transaction struct {
	ID               string            `json:"id"`
	Shop             string            `json:"shop"`
	Type             TransactionType   `json:"type"`
	Customer         *string           `json:"customer,omitempty"`
	CustomerName     *string           `json:"customerName,omitempty"`
	Vendor           *string           `json:"vendor,omitempty"`
	VendorName       *string           `json:"vendorName,omitempty"`
	Amount           decimal.Decimal   `json:"amount"`
	Advance          decimal.Decimal   `json:"advance"`
	Paid             decimal.Decimal   `json:"paid"`
	Date             time.Time         `json:"date"`
	Notes            *string           `json:"notes,omitempty"`
	InventoryDetails []InventoryDetail `json:"inventoryDetails"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Pending is the outstanding balance of the transaction: amount + advance - paid.
func (t Transaction) Pending() decimal.Decimal {
	return t.Amount.Add(t.Advance).Sub(t.Paid)
}

// PartyName returns the customer or vendor name, whichever is set.
func (t Transaction) PartyName() string {
	if t.CustomerName != nil {
		return *t.CustomerName
	}
	if t.VendorName != nil {
		return *t.VendorName
	}
	return ""
}

// InventoryDetail is one line item of a transaction.
type InventoryDetail struct {
	ID        string          `json:"id,omitempty"`
	Inventory *string         `json:"inventory,omitempty"`
	Name      string          `json:"name" validate:"required,max=255"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
}

// LineTotal is quantity * price.
func (d InventoryDetail) LineTotal() decimal.Decimal {
	return d.Quantity.Mul(d.Price)
}

type TransactionInput struct {
	Shop             string            `json:"shop" validate:"required"`
	Type             TransactionType   `json:"type" validate:"required,oneof=purchase sale payment"`
	Customer         *string           `json:"customer,omitempty"`
	Vendor           *string           `json:"vendor,omitempty"`
	Amount           decimal.Decimal   `json:"amount" validate:"gte=0"`
	Advance          decimal.Decimal   `json:"advance" validate:"gte=0"`
	Paid             decimal.Decimal   `json:"paid" validate:"gte=0"`
	Date             *time.Time        `json:"date,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	InventoryDetails []InventoryDetail `json:"inventoryDetails,omitempty" validate:"omitempty,dive"`
}

func (in TransactionInput) ShopID() string { return in.Shop }

// StockDelta is the signed change a transaction of this type applies to
// the stocked quantity of its line items.
func (t TransactionType) StockDelta(qty decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionSale:
		return qty.Neg()
	case TransactionPurchase:
		return qty
	default:
		return decimal.Zero
	}
}
