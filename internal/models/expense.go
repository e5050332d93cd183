package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID        string          `json:"id"`
	Shop      string          `json:"shop"`
	Title     string          `json:"title"`
	Category  *string         `json:"category,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ExpenseInput struct {
	Shop     string          `json:"shop" validate:"required"`
	Title    string          `json:"title" validate:"required,max=255"`
	Category *string         `json:"category,omitempty" validate:"omitempty,max=64"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	Date     *time.Time      `json:"date,omitempty"`
	Notes    *string         `json:"notes,omitempty"`
}

func (in ExpenseInput) ShopID() string { return in.Shop }
