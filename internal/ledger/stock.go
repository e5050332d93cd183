package ledger

import (
	"github.com/shopspring/decimal"

	"shop-admin-api/internal/models"
)

type StockRow struct {
	Item     models.Inventory
	Value    decimal.Decimal
	LowStock bool
}

type StockReport struct {
	Rows          []StockRow
	TotalQuantity decimal.Decimal
	TotalValue    decimal.Decimal
	LowStockCount int
}

// Stock values every item at quantity * cost price, using the sale price for
// items without a cost. An item is low on stock when its quantity is at or
// below its threshold.
func Stock(items []models.Inventory) StockReport {
	r := StockReport{Rows: make([]StockRow, 0, len(items))}
	for _, it := range items {
		unit := it.CostPrice
		if unit.IsZero() {
			unit = it.Price
		}
		row := StockRow{
			Item:     it,
			Value:    it.Quantity.Mul(unit),
			LowStock: it.LowStockThreshold != nil && it.Quantity.LessThanOrEqual(*it.LowStockThreshold),
		}
		if row.LowStock {
			r.LowStockCount++
		}
		r.TotalQuantity = r.TotalQuantity.Add(it.Quantity)
		r.TotalValue = r.TotalValue.Add(row.Value)
		r.Rows = append(r.Rows, row)
	}
	return r
}
