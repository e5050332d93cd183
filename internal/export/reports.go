package export

import (
	"io"

	"github.com/shopspring/decimal"

	"shop-admin-api/internal/ledger"
	"shop-admin-api/internal/models"
)

const totalLabel = "Total"

// Ledger writes the ledger of one customer or vendor.
func Ledger(w io.Writer, l ledger.Ledger) error {
	s, err := newSheet("Ledger", "Date", "Type", "Notes", "Amount", "Advance", "Paid", "Pending", "Running Pending")
	if err != nil {
		return err
	}
	for _, e := range l.Entries {
		tx := e.Transaction
		if err := s.write(0, tx.Date, string(tx.Type), tx.Notes, tx.Amount, tx.Advance, tx.Paid, e.Pending, e.RunningPending); err != nil {
			return err
		}
	}
	if err := s.styleColumns(4, 5, 6, 7, 8); err != nil {
		return err
	}
	t := l.Totals
	if err := s.write(s.totals, totalLabel, "", "", t.Amount, t.Advance, t.Paid, t.Pending, t.Pending); err != nil {
		return err
	}
	return s.flush(w)
}

// Transactions writes a transaction report.
func Transactions(w io.Writer, txs []models.Transaction) error {
	s, err := newSheet("Transactions", "Date", "Type", "Party", "Items", "Amount", "Advance", "Paid", "Pending")
	if err != nil {
		return err
	}
	var t ledger.Totals
	for _, tx := range txs {
		if err := s.write(0, tx.Date, string(tx.Type), tx.PartyName(), len(tx.InventoryDetails), tx.Amount, tx.Advance, tx.Paid, tx.Pending()); err != nil {
			return err
		}
		t.Amount = t.Amount.Add(tx.Amount)
		t.Advance = t.Advance.Add(tx.Advance)
		t.Paid = t.Paid.Add(tx.Paid)
		t.Pending = t.Pending.Add(tx.Pending())
	}
	if err := s.styleColumns(5, 6, 7, 8); err != nil {
		return err
	}
	if err := s.write(s.totals, totalLabel, "", "", "", t.Amount, t.Advance, t.Paid, t.Pending); err != nil {
		return err
	}
	return s.flush(w)
}

// Expenses writes an expense report.
func Expenses(w io.Writer, expenses []models.Expense) error {
	s, err := newSheet("Expenses", "Date", "Title", "Category", "Notes", "Amount")
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, e := range expenses {
		if err := s.write(0, e.Date, e.Title, e.Category, e.Notes, e.Amount); err != nil {
			return err
		}
		total = total.Add(e.Amount)
	}
	if err := s.styleColumns(5); err != nil {
		return err
	}
	if err := s.write(s.totals, totalLabel, "", "", "", total); err != nil {
		return err
	}
	return s.flush(w)
}

// Stock writes the stock valuation.
func Stock(w io.Writer, r ledger.StockReport) error {
	s, err := newSheet("Stock", "Item", "SKU", "UOM", "Quantity", "Cost Price", "Price", "Value", "Low Stock")
	if err != nil {
		return err
	}
	for _, row := range r.Rows {
		it := row.Item
		low := ""
		if row.LowStock {
			low = "yes"
		}
		if err := s.write(0, it.Name, it.SKU, it.UOMName, it.Quantity, it.CostPrice, it.Price, row.Value, low); err != nil {
			return err
		}
	}
	if err := s.styleColumns(5, 6, 7); err != nil {
		return err
	}
	if err := s.write(s.totals, totalLabel, "", "", r.TotalQuantity, "", "", r.TotalValue, r.LowStockCount); err != nil {
		return err
	}
	return s.flush(w)
}

// BalanceSheet writes the balance of a period as label and amount pairs,
// followed by the expense breakdown by category.
func BalanceSheet(w io.Writer, b ledger.Balance) error {
	s, err := newSheet("Balance Sheet", "Item", "Amount")
	if err != nil {
		return err
	}
	from, to := "", ""
	if b.Period.From != nil {
		from = b.Period.From.Format(dateLayout)
	}
	if b.Period.To != nil {
		to = b.Period.To.Format(dateLayout)
	}
	if err := s.write(0, "From", from); err != nil {
		return err
	}
	if err := s.write(0, "To", to); err != nil {
		return err
	}
	lines := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Sales", b.Sales},
		{"Purchases", b.Purchases},
		{"Expenses", b.Expenses},
		{"Receivable", b.Receivable},
		{"Payable", b.Payable},
		{"Payments Received", b.PaymentsReceived},
		{"Payments Made", b.PaymentsMade},
	}
	for _, l := range lines {
		if err := s.write(0, l.label, l.amount); err != nil {
			return err
		}
	}
	for _, c := range b.ExpensesByCat {
		if err := s.write(0, "Expenses: "+c.Category, c.Amount); err != nil {
			return err
		}
	}
	if err := s.styleColumns(2); err != nil {
		return err
	}
	if err := s.write(s.totals, "Net", b.Net); err != nil {
		return err
	}
	return s.flush(w)
}
