package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"shop-admin-api/internal/models"
)

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// Balance is the balance sheet of a shop over a period.
type Balance struct {
	Period           Period
	Sales            decimal.Decimal
	Purchases        decimal.Decimal
	Expenses         decimal.Decimal
	ExpensesByCat    []CategoryTotal
	Receivable       decimal.Decimal // pending on the customer side
	Payable          decimal.Decimal // pending on the vendor side
	PaymentsReceived decimal.Decimal
	PaymentsMade     decimal.Decimal
	Net              decimal.Decimal // sales - purchases - expenses
}

const uncategorized = "Uncategorized"

// BalanceSheet sums the transactions and expenses dated within period.
func BalanceSheet(txs []models.Transaction, expenses []models.Expense, period Period) Balance {
	b := Balance{Period: period}
	for _, tx := range txs {
		if !period.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case models.TransactionSale:
			b.Sales = b.Sales.Add(tx.Amount)
		case models.TransactionPurchase:
			b.Purchases = b.Purchases.Add(tx.Amount)
		}
		switch {
		case tx.Customer != nil:
			b.Receivable = b.Receivable.Add(tx.Pending())
			b.PaymentsReceived = b.PaymentsReceived.Add(tx.Paid)
		case tx.Vendor != nil:
			b.Payable = b.Payable.Add(tx.Pending())
			b.PaymentsMade = b.PaymentsMade.Add(tx.Paid)
		}
	}

	byCat := map[string]decimal.Decimal{}
	for _, e := range expenses {
		if !period.Contains(e.Date) {
			continue
		}
		b.Expenses = b.Expenses.Add(e.Amount)
		cat := uncategorized
		if e.Category != nil && *e.Category != "" {
			cat = *e.Category
		}
		byCat[cat] = byCat[cat].Add(e.Amount)
	}
	b.ExpensesByCat = make([]CategoryTotal, 0, len(byCat))
	for cat, amt := range byCat {
		b.ExpensesByCat = append(b.ExpensesByCat, CategoryTotal{Category: cat, Amount: amt})
	}
	sort.Slice(b.ExpensesByCat, func(i, j int) bool {
		if c := b.ExpensesByCat[i].Amount.Cmp(b.ExpensesByCat[j].Amount); c != 0 {
			return c > 0
		}
		return b.ExpensesByCat[i].Category < b.ExpensesByCat[j].Category
	})

	b.Net = b.Sales.Sub(b.Purchases).Sub(b.Expenses)
	return b
}
