package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-admin-api/internal/models"
)

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func sale(id, customer, day, amount, advance, paid string) models.Transaction {
	return models.Transaction{
		ID: id, Type: models.TransactionSale, Customer: ptr(customer), CustomerName: ptr("Ann"),
		Amount: dec(amount), Advance: dec(advance), Paid: dec(paid), Date: date(day),
	}
}

func purchase(id, vendor, day, amount, paid string) models.Transaction {
	return models.Transaction{
		ID: id, Type: models.TransactionPurchase, Vendor: ptr(vendor), VendorName: ptr("Acme"),
		Amount: dec(amount), Paid: dec(paid), Date: date(day),
	}
}

func TestBuildRunningPending(t *testing.T) {
	txs := []models.Transaction{
		sale("t3", "c1", "2026-03-10", "50", "0", "20"),
		sale("t1", "c1", "2026-03-01", "100", "10", "40"),
		purchase("t9", "v1", "2026-03-02", "999", "0"),
		{ID: "t4", Type: models.TransactionPayment, Customer: ptr("c1"), Paid: dec("30"), Date: date("2026-03-12")},
		sale("t2", "c1", "2026-03-05", "0", "0", "0"),
	}

	l := Build(Party{Kind: CustomerParty, ID: "c1"}, txs)
	require.Len(t, l.Entries, 4)
	assert.Equal(t, "Ann", l.Party.Name)

	var ids []string
	running := decimal.Zero
	for _, e := range l.Entries {
		ids = append(ids, e.Transaction.ID)
		running = running.Add(e.Transaction.Amount).Add(e.Transaction.Advance).Sub(e.Transaction.Paid)
		assert.True(t, running.Equal(e.RunningPending), "%s: %s != %s", e.Transaction.ID, running, e.RunningPending)
		assert.True(t, e.Pending.Equal(e.Transaction.Pending()))
	}
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, ids)

	assert.Equal(t, "150", l.Totals.Amount.String())
	assert.Equal(t, "10", l.Totals.Advance.String())
	assert.Equal(t, "90", l.Totals.Paid.String())
	assert.Equal(t, "70", l.Totals.Pending.String())
	assert.True(t, l.Totals.Pending.Equal(l.Entries[len(l.Entries)-1].RunningPending))
}

func TestBuildTiesOrderedByCreation(t *testing.T) {
	a := purchase("a", "v1", "2026-01-01", "1", "0")
	a.CreatedAt = date("2026-01-03")
	b := purchase("b", "v1", "2026-01-01", "1", "0")
	b.CreatedAt = date("2026-01-02")

	l := Build(Party{Kind: VendorParty, ID: "v1", Name: "Acme Ltd"}, []models.Transaction{a, b})
	require.Len(t, l.Entries, 2)
	assert.Equal(t, "b", l.Entries[0].Transaction.ID)
	assert.Equal(t, "Acme Ltd", l.Party.Name)
}

func TestBuildEmpty(t *testing.T) {
	l := Build(Party{Kind: VendorParty, ID: "v404"}, []models.Transaction{sale("t1", "c1", "2026-01-01", "5", "0", "0")})
	assert.NotNil(t, l.Entries)
	assert.Empty(t, l.Entries)
	assert.True(t, l.Totals.Pending.IsZero())
}

func TestPeriodContains(t *testing.T) {
	p := Period{From: ptr(date("2026-02-01")), To: ptr(date("2026-02-28"))}
	assert.False(t, p.Contains(date("2026-01-31")))
	assert.True(t, p.Contains(date("2026-02-01")))
	assert.True(t, p.Contains(date("2026-02-28").Add(23*time.Hour)))
	assert.False(t, p.Contains(date("2026-03-01")))
	assert.True(t, Period{}.Contains(date("1999-01-01")))
}

func TestBalanceSheet(t *testing.T) {
	txs := []models.Transaction{
		sale("s1", "c1", "2026-02-02", "500", "0", "300"),
		sale("s2", "c2", "2026-02-10", "200", "0", "200"),
		purchase("p1", "v1", "2026-02-03", "400", "100"),
		{ID: "pay1", Type: models.TransactionPayment, Customer: ptr("c1"), Paid: dec("50"), Date: date("2026-02-15")},
		{ID: "pay2", Type: models.TransactionPayment, Vendor: ptr("v1"), Paid: dec("100"), Date: date("2026-02-16")},
		sale("old", "c1", "2026-01-15", "1000", "0", "0"),
	}
	expenses := []models.Expense{
		{Title: "Rent", Category: ptr("rent"), Amount: dec("150"), Date: date("2026-02-01")},
		{Title: "Power", Category: ptr("utilities"), Amount: dec("30"), Date: date("2026-02-20")},
		{Title: "Water", Category: ptr("utilities"), Amount: dec("20"), Date: date("2026-02-21")},
		{Title: "Tea", Amount: dec("5"), Date: date("2026-02-22")},
		{Title: "Last year", Amount: dec("999"), Date: date("2025-02-22")},
	}
	period := Period{From: ptr(date("2026-02-01")), To: ptr(date("2026-02-28"))}

	b := BalanceSheet(txs, expenses, period)
	assert.Equal(t, "700", b.Sales.String())
	assert.Equal(t, "400", b.Purchases.String())
	assert.Equal(t, "205", b.Expenses.String())
	assert.Equal(t, "150", b.Receivable.String())
	assert.Equal(t, "200", b.Payable.String())
	assert.Equal(t, "550", b.PaymentsReceived.String())
	assert.Equal(t, "200", b.PaymentsMade.String())
	assert.Equal(t, "95", b.Net.String())
	want := []CategoryTotal{
		{Category: "rent", Amount: dec("150")},
		{Category: "utilities", Amount: dec("50")},
		{Category: uncategorized, Amount: dec("5")},
	}
	require.Len(t, b.ExpensesByCat, len(want))
	for i, w := range want {
		assert.Equal(t, w.Category, b.ExpensesByCat[i].Category)
		assert.True(t, w.Amount.Equal(b.ExpensesByCat[i].Amount), w.Category)
	}
}

func TestStock(t *testing.T) {
	items := []models.Inventory{
		{Name: "Bolt", Quantity: dec("100"), Price: dec("0.5"), CostPrice: dec("0.2"), LowStockThreshold: ptr(dec("10"))},
		{Name: "Nut", Quantity: dec("10"), Price: dec("0.3"), LowStockThreshold: ptr(dec("10"))},
		{Name: "Glue", Quantity: dec("0"), Price: dec("4")},
	}
	r := Stock(items)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, "20", r.Rows[0].Value.String())
	assert.False(t, r.Rows[0].LowStock)
	assert.Equal(t, "3", r.Rows[1].Value.String())
	assert.True(t, r.Rows[1].LowStock)
	assert.False(t, r.Rows[2].LowStock)
	assert.Equal(t, 1, r.LowStockCount)
	assert.Equal(t, "110", r.TotalQuantity.String())
	assert.Equal(t, "23", r.TotalValue.String())
}
