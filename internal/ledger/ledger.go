// Package ledger derives the reports of a shop from its records: the ledger
// of one customer or vendor, the balance sheet of a period and the stock
// valuation.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shop-admin-api/internal/models"
)

type PartyKind string

const (
	CustomerParty PartyKind = "customer"
	VendorParty   PartyKind = "vendor"
)

// Party is the customer or vendor a ledger is about.
type Party struct {
	Kind PartyKind
	ID   string
	Name string
}

// Entry is one transaction of a ledger with its pending amount and the
// pending total up to and including it.
type Entry struct {
	Transaction    models.Transaction
	Pending        decimal.Decimal
	RunningPending decimal.Decimal
}

type Totals struct {
	Amount  decimal.Decimal
	Advance decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

func (t *Totals) add(tx models.Transaction) {
	t.Amount = t.Amount.Add(tx.Amount)
	t.Advance = t.Advance.Add(tx.Advance)
	t.Paid = t.Paid.Add(tx.Paid)
	t.Pending = t.Pending.Add(tx.Pending())
}

// Ledger lists the transactions of one party in date order.
type Ledger struct {
	Party   Party
	Entries []Entry
	Totals  Totals
}

// Build returns the ledger of party over txs. Transactions of other parties
// are skipped; an empty party id keeps all of them.
func Build(party Party, txs []models.Transaction) Ledger {
	mine := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if party.ID == "" || belongsTo(party, tx) {
			mine = append(mine, tx)
		}
	}
	sortByDate(mine)

	l := Ledger{Party: party, Entries: make([]Entry, 0, len(mine))}
	for _, tx := range mine {
		l.Totals.add(tx)
		if l.Party.Name == "" && party.ID != "" {
			l.Party.Name = tx.PartyName()
		}
		l.Entries = append(l.Entries, Entry{
			Transaction:    tx,
			Pending:        tx.Pending(),
			RunningPending: l.Totals.Pending,
		})
	}
	return l
}

func belongsTo(p Party, tx models.Transaction) bool {
	switch p.Kind {
	case CustomerParty:
		return tx.Customer != nil && *tx.Customer == p.ID
	case VendorParty:
		return tx.Vendor != nil && *tx.Vendor == p.ID
	}
	return false
}

// sortByDate orders by date, then creation time, keeping input order for ties.
func sortByDate(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}

// Period bounds a report by date. A nil bound is open; To includes its whole day.
type Period struct {
	From *time.Time
	To   *time.Time
}

func (p Period) Contains(t time.Time) bool {
	if p.From != nil && t.Before(*p.From) {
		return false
	}
	if p.To != nil && !t.Before(p.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
