package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shop-admin-api/internal/client"
	"shop-admin-api/internal/export"
	"shop-admin-api/internal/ledger"
	"shop-admin-api/internal/listview"
	"shop-admin-api/internal/models"
)

// pageLimit is the largest page the API serves.
const pageLimit = 200

// fetchAll walks every page of q.
func fetchAll[T any](ctx context.Context, fetch listview.Fetcher[T], q client.Query) ([]T, error) {
	q.Page, q.Limit = 0, pageLimit
	all := []T{}
	for {
		page, err := fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.Items) == 0 || len(all) >= page.Total || q.Page+1 >= page.PageCount(q.Limit) {
			return all, nil
		}
		q.Page++
	}
}

// periodFlags registers --from and --to and returns their parser.
func periodFlags(cmd *cobra.Command) func() (ledger.Period, error) {
	from := cmd.Flags().String("from", "", "first day YYYY-MM-DD")
	to := cmd.Flags().String("to", "", "last day YYYY-MM-DD")
	return func() (ledger.Period, error) {
		var p ledger.Period
		var err error
		if p.From, err = parseDay(*from); err != nil {
			return p, err
		}
		p.To, err = parseDay(*to)
		return p, err
	}
}

// writeWorkbook writes a report to path, removing the file if writing fails.
func writeWorkbook(out io.Writer, path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func ledgerCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "ledger customer|vendor <id>",
		Short:     "Show the transactions and pending balance of a customer or vendor",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(ledger.CustomerParty), string(ledger.VendorParty)},
	}
	period := periodFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write an .xlsx workbook instead of printing")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := period()
		if err != nil {
			return err
		}
		party := ledger.Party{Kind: ledger.PartyKind(args[0]), ID: args[1]}
		q := client.Query{ShopID: a.shopID(), StartDate: p.From, EndDate: p.To, Sort: "date"}
		switch party.Kind {
		case ledger.CustomerParty:
			c, err := a.api.Customers.Get(ctx, party.ID)
			if err != nil {
				return err
			}
			party.Name = c.Name
			q.Filters = map[string]string{"customerId": party.ID}
		case ledger.VendorParty:
			v, err := a.api.Vendors.Get(ctx, party.ID)
			if err != nil {
				return err
			}
			party.Name = v.Name
			q.Filters = map[string]string{"vendorId": party.ID}
		default:
			return fmt.Errorf("unknown party %q, want customer or vendor", args[0])
		}

		txs, err := fetchAll[models.Transaction](ctx, a.api.Transactions.List, q)
		if err != nil {
			return err
		}
		l := ledger.Build(party, txs)
		if output != "" {
			return writeWorkbook(a.out, output, func(w io.Writer) error { return export.Ledger(w, l) })
		}
		return printLedger(a.out, l)
	}
	return cmd
}

func printLedger(w io.Writer, l ledger.Ledger) error {
	fmt.Fprintf(w, "%s %s\n\n", l.Party.Kind, l.Party.Name)
	rows := make([][]string, 0, len(l.Entries)+1)
	for _, e := range l.Entries {
		tx := e.Transaction
		rows = append(rows, []string{
			day(tx.Date), string(tx.Type), money(tx.Amount), money(tx.Advance), money(tx.Paid),
			money(e.Pending), money(e.RunningPending), deref(tx.Notes),
		})
	}
	t := l.Totals
	rows = append(rows, []string{"Total", "", money(t.Amount), money(t.Advance), money(t.Paid), money(t.Pending), "", ""})
	return printTable(w, []string{"date", "type", "amount", "advance", "paid", "pending", "balance", "notes"}, rows)
}

func allTransactions(ctx context.Context, a *app, p ledger.Period) ([]models.Transaction, error) {
	return fetchAll[models.Transaction](ctx, a.api.Transactions.List, client.Query{ShopID: a.shopID(), StartDate: p.From, EndDate: p.To, Sort: "date"})
}

func allExpenses(ctx context.Context, a *app, p ledger.Period) ([]models.Expense, error) {
	return fetchAll[models.Expense](ctx, a.api.Expenses.List, client.Query{ShopID: a.shopID(), StartDate: p.From, EndDate: p.To, Sort: "date"})
}
