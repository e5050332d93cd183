package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"shop-admin-api/internal/client"
	"shop-admin-api/internal/export"
	"shop-admin-api/internal/ledger"
	"shop-admin-api/internal/models"
)

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summaries of the current shop, printed or written as .xlsx",
	}
	cmd.AddCommand(
		transactionsReportCmd(a),
		expensesReportCmd(a),
		stockReportCmd(a),
		balanceReportCmd(a),
	)
	return cmd
}

func transactionsReportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{Use: "transactions", Short: "All transactions of a period", Args: cobra.NoArgs}
	period := periodFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write an .xlsx workbook instead of printing")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		txs, err := allTransactions(cmd.Context(), a, p)
		if err != nil {
			return err
		}
		if output != "" {
			return writeWorkbook(a.out, output, func(w io.Writer) error { return export.Transactions(w, txs) })
		}
		rows := make([][]string, 0, len(txs))
		for _, tx := range txs {
			rows = append(rows, []string{
				day(tx.Date), string(tx.Type), tx.PartyName(), money(tx.Amount), money(tx.Paid), money(tx.Pending()),
			})
		}
		return printTable(a.out, []string{"date", "type", "party", "amount", "paid", "pending"}, rows)
	}
	return cmd
}

func expensesReportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{Use: "expenses", Short: "Expenses of a period by category", Args: cobra.NoArgs}
	period := periodFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write an .xlsx workbook instead of printing")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		expenses, err := allExpenses(cmd.Context(), a, p)
		if err != nil {
			return err
		}
		if output != "" {
			return writeWorkbook(a.out, output, func(w io.Writer) error { return export.Expenses(w, expenses) })
		}
		b := ledger.BalanceSheet(nil, expenses, p)
		rows := make([][]string, 0, len(b.ExpensesByCat)+1)
		for _, c := range b.ExpensesByCat {
			rows = append(rows, []string{c.Category, money(c.Amount)})
		}
		rows = append(rows, []string{"Total", money(b.Expenses)})
		return printTable(a.out, []string{"category", "amount"}, rows)
	}
	return cmd
}

func stockReportCmd(a *app) *cobra.Command {
	var output string
	var lowOnly bool
	cmd := &cobra.Command{Use: "stock", Short: "Stock valuation of every inventory item", Args: cobra.NoArgs}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write an .xlsx workbook instead of printing")
	cmd.Flags().BoolVar(&lowOnly, "low", false, "only items at or below their low stock threshold")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q := client.Query{ShopID: a.shopID(), Sort: "name"}
		if lowOnly {
			q.Filters = map[string]string{"lowStock": strconv.FormatBool(true)}
		}
		items, err := fetchAll[models.Inventory](cmd.Context(), a.api.Inventory.List, q)
		if err != nil {
			return err
		}
		r := ledger.Stock(items)
		if output != "" {
			return writeWorkbook(a.out, output, func(w io.Writer) error { return export.Stock(w, r) })
		}
		rows := make([][]string, 0, len(r.Rows)+1)
		for _, row := range r.Rows {
			low := ""
			if row.LowStock {
				low = "low"
			}
			rows = append(rows, []string{row.Item.Name, row.Item.Quantity.String(), deref(row.Item.UOMName), money(row.Value), low})
		}
		rows = append(rows, []string{"Total", r.TotalQuantity.String(), "", money(r.TotalValue), fmt.Sprintf("%d low", r.LowStockCount)})
		return printTable(a.out, []string{"item", "quantity", "uom", "value", "stock"}, rows)
	}
	return cmd
}

func balanceReportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{Use: "balance", Short: "Balance sheet of a period", Args: cobra.NoArgs}
	period := periodFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write an .xlsx workbook instead of printing")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		txs, err := allTransactions(cmd.Context(), a, p)
		if err != nil {
			return err
		}
		expenses, err := allExpenses(cmd.Context(), a, p)
		if err != nil {
			return err
		}
		b := ledger.BalanceSheet(txs, expenses, p)
		if output != "" {
			return writeWorkbook(a.out, output, func(w io.Writer) error { return export.BalanceSheet(w, b) })
		}
		return printRecord(a.out, [][2]string{
			{"Sales", money(b.Sales)},
			{"Purchases", money(b.Purchases)},
			{"Expenses", money(b.Expenses)},
			{"Receivable", money(b.Receivable)},
			{"Payable", money(b.Payable)},
			{"Payments received", money(b.PaymentsReceived)},
			{"Payments made", money(b.PaymentsMade)},
			{"Net", money(b.Net)},
		})
	}
	return cmd
}
