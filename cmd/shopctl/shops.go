package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shop-admin-api/internal/client"
)

func shopsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shops",
		Short: "List the shops of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.api.Shops.List(cmd.Context(), client.Query{Limit: 200})
			if err != nil {
				return err
			}
			current := a.session.ShopID()
			rows := make([][]string, 0, len(page.Items))
			for _, s := range page.Items {
				mark := ""
				if s.ID == current {
					mark = "*"
				}
				rows = append(rows, []string{mark, s.ID, s.Name, deref(s.Address), deref(s.Phone)})
			}
			return printTable(a.out, []string{"", "ID", "Name", "Address", "Phone"}, rows)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats [shopId]",
		Short: "Show record counts of a shop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.shopID()
			if len(args) == 1 {
				id = args[0]
			}
			st, err := a.api.ShopStats(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printRecord(a.out, [][2]string{
				{"Shop", st.Shop.Name},
				{"Customers", strconv.Itoa(st.Customers)},
				{"Vendors", strconv.Itoa(st.Vendors)},
				{"Inventory", strconv.Itoa(st.Inventory)},
				{"Low stock", strconv.Itoa(st.LowStock)},
				{"Transactions", strconv.Itoa(st.Transactions)},
				{"Expenses", strconv.Itoa(st.Expenses)},
			})
		},
	})
	return cmd
}

func useCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <shopId>",
		Short: "Select the shop used by shop-scoped commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shop, err := a.api.Shops.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.session.SetShop(shop.ID); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Using shop %s (%s)\n", shop.Name, shop.ID)
			return nil
		},
	}
}
