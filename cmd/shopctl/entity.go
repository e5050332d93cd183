package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"shop-admin-api/internal/client"
	"shop-admin-api/internal/dialog"
	"shop-admin-api/internal/listview"
)

// column renders one field of T.
type column[T any] struct {
	name  string
	value func(T) string
}

// entity describes how shopctl lists, shows, creates and deletes one kind
// of record.
type entity[T, C, U any] struct {
	name     string
	singular string
	resource func(*client.Client) *client.Resource[T, C, U]
	id       func(T) string
	label    func(T) string
	columns  []column[T]
	hidden   []string          // columns off unless --columns names them
	filters  map[string]string // flag name -> query parameter
	dated    bool              // supports --from/--to
	// createFlags registers the create flags and returns the form builder;
	// nil means the entity cannot be created from shopctl.
	createFlags func(fs *pflag.FlagSet) func(shopID string) (C, error)
}

func entityCmd[T, C, U any](a *app, e entity[T, C, U]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   e.name,
		Short: "Manage " + e.name,
	}
	cmd.AddCommand(listCmd(a, e), getCmd(a, e), deleteCmd(a, e))
	if e.createFlags != nil {
		cmd.AddCommand(createCmd(a, e))
	}
	return cmd
}

type listOptions struct {
	page    int
	limit   int
	search  string
	from    string
	to      string
	sort    []string
	columns []string
	hide    []string
	filters map[string]*string
}

func listCmd[T, C, U any](a *app, e entity[T, C, U]) *cobra.Command {
	opts := listOptions{filters: map[string]*string{}}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + e.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), a, e, opts)
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&opts.page, "page", 1, "page number, starting at 1")
	fs.IntVar(&opts.limit, "limit", listview.DefaultPageSize, "rows per page")
	fs.StringVar(&opts.search, "search", "", "free-text search")
	fs.StringSliceVar(&opts.sort, "sort", nil, "sort columns, prefix with - for descending")
	fs.StringSliceVar(&opts.columns, "columns", nil, "show these extra columns")
	fs.StringSliceVar(&opts.hide, "hide", nil, "hide these columns")
	if e.dated {
		fs.StringVar(&opts.from, "from", "", "start date YYYY-MM-DD")
		fs.StringVar(&opts.to, "to", "", "end date YYYY-MM-DD")
	}
	for flagName := range e.filters {
		opts.filters[flagName] = fs.String(flagName, "", "filter by "+flagName)
	}
	return cmd
}

func runList[T, C, U any](ctx context.Context, a *app, e entity[T, C, U], opts listOptions) error {
	if opts.search != "" && (opts.from != "" || opts.to != "") {
		return errors.New("--search cannot be combined with --from/--to")
	}
	from, err := parseDay(opts.from)
	if err != nil {
		return err
	}
	to, err := parseDay(opts.to)
	if err != nil {
		return err
	}

	hidden := append(append([]string(nil), e.hidden...), opts.hide...)
	tbl := listview.NewTable(a.shopID(), listview.WithPageSize(opts.limit), listview.WithHiddenColumns(hidden...))
	defer tbl.Close()
	for _, c := range opts.columns {
		tbl.SetColumnVisible(c, true)
	}
	for _, c := range opts.hide {
		tbl.SetColumnVisible(c, false)
	}
	for flagName, param := range e.filters {
		if v := opts.filters[flagName]; v != nil {
			tbl.SetFilter(param, *v)
		}
	}
	if from != nil || to != nil {
		tbl.SetDateRange(from, to)
	}
	tbl.SetSearch(opts.search)
	for i := len(opts.sort) - 1; i >= 0; i-- {
		key := opts.sort[i]
		col := key
		if len(key) > 0 && key[0] == '-' {
			col = key[1:]
			tbl.ToggleSort(col)
		}
		tbl.ToggleSort(col)
	}

	view := listview.NewView(tbl, e.resource(a.api).List)
	requested := max(opts.page-1, 0)
	tbl.SetPage(requested)
	if err := view.Refresh(ctx); err != nil {
		return err
	}
	if tbl.Page() != requested {
		// The page was past the end; load the last one instead.
		if err := view.Refresh(ctx); err != nil {
			return err
		}
	}

	names := make([]string, len(e.columns))
	for i, c := range e.columns {
		names[i] = c.name
	}
	visible := map[string]bool{}
	for _, n := range tbl.VisibleColumns(names) {
		visible[n] = true
	}
	var headers []string
	for _, c := range e.columns {
		if visible[c.name] {
			headers = append(headers, c.name)
		}
	}
	rows := make([][]string, 0, len(view.Items()))
	for _, item := range view.Items() {
		var r []string
		for _, c := range e.columns {
			if visible[c.name] {
				r = append(r, c.value(item))
			}
		}
		rows = append(rows, r)
	}
	if err := printTable(a.out, headers, rows); err != nil {
		return err
	}
	pages := max(tbl.PageCount(), 1)
	fmt.Fprintf(a.out, "\npage %d/%d, %d %s\n", tbl.Page()+1, pages, view.Total(), e.name)
	return nil
}

func getCmd[T, C, U any](a *app, e entity[T, C, U]) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one of the " + e.name,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := e.resource(a.api).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fields := make([][2]string, 0, len(e.columns))
			for _, c := range e.columns {
				fields = append(fields, [2]string{c.name, c.value(*item)})
			}
			return printRecord(a.out, fields)
		},
	}
}

func createCmd[T, C, U any](a *app, e entity[T, C, U]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a " + e.singular,
		Args:  cobra.NoArgs,
	}
	build := e.createFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		in, err := build(a.shopID())
		if err != nil {
			return err
		}
		var d dialog.Controller[T]
		if err := d.Open(dialog.Create, nil); err != nil {
			return err
		}
		var created *T
		err = d.Submit(cmd.Context(), func(ctx context.Context, _ dialog.State, _ *T) error {
			created, err = e.resource(a.api).Create(ctx, in)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created %s %s\n", e.singular, e.id(*created))
		return nil
	}
	return cmd
}

func deleteCmd[T, C, U any](a *app, e entity[T, C, U]) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + e.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := e.resource(a.api)
			row, err := res.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var d dialog.Controller[T]
			if err := d.Open(dialog.Delete, row); err != nil {
				return err
			}
			if !yes && !a.confirm(fmt.Sprintf("Delete %s %q?", e.singular, e.label(*row))) {
				d.Close()
				fmt.Fprintln(a.out, "Cancelled")
				return nil
			}
			err = d.Submit(cmd.Context(), func(ctx context.Context, _ dialog.State, row *T) error {
				return res.Delete(ctx, e.id(*row))
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s %s\n", e.singular, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func itoa(n int) string { return strconv.Itoa(n) }
