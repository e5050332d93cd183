package listview

import (
	"context"
	"sync"

	"shop-admin-api/internal/client"
)

// Fetcher loads one page of T.
type Fetcher[T any] func(ctx context.Context, q client.Query) (client.Page[T], error)

// View binds a Table to a fetcher and keeps the last loaded page.
type View[T any] struct {
	table *Table
	fetch Fetcher[T]

	mu    sync.Mutex
	gen   uint64 // bumped by every Refresh; only the latest may store
	items []T
	total int
	err   error
}

func NewView[T any](table *Table, fetch Fetcher[T]) *View[T] {
	return &View[T]{table: table, fetch: fetch, items: []T{}}
}

// Table returns the state the view reads its query from.
func (v *View[T]) Table() *Table { return v.table }

// Refresh loads the page for the table's current query. The new total is fed
// back to the table, which may clamp the page and ask for another load.
// On error the previous items stay and the error is kept. A response that
// lands after a newer Refresh has started is dropped.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	page, err := v.fetch(ctx, v.table.Query())
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return err
	}
	if err != nil {
		v.err = err
		v.mu.Unlock()
		return err
	}
	v.items = page.Items
	if v.items == nil {
		v.items = []T{}
	}
	v.total = page.Total
	v.err = nil
	v.mu.Unlock()

	v.table.SetTotal(page.Total)
	return nil
}

// Bind refreshes the view whenever the table state changes.
func (v *View[T]) Bind(ctx context.Context) {
	v.table.OnChange(func(client.Query) { _ = v.Refresh(ctx) })
}

func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.items
}

func (v *View[T]) Total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// Err is the error of the last refresh, nil after a successful one.
func (v *View[T]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
