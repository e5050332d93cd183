// Package listview holds the state behind a paginated, filtered list: the
// page, the search and date filters, sort, column visibility and row
// selection. Changes are reported as a client.Query to refetch with.
package listview

import (
	"sort"
	"strings"
	"sync"
	"time"

	"shop-admin-api/internal/client"
)

const DefaultPageSize = 10

// Table is the local state of one list view. It is safe for concurrent use.
type Table struct {
	mu       sync.Mutex
	shopID   string
	page     int
	pageSize int
	total    int
	search   string
	start    *time.Time
	end      *time.Time
	sort     []string
	filters  map[string]string
	hidden   map[string]bool
	selected map[string]bool

	onChange func(client.Query)
	debounce *Debouncer
}

// Option configures a Table.
type Option func(*Table)

// WithDebounce sets the quiet period of search input.
func WithDebounce(d time.Duration) Option {
	return func(t *Table) { t.debounce = NewDebouncer(d) }
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithHiddenColumns hides columns from the start.
func WithHiddenColumns(cols ...string) Option {
	return func(t *Table) {
		for _, c := range cols {
			t.hidden[c] = true
		}
	}
}

// NewTable creates the state of a list scoped to shopID.
func NewTable(shopID string, opts ...Option) *Table {
	t := &Table{
		shopID:   shopID,
		pageSize: DefaultPageSize,
		filters:  map[string]string{},
		hidden:   map[string]bool{},
		selected: map[string]bool{},
		debounce: NewDebouncer(DefaultDebounce),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnChange registers the function told about every state change that needs a
// refetch. Search changes reach it after the debounce delay.
func (t *Table) OnChange(fn func(client.Query)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Close cancels a pending search notification.
func (t *Table) Close() { t.debounce.Stop() }

// Flush delivers a pending search notification immediately.
func (t *Table) Flush() bool { return t.debounce.Flush() }

// Query is the list request matching the current state.
func (t *Table) Query() client.Query {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queryLocked()
}

func (t *Table) queryLocked() client.Query {
	q := client.Query{
		ShopID:    t.shopID,
		Page:      t.page,
		Limit:     t.pageSize,
		Search:    t.search,
		StartDate: t.start,
		EndDate:   t.end,
		Sort:      strings.Join(t.sort, ","),
	}
	if len(t.filters) > 0 {
		q.Filters = make(map[string]string, len(t.filters))
		for k, v := range t.filters {
			q.Filters[k] = v
		}
	}
	return q
}

func (t *Table) notify() {
	t.mu.Lock()
	fn := t.onChange
	q := t.queryLocked()
	t.mu.Unlock()
	if fn != nil {
		fn(q)
	}
}

// notifyNow reports a change immediately. A pending search notification is
// dropped since the query sent now already carries the search text.
func (t *Table) notifyNow() {
	t.debounce.Stop()
	t.notify()
}

// SetSearch sets the free-text search. A non-empty search clears the date
// range, and the page goes back to the first one.
func (t *Table) SetSearch(s string) {
	s = strings.TrimSpace(s)
	t.mu.Lock()
	if s == t.search {
		t.mu.Unlock()
		return
	}
	t.search = s
	if s != "" {
		t.start, t.end = nil, nil
	}
	t.page = 0
	t.mu.Unlock()
	t.debounce.Call(t.notify)
}

// SetDateRange sets the date filter. Setting either bound clears the search;
// passing two nils removes the filter.
func (t *Table) SetDateRange(start, end *time.Time) {
	t.mu.Lock()
	t.start, t.end = start, end
	if start != nil || end != nil {
		t.search = ""
	}
	t.page = 0
	t.mu.Unlock()
	t.notifyNow()
}

// SetFilter sets an entity specific filter such as type=sale. An empty value
// removes it.
func (t *Table) SetFilter(key, value string) {
	t.mu.Lock()
	if t.filters[key] == value {
		t.mu.Unlock()
		return
	}
	if value == "" {
		delete(t.filters, key)
	} else {
		t.filters[key] = value
	}
	t.page = 0
	t.mu.Unlock()
	t.notifyNow()
}

// SetShop switches the shop, which resets paging and selection.
func (t *Table) SetShop(id string) {
	t.mu.Lock()
	t.shopID = id
	t.page = 0
	t.total = 0
	t.selected = map[string]bool{}
	t.mu.Unlock()
	t.notifyNow()
}

// SetPage moves to a zero-based page. Negative pages become 0, pages past
// the known total are clamped to the last one.
func (t *Table) SetPage(p int) {
	t.mu.Lock()
	if p < 0 {
		p = 0
	}
	if pc := t.pageCountLocked(); t.total > 0 && p >= pc {
		p = pc - 1
	}
	t.page = p
	t.mu.Unlock()
	t.notifyNow()
}

// SetPageSize changes the page size and goes back to the first page.
func (t *Table) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.pageSize = n
	t.page = 0
	t.mu.Unlock()
	t.notifyNow()
}

// ToggleSort cycles a column through ascending, descending and unsorted. The
// toggled column becomes the primary sort key.
func (t *Table) ToggleSort(col string) {
	t.mu.Lock()
	next := col
	keys := t.sort[:0:0]
	for _, k := range t.sort {
		switch k {
		case col:
			next = "-" + col
			continue
		case "-" + col:
			next = ""
			continue
		}
		keys = append(keys, k)
	}
	if next != "" {
		keys = append([]string{next}, keys...)
	}
	t.sort = keys
	t.mu.Unlock()
	t.notifyNow()
}

// Sort returns the sort keys, "-" marking descending order.
func (t *Table) Sort() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sort...)
}

// SetTotal records the total of the last response. When the total shrank
// below the current page the page clamps to the last one and a refetch is
// requested. It reports whether the page moved.
func (t *Table) SetTotal(total int) bool {
	if total < 0 {
		total = 0
	}
	t.mu.Lock()
	t.total = total
	pc := t.pageCountLocked()
	moved := false
	if t.page >= pc {
		p := pc - 1
		if p < 0 {
			p = 0
		}
		moved = p != t.page
		t.page = p
	}
	t.mu.Unlock()
	if moved {
		t.notifyNow()
	}
	return moved
}

func (t *Table) pageCountLocked() int {
	return client.Page[struct{}]{Total: t.total}.PageCount(t.pageSize)
}

// PageCount is the number of pages for the last known total.
func (t *Table) PageCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pageCountLocked()
}

func (t *Table) Page() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page
}

func (t *Table) Search() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.search
}

// DateRange returns the active date filter bounds.
func (t *Table) DateRange() (start, end *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.start, t.end
}

// SetColumnVisible shows or hides a column. Visibility is display state only
// and never triggers a refetch.
func (t *Table) SetColumnVisible(col string, visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if visible {
		delete(t.hidden, col)
	} else {
		t.hidden[col] = true
	}
}

// VisibleColumns filters cols down to the visible ones, keeping their order.
func (t *Table) VisibleColumns(cols []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !t.hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// ToggleRow flips the selection of one row.
func (t *Table) ToggleRow(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected[id] {
		delete(t.selected, id)
	} else {
		t.selected[id] = true
	}
}

// SelectAll selects the given rows, or clears the selection when every one
// of them is already selected.
func (t *Table) SelectAll(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := len(ids) > 0
	for _, id := range ids {
		if !t.selected[id] {
			all = false
			break
		}
	}
	for _, id := range ids {
		if all {
			delete(t.selected, id)
		} else {
			t.selected[id] = true
		}
	}
}

func (t *Table) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = map[string]bool{}
}

// Selected returns the selected row ids in sorted order.
func (t *Table) Selected() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.selected))
	for id := range t.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
