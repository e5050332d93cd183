package listview

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-admin-api/internal/client"
)

// recorder collects the queries a table reports.
type recorder struct {
	mu      sync.Mutex
	queries []client.Query
}

func (r *recorder) record(q client.Query) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
}

func (r *recorder) all() []client.Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]client.Query(nil), r.queries...)
}

func newRecordedTable(t *testing.T, opts ...Option) (*Table, *recorder) {
	t.Helper()
	opts = append([]Option{WithDebounce(time.Hour)}, opts...)
	tbl := NewTable("s1", opts...)
	rec := &recorder{}
	tbl.OnChange(rec.record)
	t.Cleanup(tbl.Close)
	return tbl, rec
}

func day(s string) *time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return &d
}

func TestSearchAndDateRangeAreExclusive(t *testing.T) {
	for _, entity := range []string{"customers", "vendors"} {
		t.Run(entity, func(t *testing.T) {
			tbl, _ := newRecordedTable(t)

			tbl.SetDateRange(day("2026-01-01"), day("2026-01-31"))
			tbl.SetSearch("acme")
			start, end := tbl.DateRange()
			assert.Nil(t, start)
			assert.Nil(t, end)
			assert.Equal(t, "acme", tbl.Search())

			tbl.SetDateRange(day("2026-02-01"), nil)
			start, _ = tbl.DateRange()
			require.NotNil(t, start)
			assert.Empty(t, tbl.Search())

			q := tbl.Query()
			assert.Empty(t, q.Search)
			assert.NotNil(t, q.StartDate)
		})
	}
}

func TestClearingSearchKeepsDateRange(t *testing.T) {
	tbl, _ := newRecordedTable(t)
	tbl.SetDateRange(day("2026-03-01"), day("2026-03-02"))
	tbl.SetSearch("")
	start, end := tbl.DateRange()
	assert.NotNil(t, start)
	assert.NotNil(t, end)
}

func TestFilterChangesResetPage(t *testing.T) {
	changes := map[string]func(*Table){
		"search":     func(tbl *Table) { tbl.SetSearch("bolt") },
		"date range": func(tbl *Table) { tbl.SetDateRange(day("2026-01-01"), nil) },
		"filter":     func(tbl *Table) { tbl.SetFilter("type", "sale") },
		"page size":  func(tbl *Table) { tbl.SetPageSize(50) },
		"shop":       func(tbl *Table) { tbl.SetShop("s2") },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			tbl, _ := newRecordedTable(t)
			tbl.SetTotal(100)
			tbl.SetPage(4)
			require.Equal(t, 4, tbl.Page())
			change(tbl)
			assert.Zero(t, tbl.Page())
		})
	}
}

func TestSetTotalClampsPage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		total     int
		wantPage  int
		wantMoved bool
	}{
		{"within range", 2, 100, 2, false},
		{"shrunk below page", 5, 30, 2, true},
		{"exactly on boundary", 3, 30, 2, true},
		{"emptied", 4, 0, 0, true},
		{"first page empty", 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, rec := newRecordedTable(t)
			tbl.SetTotal(1000)
			tbl.SetPage(tt.page)
			before := len(rec.all())

			moved := tbl.SetTotal(tt.total)
			assert.Equal(t, tt.wantMoved, moved)
			assert.Equal(t, tt.wantPage, tbl.Page())
			if tt.wantMoved {
				assert.Len(t, rec.all(), before+1)
				assert.Equal(t, tt.wantPage, rec.all()[before].Page)
			} else {
				assert.Len(t, rec.all(), before)
			}
		})
	}
}

func TestSetPageClampsToKnownTotal(t *testing.T) {
	tbl, _ := newRecordedTable(t, WithPageSize(20))
	tbl.SetTotal(45)
	tbl.SetPage(9)
	assert.Equal(t, 2, tbl.Page())
	tbl.SetPage(-3)
	assert.Zero(t, tbl.Page())
	assert.Equal(t, 3, tbl.PageCount())
}

func TestOnlySearchIsDebounced(t *testing.T) {
	tbl, rec := newRecordedTable(t)

	tbl.SetSearch("b")
	tbl.SetSearch("bo")
	tbl.SetSearch("bolt")
	assert.Empty(t, rec.all())

	require.True(t, tbl.Flush())
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, "bolt", got[0].Search)

	tbl.SetPage(1)
	tbl.ToggleSort("name")
	tbl.SetFilter("lowStock", "true")
	assert.Len(t, rec.all(), 4)
}

func TestImmediateChangeDropsPendingSearch(t *testing.T) {
	tbl, rec := newRecordedTable(t)

	tbl.SetSearch("nails")
	tbl.SetFilter("uomId", "u1")
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, "nails", got[0].Search)
	assert.Equal(t, "u1", got[0].Filters["uomId"])
	assert.False(t, tbl.Flush())
}

func TestSearchFiresAfterQuietPeriod(t *testing.T) {
	tbl := NewTable("s1", WithDebounce(15*time.Millisecond))
	defer tbl.Close()
	rec := &recorder{}
	tbl.OnChange(rec.record)

	tbl.SetSearch("x")
	tbl.SetSearch("xy")
	assert.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "xy", rec.all()[0].Search)
}

func TestQueryReflectsState(t *testing.T) {
	tbl, _ := newRecordedTable(t, WithPageSize(25))
	tbl.SetFilter("type", "purchase")
	tbl.ToggleSort("date")
	tbl.ToggleSort("date")
	tbl.ToggleSort("amount")

	q := tbl.Query()
	assert.Equal(t, "s1", q.ShopID)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, "amount,-date", q.Sort)
	assert.Equal(t, map[string]string{"type": "purchase"}, q.Filters)

	q.Filters["type"] = "sale"
	assert.Equal(t, "purchase", tbl.Query().Filters["type"])
}

func TestToggleSortCycles(t *testing.T) {
	tbl, _ := newRecordedTable(t)
	tbl.ToggleSort("name")
	assert.Equal(t, []string{"name"}, tbl.Sort())
	tbl.ToggleSort("name")
	assert.Equal(t, []string{"-name"}, tbl.Sort())
	tbl.ToggleSort("name")
	assert.Empty(t, tbl.Sort())
}

func TestColumnVisibility(t *testing.T) {
	tbl, rec := newRecordedTable(t, WithHiddenColumns("notes"))
	cols := []string{"name", "phone", "email", "notes"}
	assert.Equal(t, []string{"name", "phone", "email"}, tbl.VisibleColumns(cols))

	tbl.SetColumnVisible("phone", false)
	tbl.SetColumnVisible("notes", true)
	assert.Equal(t, []string{"name", "email", "notes"}, tbl.VisibleColumns(cols))
	assert.Empty(t, rec.all())
}

func TestRowSelection(t *testing.T) {
	tbl, _ := newRecordedTable(t)
	tbl.ToggleRow("b")
	tbl.ToggleRow("a")
	tbl.ToggleRow("b")
	assert.Equal(t, []string{"a"}, tbl.Selected())

	tbl.SelectAll([]string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Selected())
	tbl.SelectAll([]string{"a", "b", "c"})
	assert.Empty(t, tbl.Selected())

	tbl.ToggleRow("z")
	tbl.SetShop("s2")
	assert.Empty(t, tbl.Selected())
}
