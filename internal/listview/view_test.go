package listview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-admin-api/internal/client"
)

type row struct{ ID string }

// pagedRows serves n rows and records the pages asked for.
type pagedRows struct {
	mu    sync.Mutex
	n     int
	pages []int
	err   error
}

func (p *pagedRows) fetch(_ context.Context, q client.Query) (client.Page[row], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append(p.pages, q.Page)
	if p.err != nil {
		return client.Page[row]{}, p.err
	}
	var items []row
	for i := q.Page * q.Limit; i < p.n && i < (q.Page+1)*q.Limit; i++ {
		items = append(items, row{ID: string(rune('a' + i%26))})
	}
	return client.Page[row]{Items: items, Total: p.n}, nil
}

func (p *pagedRows) set(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n, p.err = n, err
}

func (p *pagedRows) asked() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.pages...)
}

func TestViewRefreshClampsAfterShrink(t *testing.T) {
	src := &pagedRows{n: 45}
	tbl := NewTable("s1", WithDebounce(time.Hour))
	defer tbl.Close()
	v := NewView(tbl, src.fetch)
	v.Bind(context.Background())

	require.NoError(t, v.Refresh(context.Background()))
	tbl.SetPage(4)
	assert.Len(t, v.Items(), 5)

	src.set(12, nil)
	require.NoError(t, v.Refresh(context.Background()))

	assert.Equal(t, 1, tbl.Page())
	assert.Equal(t, 12, v.Total())
	assert.Len(t, v.Items(), 2)
	assert.Equal(t, []int{0, 4, 4, 1}, src.asked())
}

func TestViewKeepsItemsOnError(t *testing.T) {
	src := &pagedRows{n: 3}
	tbl := NewTable("s1", WithDebounce(time.Hour))
	defer tbl.Close()
	v := NewView(tbl, src.fetch)

	require.NoError(t, v.Refresh(context.Background()))
	require.Len(t, v.Items(), 3)

	boom := errors.New("boom")
	src.set(3, boom)
	assert.ErrorIs(t, v.Refresh(context.Background()), boom)
	assert.ErrorIs(t, v.Err(), boom)
	assert.Len(t, v.Items(), 3)

	src.set(0, nil)
	require.NoError(t, v.Refresh(context.Background()))
	assert.NoError(t, v.Err())
	assert.NotNil(t, v.Items())
	assert.Empty(t, v.Items())
}

func TestBoundViewRefetchesOnSearch(t *testing.T) {
	src := &pagedRows{n: 3}
	tbl := NewTable("s1", WithDebounce(time.Hour))
	defer tbl.Close()
	v := NewView(tbl, src.fetch)
	v.Bind(context.Background())

	tbl.SetSearch("a")
	assert.Empty(t, src.asked())
	tbl.Flush()
	assert.Equal(t, []int{0}, src.asked())
	assert.Same(t, tbl, v.Table())
}

func TestViewDropsResponseOvertakenByNewerSearch(t *testing.T) {
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	fetch := func(_ context.Context, q client.Query) (client.Page[row], error) {
		if q.Search == "a" {
			close(slowStarted)
			<-releaseSlow
			return client.Page[row]{Items: []row{{ID: "apple"}, {ID: "avocado"}}, Total: 2}, nil
		}
		return client.Page[row]{Items: []row{{ID: "abacus"}}, Total: 1}, nil
	}

	tbl := NewTable("s1", WithDebounce(time.Hour))
	defer tbl.Close()
	v := NewView(tbl, fetch)

	tbl.SetSearch("a")
	slowDone := make(chan error, 1)
	go func() { slowDone <- v.Refresh(context.Background()) }()
	<-slowStarted

	tbl.SetSearch("ab")
	require.NoError(t, v.Refresh(context.Background()))

	close(releaseSlow)
	require.NoError(t, <-slowDone)

	assert.Equal(t, []row{{ID: "abacus"}}, v.Items())
	assert.Equal(t, 1, v.Total())
	assert.Equal(t, 1, tbl.PageCount())
	assert.Equal(t, "ab", tbl.Search())
}

func TestViewDropsErrorOvertakenByNewerRefresh(t *testing.T) {
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	boom := errors.New("boom")
	fetch := func(_ context.Context, q client.Query) (client.Page[row], error) {
		if q.Search == "a" {
			close(slowStarted)
			<-releaseSlow
			return client.Page[row]{}, boom
		}
		return client.Page[row]{Items: []row{{ID: "abacus"}}, Total: 1}, nil
	}

	tbl := NewTable("s1", WithDebounce(time.Hour))
	defer tbl.Close()
	v := NewView(tbl, fetch)

	tbl.SetSearch("a")
	slowDone := make(chan error, 1)
	go func() { slowDone <- v.Refresh(context.Background()) }()
	<-slowStarted

	tbl.SetSearch("ab")
	require.NoError(t, v.Refresh(context.Background()))
	close(releaseSlow)

	assert.ErrorIs(t, <-slowDone, boom)
	assert.NoError(t, v.Err())
	assert.Len(t, v.Items(), 1)
}
