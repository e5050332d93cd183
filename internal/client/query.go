package client

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Query describes one list request. Page is zero-based here and sent to the
// API one-based.
type Query struct {
	ShopID    string
	Page      int
	Limit     int
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Sort      string
	// Filters carries entity specific parameters such as type or lowStock.
	Filters map[string]string
}

// Values encodes the query as URL parameters. Empty fields are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.ShopID); s != "" {
		v.Set("shopId", s)
	}
	if q.Page >= 0 {
		v.Set("page", strconv.Itoa(q.Page+1))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("searchBy", s)
	}
	if q.StartDate != nil {
		v.Set("startDate", q.StartDate.Format(dateLayout))
	}
	if q.EndDate != nil {
		v.Set("endDate", q.EndDate.Format(dateLayout))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	for k, val := range q.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// key identifies the list page in the cache. url.Values.Encode sorts by
// key so equal queries map to the same entry.
func (q Query) key(path string) string {
	return path + "?" + q.Values().Encode()
}

// Page is one page of a list response.
type Page[T any] struct {
	Items []T
	Total int
}

// PageCount is the number of pages of the given size needed for Total.
func (p Page[T]) PageCount(size int) int {
	if size <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + size - 1) / size
}
