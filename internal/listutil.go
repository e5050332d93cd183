package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 10
	maxLimit     = 200
	dateLayout   = "2006-01-02"
)

var errShopIDRequired = errors.New("Shop ID is required")

// listParams holds common query parameters for list endpoints
type listParams struct {
	shopID    string
	page      int
	limit     int
	search    string
	sort      string
	startDate *time.Time
	endDate   *time.Time
}

func (p listParams) offset() int { return (p.page - 1) * p.limit }

// parseListParams parses shopId, page, limit, searchBy, startDate, endDate
// and sort from the request. Pages are 1-based; limit defaults to 10 and is
// capped at 200. A malformed shopId or date is an error.
func parseListParams(r *http.Request) (listParams, error) {
	values := r.URL.Query()

	p := listParams{page: 1, limit: defaultLimit}

	if s := strings.TrimSpace(values.Get("shopId")); s != "" {
		if _, err := uuid.Parse(s); err != nil {
			return p, fmt.Errorf("invalid shopId %q", s)
		}
		p.shopID = s
	}
	if s := strings.TrimSpace(values.Get("page")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			p.page = v
		}
	}
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > maxLimit {
				v = maxLimit
			}
			p.limit = v
		}
	}
	p.search = strings.TrimSpace(values.Get("searchBy"))
	p.sort = strings.TrimSpace(values.Get("sort"))

	var err error
	if p.startDate, err = parseDate(values.Get("startDate")); err != nil {
		return p, fmt.Errorf("invalid startDate: %w", err)
	}
	if p.endDate, err = parseDate(values.Get("endDate")); err != nil {
		return p, fmt.Errorf("invalid endDate: %w", err)
	}
	if p.startDate != nil && p.endDate != nil && p.endDate.Before(*p.startDate) {
		return p, errors.New("endDate is before startDate")
	}
	return p, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// Accept full timestamps too; only the date part matters.
		ts, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return nil, err
		}
		t = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &t, nil
}

// optionalUUID reads a query parameter that must be a UUID when present.
func optionalUUID(r *http.Request, name string) (string, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return "", nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid %s %q", name, s)
	}
	return s, nil
}

// whereBuilder accumulates AND-ed clauses with positional arguments. Each
// "$?" in a clause is replaced with the placeholder of its argument.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (b *whereBuilder) add(clause string, val any) {
	b.args = append(b.args, val)
	b.clauses = append(b.clauses, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(b.args))))
}

func (b *whereBuilder) String() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// dateRange adds the optional inclusive date filters on column.
func (b *whereBuilder) dateRange(column string, p listParams) {
	if p.startDate != nil {
		b.add(column+" >= $?", *p.startDate)
	}
	if p.endDate != nil {
		b.add(column+" <= $?", *p.endDate)
	}
}

// scopeShop restricts shop-scoped rows to the given shop of the caller's account.
func (b *whereBuilder) scopeShop(column, shopID, accountID string) {
	b.add(column+" = $?", shopID)
	b.add(column+" IN (SELECT id FROM shops WHERE account_id = $?)", accountID)
}

// buildOrderBy builds a safe ORDER BY clause using a whitelist of allowed keys.
// allowed maps incoming sort keys (e.g., "name") to actual column identifiers.
// Input sort is comma-separated; prefix with '-' for DESC.
// Defaults to the "default" key when present, else created_at DESC.
func buildOrderBy(sortParam string, allowed map[string]string) string {
	fallback := " ORDER BY created_at DESC"
	if col, ok := allowed["default"]; ok {
		fallback = " ORDER BY " + col
	}
	if sortParam == "" {
		return fallback
	}

	parts := strings.Split(sortParam, ",")
	clauses := make([]string, 0, len(parts))
	for _, raw := range parts {
		s := strings.TrimSpace(raw)
		if s == "" || s == "default" {
			continue
		}
		desc := false
		if strings.HasPrefix(s, "-") {
			desc = true
			s = strings.TrimPrefix(s, "-")
		}
		col, ok := allowed[s]
		if !ok {
			continue
		}
		if desc {
			clauses = append(clauses, col+" DESC")
		} else {
			clauses = append(clauses, col+" ASC")
		}
	}
	if len(clauses) == 0 {
		return fallback
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func (p listParams) limitOffset() string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.limit, p.offset())
}
