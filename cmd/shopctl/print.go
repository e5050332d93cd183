package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printTable writes rows under headers as aligned columns.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	table := newTable(w)
	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	table.SetHeader(upper)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

// printRecord writes label and value pairs, one per line.
func printRecord(w io.Writer, fields [][2]string) error {
	table := newTable(w)
	for _, f := range fields {
		table.Append([]string{f[0] + ":", f[1]})
	}
	table.Render()
	return nil
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return d, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}

// optional returns nil for an empty flag value.
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
