package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
)

// Row is one inventory line read from a worksheet.
type Row struct {
	Sheet       string
	Line        int // 1-based worksheet row
	Name        string
	SKU         *string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	CostPrice   decimal.Decimal
	LowStock    *decimal.Decimal
	Description *string
	UOM         string
}

// ParsedSheet holds the usable rows of one worksheet and the rows rejected
// while reading it.
type ParsedSheet struct {
	Name    string
	Rows    []Row
	Skipped int
	Errors  []RowError
}

// ParseWorkbook reads every mapped sheet of an xlsx file.
func ParseWorkbook(data []byte, m *MappingConfig) ([]ParsedSheet, error) {
	if m == nil {
		m = DefaultMapping()
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	var out []ParsedSheet
	for _, sheet := range f.Sheets {
		sc, ok := m.forSheet(sheet.Name)
		if !ok {
			continue
		}
		ps, err := parseSheet(sheet, sc)
		if err != nil {
			return out, fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
		out = append(out, ps)
	}
	return out, nil
}

func readCells(r *xlsx.Row) ([]string, error) {
	var cells []string
	err := r.ForEachCell(func(c *xlsx.Cell) error {
		col, _ := c.GetCoordinates()
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = strings.TrimSpace(c.String())
		return nil
	})
	return cells, err
}

func parseSheet(sheet *xlsx.Sheet, sc SheetConfig) (ParsedSheet, error) {
	ps := ParsedSheet{Name: sheet.Name}
	var index map[string]int

	err := sheet.ForEachRow(func(r *xlsx.Row) error {
		cells, err := readCells(r)
		if err != nil {
			return err
		}
		line := r.GetCoordinate() + 1
		if index == nil {
			index = sc.headerIndex(cells)
			if _, ok := index[FieldName]; !ok {
				return errors.New("no column maps to the item name")
			}
			return nil
		}
		if isBlank(cells) {
			ps.Skipped++
			return nil
		}
		row, err := buildRow(cells, index)
		if err != nil {
			ps.Errors = append(ps.Errors, RowError{Sheet: sheet.Name, Row: line, Message: err.Error()})
			return nil
		}
		row.Sheet, row.Line = sheet.Name, line
		ps.Rows = append(ps.Rows, row)
		return nil
	})
	if err == nil && index == nil {
		err = errors.New("sheet has no header row")
	}
	return ps, err
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func buildRow(cells []string, index map[string]int) (Row, error) {
	get := func(field string) string {
		if col, ok := index[field]; ok && col < len(cells) {
			return cells[col]
		}
		return ""
	}

	row := Row{Name: get(FieldName), UOM: get(FieldUOM)}
	if row.Name == "" {
		return row, errors.New("name is required")
	}
	if s := get(FieldSKU); s != "" {
		row.SKU = &s
	}
	if s := get(FieldDescription); s != "" {
		row.Description = &s
	}

	var err error
	if row.Quantity, err = parseAmount(FieldQuantity, get(FieldQuantity)); err != nil {
		return row, err
	}
	if row.Price, err = parseAmount(FieldPrice, get(FieldPrice)); err != nil {
		return row, err
	}
	if row.CostPrice, err = parseAmount(FieldCostPrice, get(FieldCostPrice)); err != nil {
		return row, err
	}
	if s := get(FieldLowStock); s != "" {
		v, err := parseAmount(FieldLowStock, s)
		if err != nil {
			return row, err
		}
		row.LowStock = &v
	}
	return row, nil
}

// parseAmount reads a non-negative number; blank is zero and thousands
// separators are ignored.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", field, s)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return v, nil
}
