// Package export writes the shop reports as Excel workbooks. Every report is
// a single sheet with a header row, one row per record and a totals row.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	dateLayout = "2006-01-02"
	moneyFmt   = 4 // #,##0.00
)

// sheet writes rows top to bottom into one worksheet.
type sheet struct {
	f      *excelize.File
	name   string
	row    int
	cols   int
	bold   int
	money  int
	totals int
}

func newSheet(name string, headers ...string) (*sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}
	s := &sheet{f: f, name: name, cols: len(headers)}

	var err error
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		f.Close()
		return nil, err
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: moneyFmt}); err != nil {
		f.Close()
		return nil, err
	}
	if s.totals, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: moneyFmt}); err != nil {
		f.Close()
		return nil, err
	}

	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := s.write(s.bold, values...); err != nil {
		f.Close()
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(max(len(headers), 1))
	if err := f.SetColWidth(name, "A", last, 16); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// write appends one row. Decimal values become numbers; style applies to
// the whole row when non-zero.
func (s *sheet) write(style int, values ...any) error {
	s.row++
	cells := make([]any, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case decimal.Decimal:
			cells[i] = v.InexactFloat64()
		case time.Time:
			cells[i] = v.Format(dateLayout)
		case *string:
			if v == nil {
				cells[i] = ""
			} else {
				cells[i] = *v
			}
		default:
			cells[i] = v
		}
	}
	start, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(s.name, start, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", s.row, err)
	}
	if style == 0 || len(values) == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(values), s.row)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.name, start, end, style)
}

// styleColumns applies the money format to the given 1-based columns of the
// rows written so far, header excluded.
func (s *sheet) styleColumns(cols ...int) error {
	if s.row < 2 {
		return nil
	}
	for _, c := range cols {
		top, err := excelize.CoordinatesToCellName(c, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(c, s.row)
		if err != nil {
			return err
		}
		if err := s.f.SetCellStyle(s.name, top, bottom, s.money); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheet) flush(w io.Writer) error {
	defer s.f.Close()
	if err := s.f.Write(w); err != nil {
		return fmt.Errorf("write %s workbook: %w", s.name, err)
	}
	return nil
}
