package tabular

// xlsx.go reads spreadsheet documents through excelize's streaming row
// iterator, so scanning the header region of a large workbook does not
// load every sheet into memory.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jivoecom/po-import/internal/po"
)

type xlsxRows struct {
	file *excelize.File
	iter *excelize.Rows
	row  RawRow
	line int
	err  error
}

func newXLSXRows(doc RawDocument) (Rows, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	if err != nil {
		return nil, &po.DecodeError{Format: "xlsx", Err: err}
	}

	sheet := doc.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		f.Close()
		return nil, &po.DecodeError{Format: "xlsx", Err: fmt.Errorf("workbook has no sheets")}
	}

	iter, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, &po.DecodeError{Format: "xlsx", Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}

	return &xlsxRows{file: f, iter: iter}, nil
}

func (x *xlsxRows) Next() bool {
	if x.err != nil {
		return false
	}
	if !x.iter.Next() {
		return false
	}
	// Raw values keep date serials numeric instead of excelize applying
	// the sheet's display format.
	cols, err := x.iter.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		x.err = &po.DecodeError{Format: "xlsx", Err: err}
		return false
	}
	x.line++
	cells := make([]Cell, len(cols))
	for i, raw := range cols {
		cells[i] = sheetCell(raw)
	}
	x.row = RawRow{Index: x.line, Cells: cells}
	return true
}

func (x *xlsxRows) Row() RawRow { return x.row }

func (x *xlsxRows) Err() error {
	if x.err != nil {
		return x.err
	}
	if err := x.iter.Error(); err != nil {
		return &po.DecodeError{Format: "xlsx", Err: err}
	}
	return nil
}

func (x *xlsxRows) Close() error {
	x.iter.Close()
	return x.file.Close()
}

// sheetCell classifies a raw spreadsheet value. Values that parse as a
// number keep both renderings: Text preserves the original string (so a
// padded code like "0042" is not destroyed) and Number carries the value
// for date-serial and amount coercion.
func sheetCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Cell{Kind: CellNumber, Text: s, Number: n}
	}
	return Cell{Kind: CellText, Text: s}
}
