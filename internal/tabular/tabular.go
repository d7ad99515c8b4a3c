// Package tabular decodes raw PO documents (delimited text or spreadsheets)
// into an ordered sequence of rows of untyped cells.
//
// The reader is deliberately dumb: it preserves quoting, trims cell text and
// keeps native spreadsheet typing (numeric vs text) so downstream coercion
// can tell an Excel date serial apart from a textual date. All layout
// knowledge lives in the platform parsers.
package tabular

import (
	"bytes"
	"path/filepath"
	"strings"
)

// CellKind distinguishes how a cell was typed in the source document.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one untyped cell value. Number is only meaningful when Kind is
// CellNumber; Text is always the trimmed textual rendering.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// IsEmpty reports whether the cell has no content.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// RawRow is one document row. Index is 1-based and counts physical rows in
// the source, including banner and blank rows.
type RawRow struct {
	Index int
	Cells []Cell
}

// Cell returns the i-th cell, or an empty cell when the row is shorter.
// Export rows are routinely ragged, so out-of-range access is not an error.
func (r RawRow) Cell(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[i]
}

// Text returns the trimmed text of the i-th cell.
func (r RawRow) Text(i int) string { return r.Cell(i).Text }

// IsBlank reports whether every cell in the row is empty.
func (r RawRow) IsBlank() bool {
	for _, c := range r.Cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Format declares how the raw bytes should be decoded.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// RawDocument is the immutable input to the reader. Content is owned by
// the caller and never modified.
type RawDocument struct {
	Content []byte
	Format  Format

	// Delimiter for FormatCSV; ',' when zero.
	Delimiter rune

	// Sheet names the worksheet to read for FormatXLSX. Empty selects the
	// first sheet.
	Sheet string
}

// xlsxMagic is the ZIP local-file header every xlsx starts with.
var xlsxMagic = []byte{'P', 'K', 0x03, 0x04}

// DetectFormat picks the document format from the filename extension,
// falling back to content sniffing for extensionless inputs. Anything
// that is not a spreadsheet is treated as delimited text.
func DetectFormat(filename string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	}
	if bytes.HasPrefix(content, xlsxMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// Rows is a lazy, single-pass, non-restartable row sequence, iterated in
// the bufio.Scanner idiom:
//
//	rows, err := tabular.Read(doc)
//	...
//	defer rows.Close()
//	for rows.Next() {
//	    row := rows.Row()
//	    ...
//	}
//	if err := rows.Err(); err != nil { ... }
//
// Callers that need multiple passes buffer the rows themselves.
type Rows interface {
	Next() bool
	Row() RawRow
	Err() error
	Close() error
}

// Read decodes a raw document into a row sequence. It fails with a
// *po.DecodeError (wrapped by the concrete readers) on corrupt archives,
// unreadable sheets or broken encodings.
func Read(doc RawDocument) (Rows, error) {
	switch doc.Format {
	case FormatCSV:
		return newCSVRows(doc)
	case FormatXLSX:
		return newXLSXRows(doc)
	default:
		return newCSVRows(doc)
	}
}

// ReadAll drains a row sequence into memory. Used by parsers that need to
// scan the header region before walking the line region.
func ReadAll(doc RawDocument) ([]RawRow, error) {
	rows, err := Read(doc)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []RawRow
	for rows.Next() {
		all = append(all, rows.Row())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
