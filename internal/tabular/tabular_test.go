package tabular

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func readAllText(t *testing.T, doc RawDocument) [][]string {
	t.Helper()
	rows, err := ReadAll(doc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		texts := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			texts[j] = c.Text
		}
		out[i] = texts
	}
	return out
}

func TestCSVQuotingPreserved(t *testing.T) {
	// A quoted delimiter or newline is cell content, not a boundary.
	content := "a,\"hello, world\",c\n\"line\nbreak\",2,3\n"
	got := readAllText(t, RawDocument{Content: []byte(content), Format: FormatCSV})
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0][1] != "hello, world" {
		t.Errorf("quoted comma: got %q", got[0][1])
	}
	if got[1][0] != "line\nbreak" {
		t.Errorf("quoted newline: got %q", got[1][0])
	}
}

func TestCSVCustomDelimiter(t *testing.T) {
	content := "a|b|c\n1|2|3\n"
	got := readAllText(t, RawDocument{Content: []byte(content), Format: FormatCSV, Delimiter: '|'})
	if len(got) != 2 || got[1][2] != "3" {
		t.Fatalf("got %v", got)
	}
}

func TestCSVEncodings(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{name: "plain utf8", content: []byte("po,vendor\nA1,Jivo\n")},
		{name: "utf8 bom", content: append([]byte{0xEF, 0xBB, 0xBF}, []byte("po,vendor\nA1,Jivo\n")...)},
		{name: "utf16le bom", content: utf16le("po,vendor\nA1,Jivo\n")},
		{name: "latin1", content: []byte{'p', 'o', ',', 'v', 0xE9, 'n', 'd', 'o', 'r', '\n', 'A', '1', ',', 'J', 'i', 'v', 'o', '\n'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadAll(RawDocument{Content: tt.content, Format: FormatCSV})
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("got %d rows, want 2", len(rows))
			}
			if rows[1].Text(0) != "A1" {
				t.Errorf("cell(1,0) = %q, want A1", rows[1].Text(0))
			}
			if rows[0].Text(0) != "po" {
				t.Errorf("cell(0,0) = %q, want po", rows[0].Text(0))
			}
		})
	}
}

// utf16le encodes an ASCII string as UTF-16LE with BOM.
func utf16le(s string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, r := range s {
		buf.WriteByte(byte(r))
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func TestCSVCellsAreTextKind(t *testing.T) {
	rows, err := ReadAll(RawDocument{Content: []byte("45926,abc,\n"), Format: FormatCSV})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	r := rows[0]
	if r.Cell(0).Kind != CellText {
		t.Errorf("delimited text has no native typing; digit cell kind = %v", r.Cell(0).Kind)
	}
	if !r.Cell(2).IsEmpty() {
		t.Error("trailing empty field should be CellEmpty")
	}
}

func TestXLSXPreservesNumericTyping(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetCellStr(sheet, "A1", "PO Number"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStr(sheet, "B1", "FK-001"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue(sheet, "A2", 45926); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStr(sheet, "B2", "0042"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rows, err := ReadAll(RawDocument{Content: buf.Bytes(), Format: FormatXLSX})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	serial := rows[1].Cell(0)
	if serial.Kind != CellNumber {
		t.Fatalf("numeric cell kind = %v, want CellNumber", serial.Kind)
	}
	if serial.Number != 45926 {
		t.Errorf("numeric cell value = %v, want 45926", serial.Number)
	}

	padded := rows[1].Cell(1)
	if padded.Text != "0042" {
		t.Errorf("padded code = %q, want 0042 (leading zeros must survive)", padded.Text)
	}

	label := rows[0].Cell(0)
	if label.Kind != CellText || label.Text != "PO Number" {
		t.Errorf("label cell = %+v", label)
	}
}

func TestXLSXDecodeError(t *testing.T) {
	_, err := ReadAll(RawDocument{Content: []byte("this is not a zip archive"), Format: FormatXLSX})
	if err == nil {
		t.Fatal("want DecodeError for corrupt workbook")
	}
}

func TestRowHelpers(t *testing.T) {
	r := RawRow{Index: 3, Cells: []Cell{{Kind: CellText, Text: "x"}, {}}}
	if r.Text(0) != "x" || r.Text(1) != "" {
		t.Error("Text")
	}
	if r.Text(99) != "" {
		t.Error("out-of-range access must return empty, rows are ragged")
	}
	if r.IsBlank() {
		t.Error("row with content is not blank")
	}
	if !(RawRow{Cells: []Cell{{}, {}}}).IsBlank() {
		t.Error("row of empty cells is blank")
	}
}
