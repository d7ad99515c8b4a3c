package tabular

// csv.go reads delimited text documents. Vendors export CSVs in whatever
// encoding their tooling produced, so the reader detects BOMs, decodes
// UTF-16 variants and falls back to Latin-1 for byte sequences that are
// not valid UTF-8.

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/jivoecom/po-import/internal/po"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeCharset returns a UTF-8 reader over the raw bytes, stripping any
// BOM and transcoding UTF-16 or Latin-1 input.
func decodeCharset(data []byte) io.Reader {
	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
		return bytes.NewReader(data)
	case bytes.HasPrefix(data, bomUTF16LE):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(data, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case utf8.Valid(data):
		return bytes.NewReader(data)
	default:
		dec = charmap.ISO8859_1.NewDecoder()
	}
	return dec.Reader(bytes.NewReader(data))
}

type csvRows struct {
	r    *csv.Reader
	row  RawRow
	line int
	err  error
	done bool
}

func newCSVRows(doc RawDocument) (Rows, error) {
	r := csv.NewReader(decodeCharset(doc.Content))
	if doc.Delimiter != 0 {
		r.Comma = doc.Delimiter
	}
	// Vendor exports are ragged; column-count enforcement happens in the
	// platform parsers, not here.
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return &csvRows{r: r}, nil
}

func (c *csvRows) Next() bool {
	if c.done {
		return false
	}
	record, err := c.r.Read()
	if err == io.EOF {
		c.done = true
		return false
	}
	if err != nil {
		c.err = &po.DecodeError{Format: "csv", Err: err}
		c.done = true
		return false
	}
	c.line++
	cells := make([]Cell, len(record))
	for i, field := range record {
		cells[i] = textCell(field)
	}
	c.row = RawRow{Index: c.line, Cells: cells}
	return true
}

func (c *csvRows) Row() RawRow { return c.row }

func (c *csvRows) Err() error { return c.err }

func (c *csvRows) Close() error { return nil }

// textCell builds a Cell from delimited text. CSV carries no native
// typing, so everything non-empty is CellText.
func textCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}
