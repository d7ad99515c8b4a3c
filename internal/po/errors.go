package po

// errors.go defines the error taxonomy for the import pipeline.
//
// Parsing errors (DecodeError, StructureError, CoercionError, EmptyPOError)
// are local, carry enough context for manual correction, and are never
// retried automatically: the input document does not change. Commit-layer
// errors are handled by the store/importer and surface through
// ImportResult rather than as Go errors where the outcome is well defined
// (AlreadyExists is a success, not an error).

import (
	"errors"
	"fmt"
)

// DecodeError indicates the raw document could not be decoded at all:
// corrupt archive, unreadable sheet, broken encoding.
type DecodeError struct {
	Format string // "csv" or "xlsx"
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s document: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StructureError indicates the document decoded fine but no header or
// line region matching the platform's layout was found. Returned instead
// of silently producing an empty PO.
type StructureError struct {
	Platform string
	Reason   string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: document structure not recognized: %s", e.Platform, e.Reason)
}

// CoercionError indicates a cell failed to parse into its canonical field
// type. Row is 1-based; Column is the source column label.
type CoercionError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *CoercionError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d, column %q: cannot parse %q: %s", e.Row, e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("column %q: cannot parse %q: %s", e.Column, e.Value, e.Reason)
}

// WithCell attaches row and column context to err when it is a
// CoercionError. The coercion layer does not know where a cell came
// from; the parser calling it does.
func WithCell(err error, row int, column string) error {
	var ce *CoercionError
	if errors.As(err, &ce) {
		ce.Row = row
		ce.Column = column
	}
	return err
}

// EmptyPOError indicates a PO parsed with zero valid lines.
type EmptyPOError struct {
	PONumber string
}

func (e *EmptyPOError) Error() string {
	if e.PONumber == "" {
		return "purchase order has no line items"
	}
	return fmt.Sprintf("purchase order %s has no line items", e.PONumber)
}

// ErrUnknownPlatform is returned when no parser variant is registered for
// the requested platform key.
var ErrUnknownPlatform = errors.New("unknown platform")

// IsStructural reports whether err is a document-shape failure (as opposed
// to an unreadable document). Handy for upload surfaces that want to tell
// "wrong file" apart from "broken file".
func IsStructural(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}
