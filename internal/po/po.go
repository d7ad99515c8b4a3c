// Package po defines the normalized purchase-order model shared by every
// stage of the import pipeline: the transient parse output, the durable
// canonical records, and the per-attempt import result.
package po

import "time"

// ParsedHeader is the normalized PO header extracted from one platform
// document. It is a transient value: produced by a platform parser,
// consumed by a single import call.
type ParsedHeader struct {
	// Platform is the platform key, e.g. "flipkart". PONumber is the
	// vendor PO number, unique per platform. ExpiryDate is zero if the
	// platform does not declare one.
	Platform    string    `json:"platform"`
	PONumber    string    `json:"po_number"`
	PODate      time.Time `json:"po_date"`
	ExpiryDate  time.Time `json:"expiry_date,omitzero"`
	VendorName  string    `json:"vendor_name,omitempty"`
	VendorCode  string    `json:"vendor_code,omitempty"`
	VendorGSTIN string    `json:"vendor_gstin,omitempty"`

	// Declared aggregate totals from the document. Informational: the
	// validator recomputes them from lines and records discrepancies.
	DeclaredQuantity float64 `json:"declared_quantity"`
	DeclaredAmount   float64 `json:"declared_amount"`
	DeclaredTax      float64 `json:"declared_tax"`

	// Attrs carries platform-specific header fields that have no canonical
	// column (payment mode, contract ref, category, ...).
	Attrs map[string]string `json:"attrs,omitempty"`
}

// LineFlag marks a non-fatal condition attached to a parsed line.
type LineFlag string

const (
	// FlagUnmapped marks a line whose platform item code has no canonical
	// item mapping. The line is still imported with a null canonical item.
	FlagUnmapped LineFlag = "unmapped"

	// FlagZeroQuantity marks a retained zero-quantity line on platforms
	// that treat such lines as cancellations.
	FlagZeroQuantity LineFlag = "zero_quantity"

	// FlagAmountMismatch marks a line whose quantity x unit price does not
	// reconcile with the declared line amount within tolerance.
	FlagAmountMismatch LineFlag = "amount_mismatch"
)

// ParsedLine is one normalized PO line. LineNumber is 1-based and follows
// document order.
type ParsedLine struct {
	LineNumber  int     `json:"line_number"`
	ItemCode    string  `json:"item_code"` // Platform item code, trimmed, case preserved
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineAmount  float64 `json:"line_amount"`
	TaxAmount   float64 `json:"tax_amount"`

	// CanonicalItemID is filled by the resolver; nil when unmapped.
	CanonicalItemID *int64 `json:"canonical_item_id,omitempty"`

	Flags []LineFlag        `json:"flags,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// HasFlag reports whether the line carries the given flag.
func (l *ParsedLine) HasFlag(f LineFlag) bool {
	for _, have := range l.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// AddFlag attaches a flag once.
func (l *ParsedLine) AddFlag(f LineFlag) {
	if !l.HasFlag(f) {
		l.Flags = append(l.Flags, f)
	}
}

// Document is one (header, lines) group extracted from a raw document.
// A single document may yield several groups when the platform packs
// multiple POs into one export.
type Document struct {
	Header ParsedHeader `json:"header"`
	Lines  []ParsedLine `json:"lines"`

	// Warnings collected while parsing: skipped trailing rows, line
	// amount mismatches, unparseable optional fields.
	Warnings []Warning `json:"warnings,omitempty"`
}

// Warning is a non-fatal observation recorded during parsing or
// validation, with enough context for manual correction.
type Warning struct {
	Row     int    `json:"row,omitempty"`    // 1-based document row, 0 if not row-scoped
	Column  string `json:"column,omitempty"` // Column label, empty if not column-scoped
	Message string `json:"message"`
}

// CanonicalPO is the cross-platform normalized record persisted in the
// shared master table. Totals are the recomputed sums over its lines.
type CanonicalPO struct {
	ID            int64
	PlatformID    int64
	PONumber      string
	VendorName    string
	PODate        time.Time
	ExpiryDate    time.Time
	TotalQuantity float64
	TotalAmount   float64
	TotalTax      float64
}

// CanonicalLine is one line of a CanonicalPO. ItemID is nil for lines
// whose platform code had no mapping at import time.
type CanonicalLine struct {
	ID          int64
	POID        int64
	LineNumber  int
	ItemID      *int64
	Quantity    float64
	BasicAmount float64
	TaxAmount   float64
	TotalAmount float64
}

// Outcome classifies one import attempt.
type Outcome string

const (
	// Created: first-time insertion of both the platform and canonical
	// records in one transaction.
	Created Outcome = "created"

	// AlreadyExists: a PO with the same (platform, PO number) is already
	// persisted; the attempt was an idempotent no-op.
	AlreadyExists Outcome = "already_exists"

	// Rejected: nothing was persisted; Reason explains why.
	Rejected Outcome = "rejected"

	// PartiallyImported: the PO was persisted but with recorded
	// discrepancies (declared vs computed totals beyond tolerance).
	PartiallyImported Outcome = "partially_imported"
)

// ImportResult is the outcome of one attempted PO import. It is created
// per attempt and never mutated after return.
type ImportResult struct {
	// AttemptID is the UUID of this attempt, for log correlation.
	// PlatformPOID and CanonicalID are the persisted row ids; for
	// AlreadyExists they refer to the previously imported records.
	AttemptID    string    `json:"attempt_id"`
	Outcome      Outcome   `json:"outcome"`
	PONumber     string    `json:"po_number"`
	PlatformPOID int64     `json:"platform_po_id,omitempty"`
	CanonicalID  int64     `json:"canonical_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Warnings     []Warning `json:"warnings,omitempty"`

	// UnmappedLines lists line numbers imported without a canonical item.
	UnmappedLines []int `json:"unmapped_lines,omitempty"`
}
