// Package validate recomputes PO aggregates from lines and cross-checks
// them against the totals the vendor declared in the document.
//
// Vendor-declared totals are informational, not authoritative: a mismatch
// beyond tolerance downgrades the import outcome instead of blocking
// persistence. Platforms that want hard rejection opt in to strict mode
// through configuration.
package validate

import (
	"errors"
	"fmt"
	"math"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/po"
)

// DefaultTolerancePerLine is the allowed absolute drift between a declared
// total and the recomputed sum, per line item: 0.01 currency units each,
// absorbing per-line rounding in the source document.
const DefaultTolerancePerLine = 0.01

// ErrTotalsMismatch is returned (wrapped) in strict mode when a declared
// total drifts beyond tolerance.
var ErrTotalsMismatch = errors.New("declared totals do not match computed totals")

// Totals are the aggregates recomputed from lines. These, not the
// declared values, are what the committer persists on the canonical PO.
type Totals struct {
	Quantity float64
	Amount   float64
	Tax      float64
}

// Report is the outcome of validating one document.
type Report struct {
	Totals Totals

	// Discrepancies lists declared-vs-computed drifts beyond tolerance.
	// Non-empty means the import should be recorded as partial.
	Discrepancies []po.Warning
}

// Validator checks one parsed document. The zero value uses the default
// tolerance and lenient mode.
type Validator struct {
	// TolerancePerLine overrides DefaultTolerancePerLine when positive.
	TolerancePerLine float64

	// Strict turns total mismatches from a downgrade into a rejection.
	Strict bool
}

// Validate recomputes aggregates for doc and compares them with the
// declared header totals. A PO with zero lines fails with *po.EmptyPOError.
// In strict mode a mismatch fails with ErrTotalsMismatch (wrapped);
// otherwise mismatches are reported as discrepancies.
func (v *Validator) Validate(doc *po.Document) (*Report, error) {
	if doc == nil || len(doc.Lines) == 0 {
		number := ""
		if doc != nil {
			number = doc.Header.PONumber
		}
		return nil, &po.EmptyPOError{PONumber: number}
	}

	report := &Report{}
	seen := make(map[int]bool, len(doc.Lines))
	prev := 0
	for _, line := range doc.Lines {
		report.Totals.Quantity += line.Quantity
		report.Totals.Amount += line.LineAmount
		report.Totals.Tax += line.TaxAmount

		if seen[line.LineNumber] {
			report.Discrepancies = append(report.Discrepancies, po.Warning{
				Message: fmt.Sprintf("duplicate line number %d", line.LineNumber),
			})
		}
		seen[line.LineNumber] = true
		if line.LineNumber <= prev {
			report.Discrepancies = append(report.Discrepancies, po.Warning{
				Message: fmt.Sprintf("line number %d out of document order", line.LineNumber),
			})
		}
		prev = line.LineNumber
	}
	report.Totals.Quantity = coerce.Round2(report.Totals.Quantity)
	report.Totals.Amount = coerce.Round2(report.Totals.Amount)
	report.Totals.Tax = coerce.Round2(report.Totals.Tax)

	tol := v.TolerancePerLine
	if tol <= 0 {
		tol = DefaultTolerancePerLine
	}
	tol *= float64(len(doc.Lines))

	// A zero declared value means the platform did not declare that
	// total; nothing to check against.
	h := doc.Header
	v.check(report, "total quantity", h.DeclaredQuantity, report.Totals.Quantity, tol)
	v.check(report, "total amount", h.DeclaredAmount, report.Totals.Amount, tol)
	v.check(report, "total tax", h.DeclaredTax, report.Totals.Tax, tol)

	if v.Strict && len(report.Discrepancies) > 0 {
		return nil, fmt.Errorf("%s: %w (%s)", h.PONumber, ErrTotalsMismatch, report.Discrepancies[0].Message)
	}
	return report, nil
}

func (v *Validator) check(report *Report, what string, declared, computed, tol float64) {
	if declared == 0 {
		return
	}
	if math.Abs(declared-computed) <= tol+1e-9 {
		return
	}
	report.Discrepancies = append(report.Discrepancies, po.Warning{
		Message: fmt.Sprintf("declared %s %v differs from computed %v beyond tolerance %v", what, declared, computed, coerce.Round2(tol)),
	})
}
