package platform

// flipkart.go parses Flipkart Grocery PO exports: a label/value header
// region spread over the first ~10 rows, a line table anchored by the
// "S. no." column, and a trailing summary row followed by free-text
// notification rows that must be skipped, not imported.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

func init() {
	Register(flipkartParser{})
}

type flipkartParser struct{}

func (flipkartParser) Platform() string { return "flipkart" }

func (flipkartParser) Parse(rows []tabular.RawRow) ([]po.Document, error) {
	header, warnings, err := parseFlipkartHeader(rows)
	if err != nil {
		return nil, err
	}

	// Locate the line table: the row carrying both the serial-number
	// column and the HSN column. One alone is not enough, banner text
	// mentions "HSN" too.
	tableRow := findRow(rows, 0, func(r tabular.RawRow) bool {
		if !labelMatch(r.Text(0), "s. no") {
			return false
		}
		idx := indexColumns(r)
		return idx.has("hsn") && idx.has("quantity")
	})
	if tableRow < 0 {
		return nil, &po.StructureError{Platform: "flipkart", Reason: "line table header (S. no. / HSN / Quantity) not found"}
	}

	idx := indexColumns(rows[tableRow])
	itemCol, ok := idx.find("fsn/isbn13", "fsn", "ean")
	if !ok {
		return nil, &po.StructureError{Platform: "flipkart", Reason: "item identifier column not found"}
	}
	qtyCol, _ := idx.find("quantity")
	titleCol, hasTitle := idx.find("title")
	priceCol, hasPrice := idx.find("supplier price")
	taxableCol, hasTaxable := idx.find("taxable value")
	taxCol, hasTax := idx.find("tax amount")
	totalCol, hasTotal := idx.find("total amount")
	hsnCol, _ := idx.find("hsn")
	uomCol, hasUOM := idx.find("uom")
	reqByCol, hasReqBy := idx.find("required by date")

	var lines []po.ParsedLine
	tableEnded := false
	for i := tableRow + 1; i < len(rows); i++ {
		row := rows[i]
		if row.IsBlank() {
			continue
		}

		// Summary row ends the table; pick up the declared total
		// quantity from it when present. The rows after it are
		// notification and disclaimer text.
		if !tableEnded && rowContains(row, "Total Quantity") {
			if v, ok := valueAfter(row, "Total Quantity"); ok {
				if q, err := coerce.Quantity(v.Text); err == nil {
					header.DeclaredQuantity = q
				}
			}
			tableEnded = true
			continue
		}

		first := row.Text(0)
		serial, err := strconv.Atoi(first)
		if tableEnded || err != nil {
			// Trailing notices and stray non-data rows are recorded,
			// never imported.
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Message: fmt.Sprintf("skipped non-data row %q", truncate(first, 40)),
			})
			continue
		}

		qty, err := coerce.Quantity(row.Text(qtyCol))
		if err != nil {
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Column:  "Quantity",
				Message: fmt.Sprintf("skipped line %d: %v", serial, po.WithCell(err, row.Index, "Quantity")),
			})
			continue
		}

		line := po.ParsedLine{
			LineNumber: serial,
			ItemCode:   coerce.Identifier(row.Text(itemCol)),
			Quantity:   qty,
			Attrs:      map[string]string{},
		}
		if hasTitle {
			line.Description = row.Text(titleCol)
		}
		if hasPrice {
			line.UnitPrice, _ = coerce.Amount(row.Text(priceCol))
		}
		if hasTax {
			line.TaxAmount, _ = coerce.Amount(row.Text(taxCol))
		}
		if hasTotal {
			line.LineAmount, _ = coerce.Amount(row.Text(totalCol))
		}
		line.Attrs["hsn_code"] = coerce.Identifier(row.Text(hsnCol))
		if hasUOM {
			line.Attrs["uom"] = row.Text(uomCol)
		}
		if hasReqBy {
			if d, err := coerce.Date(row.Cell(reqByCol)); err == nil {
				line.Attrs["required_by_date"] = d.Format("2006-01-02")
			}
		}

		// Flipkart's total amount includes tax; qty x supplier price is
		// reconciled against the taxable value.
		if hasPrice && hasTaxable {
			taxable, terr := coerce.Amount(row.Text(taxableCol))
			if terr == nil && !coerce.AmountsReconcile(line.Quantity, line.UnitPrice, taxable, 0) {
				line.AddFlag(po.FlagAmountMismatch)
				warnings = append(warnings, po.Warning{
					Row:     row.Index,
					Column:  "Taxable Value",
					Message: fmt.Sprintf("line %d: %v x %v does not reconcile with %v", serial, line.Quantity, line.UnitPrice, taxable),
				})
			}
		}

		lines = append(lines, line)
	}

	doc := po.Document{Header: header, Lines: lines, Warnings: warnings}
	return []po.Document{doc}, nil
}

// parseFlipkartHeader extracts the label/value header region.
func parseFlipkartHeader(rows []tabular.RawRow) (po.ParsedHeader, []po.Warning, error) {
	header := po.ParsedHeader{Platform: "flipkart", Attrs: map[string]string{}}
	var warnings []po.Warning

	poRow := findRow(rows, MaxHeaderScanRows, func(r tabular.RawRow) bool {
		return strings.EqualFold(r.Text(0), "PO#")
	})
	if poRow < 0 {
		return header, nil, &po.StructureError{Platform: "flipkart", Reason: "PO# row not found in header region"}
	}

	row := rows[poRow]
	header.PONumber = row.Text(1)
	if header.PONumber == "" {
		return header, nil, &po.StructureError{Platform: "flipkart", Reason: "PO# row has no PO number"}
	}

	if v, ok := valueAfter(row, "ORDER DATE"); ok {
		if d, err := coerce.Date(v); err == nil {
			header.PODate = d
		} else {
			warnings = append(warnings, po.Warning{Row: row.Index, Column: "ORDER DATE", Message: po.WithCell(err, row.Index, "ORDER DATE").Error()})
		}
	}
	if v, ok := valueAfter(row, "PO Expiry"); ok {
		if d, err := coerce.Date(v); err == nil {
			header.ExpiryDate = d
		}
	}
	if v, ok := valueAfter(row, "Nature Of Supply"); ok {
		header.Attrs["nature_of_supply"] = v.Text
	}
	if v, ok := valueAfter(row, "CATEGORY"); ok {
		header.Attrs["category"] = v.Text
	}

	if i := findRow(rows, MaxHeaderScanRows, func(r tabular.RawRow) bool {
		return strings.EqualFold(r.Text(0), "SUPPLIER NAME")
	}); i >= 0 {
		header.VendorName = rows[i].Text(1)
		if v, ok := valueAfter(rows[i], "SUPPLIER CONTACT"); ok {
			header.Attrs["supplier_contact"] = v.Text
		}
		if v, ok := valueAfter(rows[i], "EMAIL"); ok {
			header.Attrs["supplier_email"] = v.Text
		}
	}

	if i := findRow(rows, MaxHeaderScanRows, func(r tabular.RawRow) bool {
		return strings.EqualFold(r.Text(0), "Billed by")
	}); i >= 0 {
		if v, ok := valueAfter(rows[i], "GSTIN"); ok {
			header.VendorGSTIN = v.Text
		}
	}

	if i := findRow(rows, MaxHeaderScanRows, func(r tabular.RawRow) bool {
		return strings.EqualFold(r.Text(0), "MODE OF PAYMENT")
	}); i >= 0 {
		if v, ok := valueAfter(rows[i], "MODE OF PAYMENT"); ok {
			header.Attrs["mode_of_payment"] = v.Text
		}
		if v, ok := valueAfter(rows[i], "CONTRACT REF ID"); ok {
			header.Attrs["contract_ref_id"] = v.Text
		}
		// The credit term value floats between one and three cells after
		// its label depending on the export's merged-cell layout;
		// valueAfter already scans that window.
		if v, ok := valueAfter(rows[i], "CREDIT TERM"); ok {
			header.Attrs["credit_term"] = v.Text
		}
	}

	return header, warnings, nil
}

// rowContains reports whether any cell's text contains the fragment.
func rowContains(row tabular.RawRow, fragment string) bool {
	for _, c := range row.Cells {
		if labelMatch(c.Text, fragment) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
