package platform

// blinkit.go parses Blinkit PO sheets: a label/value header region
// ("PO Number", "Vendor", "PO Date"), an item table anchored by the
// "Item Code" and "Quantity" columns, and a totals block terminating the
// table. The totals block declares quantity and net amount, which the
// validator cross-checks against the recomputed sums.

import (
	"fmt"
	"regexp"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

func init() {
	Register(blinkitParser{})
}

type blinkitParser struct{}

func (blinkitParser) Platform() string { return "blinkit" }

// totalQuantityRe extracts a declared quantity from a free-text totals
// cell like "Total Quantity: 480".
var totalQuantityRe = regexp.MustCompile(`(?i)total\s+quantity:?\s*([\d,]+)`)

func (blinkitParser) Parse(rows []tabular.RawRow) ([]po.Document, error) {
	header := po.ParsedHeader{Platform: "blinkit", Attrs: map[string]string{}}
	var warnings []po.Warning

	found := false
	for i := 0; i < len(rows) && i < MaxHeaderScanRows; i++ {
		row := rows[i]
		if v, ok := valueAfter(row, "PO Number"); ok && header.PONumber == "" {
			header.PONumber = coerce.Identifier(v.Text)
			found = true
		}
		if v, ok := valueAfter(row, "PO Date"); ok && header.PODate.IsZero() {
			if d, err := coerce.Date(v); err == nil {
				header.PODate = d
			} else {
				warnings = append(warnings, po.Warning{Row: row.Index, Column: "PO Date", Message: po.WithCell(err, row.Index, "PO Date").Error()})
			}
		}
		if v, ok := valueAfter(row, "Vendor Name"); ok && header.VendorName == "" {
			header.VendorName = v.Text
		} else if v, ok := valueAfter(row, "Vendor"); ok && header.VendorName == "" && !rowContains(row, "Vendor No") {
			header.VendorName = v.Text
		}
		if v, ok := valueAfter(row, "Vendor No"); ok && header.VendorCode == "" {
			header.VendorCode = coerce.Identifier(v.Text)
		}
		if v, ok := valueAfter(row, "GST"); ok && header.VendorGSTIN == "" {
			header.VendorGSTIN = v.Text
		}
		if v, ok := valueAfter(row, "Delivery Date"); ok {
			if d, err := coerce.Date(v); err == nil {
				header.Attrs["delivery_date"] = d.Format("2006-01-02")
			}
		}
		if v, ok := valueAfter(row, "Expiry"); ok && header.ExpiryDate.IsZero() {
			if d, err := coerce.Date(v); err == nil {
				header.ExpiryDate = d
			}
		}
	}
	if !found || header.PONumber == "" {
		return nil, &po.StructureError{Platform: "blinkit", Reason: "PO Number label not found in header region"}
	}

	tableRow := findRow(rows, 0, func(r tabular.RawRow) bool {
		idx := indexColumns(r)
		return idx.has("item code") && idx.has("quantity")
	})
	if tableRow < 0 {
		return nil, &po.StructureError{Platform: "blinkit", Reason: "item table header (Item Code / Quantity) not found"}
	}

	idx := indexColumns(rows[tableRow])
	itemCol, _ := idx.find("item code")
	qtyCol, _ := idx.find("quantity")
	descCol, hasDesc := idx.find("product description", "description", "item name")
	priceCol, hasPrice := idx.find("basic cost price", "unit price", "rate")
	taxCol, hasTax := idx.find("tax amount", "total tax")
	totalCol, hasTotal := idx.find("total amount", "amount")
	hsnCol, hasHSN := idx.find("hsn")
	mrpCol, hasMRP := idx.find("mrp")

	lineNo := 0
	var lines []po.ParsedLine
	for i := tableRow + 1; i < len(rows); i++ {
		row := rows[i]
		if row.IsBlank() {
			continue
		}

		leading := row.Text(0)

		// Terminator: a totals row either names itself in the leading
		// cell or leaves it empty while the total column is populated.
		atTerminator := labelMatch(leading, "total") ||
			(leading == "" && hasTotal && !row.Cell(totalCol).IsEmpty() && row.Cell(itemCol).IsEmpty())
		if atTerminator {
			for _, c := range row.Cells {
				if m := totalQuantityRe.FindStringSubmatch(c.Text); m != nil {
					if q, err := coerce.Quantity(m[1]); err == nil {
						header.DeclaredQuantity = q
					}
				}
			}
			if hasTotal {
				if amt, err := coerce.Amount(row.Text(totalCol)); err == nil {
					header.DeclaredAmount = amt
				}
			}
			if v, ok := valueAfter(row, "Net amount"); ok {
				if amt, err := coerce.Amount(v.Text); err == nil {
					header.DeclaredAmount = amt
				}
			}
			break
		}

		itemCode := coerce.Identifier(row.Text(itemCol))
		if itemCode == "" {
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Message: fmt.Sprintf("skipped row without item code (leading cell %q)", truncate(leading, 40)),
			})
			continue
		}

		qty, err := coerce.Quantity(row.Text(qtyCol))
		if err != nil {
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Column:  "Quantity",
				Message: fmt.Sprintf("skipped item %s: %v", itemCode, po.WithCell(err, row.Index, "Quantity")),
			})
			continue
		}

		lineNo++
		line := po.ParsedLine{
			LineNumber: lineNo,
			ItemCode:   itemCode,
			Quantity:   qty,
			Attrs:      map[string]string{},
		}
		if hasDesc {
			line.Description = row.Text(descCol)
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
		if hasHSN {
			line.Attrs["hsn_code"] = coerce.Identifier(row.Text(hsnCol))
		}
		if hasMRP {
			line.Attrs["mrp"] = row.Text(mrpCol)
		}

		base := line.LineAmount - line.TaxAmount
		if hasPrice && hasTotal && !coerce.AmountsReconcile(line.Quantity, line.UnitPrice, base, 0) {
			line.AddFlag(po.FlagAmountMismatch)
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Column:  "Total Amount",
				Message: fmt.Sprintf("line %d: %v x %v does not reconcile with %v", lineNo, line.Quantity, line.UnitPrice, base),
			})
		}

		lines = append(lines, line)
	}

	doc := po.Document{Header: header, Lines: lines, Warnings: warnings}
	return []po.Document{doc}, nil
}
