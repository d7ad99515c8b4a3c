package platform

// zepto.go parses Zepto PO exports: a flat columnar CSV whose first row is
// the column header and whose rows may span several POs. Rows are grouped
// by the "PO No." column into one document per PO, in document order.

import (
	"fmt"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

func init() {
	Register(zeptoParser{})
}

type zeptoParser struct{}

func (zeptoParser) Platform() string { return "zepto" }

func (zeptoParser) Parse(rows []tabular.RawRow) ([]po.Document, error) {
	headerRow := findRow(rows, MaxHeaderScanRows, func(r tabular.RawRow) bool {
		idx := indexColumns(r)
		return idx.has("po no") && idx.has("sku") && idx.has("qty")
	})
	if headerRow < 0 {
		return nil, &po.StructureError{Platform: "zepto", Reason: "column header (PO No. / SKU / Qty) not found"}
	}

	idx := indexColumns(rows[headerRow])
	poCol, _ := idx.find("po no")
	skuCol, _ := idx.find("sku")
	qtyCol, _ := idx.find("qty")
	descCol, hasDesc := idx.find("sku desc")
	brandCol, hasBrand := idx.find("brand")
	hsnCol, hasHSN := idx.find("hsn")
	eanCol, hasEAN := idx.find("ean")
	costCol, hasCost := idx.find("unit base cost")
	landingCol, hasLanding := idx.find("landing cost")
	totalCol, hasTotal := idx.find("total amount")
	mrpCol, hasMRP := idx.find("mrp")
	dateCol, hasDate := idx.find("po date")
	vendorCodeCol, hasVendorCode := idx.find("vendor code")
	vendorNameCol, hasVendorName := idx.find("vendor name")

	// Group contiguous and non-contiguous rows by PO number while
	// remembering first-seen order.
	type group struct {
		doc   *po.Document
		count int
	}
	groups := make(map[string]*group)
	var order []string

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if row.IsBlank() {
			continue
		}

		poNumber := row.Text(poCol)
		if poNumber == "" {
			continue
		}

		g, ok := groups[poNumber]
		if !ok {
			header := po.ParsedHeader{
				Platform: "zepto",
				PONumber: poNumber,
				Attrs:    map[string]string{},
			}
			var headerWarnings []po.Warning
			if hasDate {
				if d, err := coerce.Date(row.Cell(dateCol)); err == nil {
					header.PODate = d
				} else {
					headerWarnings = append(headerWarnings, po.Warning{
						Row:     row.Index,
						Column:  "PO Date",
						Message: po.WithCell(err, row.Index, "PO Date").Error(),
					})
				}
			}
			if hasVendorCode {
				header.VendorCode = coerce.Identifier(row.Text(vendorCodeCol))
			}
			if hasVendorName {
				header.VendorName = row.Text(vendorNameCol)
			}
			g = &group{doc: &po.Document{Header: header, Warnings: headerWarnings}}
			groups[poNumber] = g
			order = append(order, poNumber)
		}

		qty, err := coerce.Quantity(row.Text(qtyCol))
		if err != nil {
			g.doc.Warnings = append(g.doc.Warnings, po.Warning{
				Row:     row.Index,
				Column:  "Qty",
				Message: fmt.Sprintf("skipped line: %v", po.WithCell(err, row.Index, "Qty")),
			})
			continue
		}

		// The export's own Line No column is routinely empty, so lines
		// are numbered sequentially per PO.
		g.count++
		line := po.ParsedLine{
			LineNumber: g.count,
			ItemCode:   coerce.Identifier(row.Text(skuCol)),
			Quantity:   qty,
			Attrs:      map[string]string{},
		}
		if hasDesc {
			line.Description = row.Text(descCol)
		}
		if hasCost {
			line.UnitPrice, _ = coerce.Amount(row.Text(costCol))
		}
		if hasTotal {
			line.LineAmount, _ = coerce.Amount(row.Text(totalCol))
		}
		if hasLanding {
			if landing, err := coerce.Amount(row.Text(landingCol)); err == nil {
				// Landing cost is the per-unit cost including tax.
				line.TaxAmount = coerce.Round2((landing - line.UnitPrice) * qty)
				line.Attrs["landing_cost"] = row.Text(landingCol)
			}
		}
		if hasBrand {
			line.Attrs["brand"] = row.Text(brandCol)
		}
		if hasHSN {
			line.Attrs["hsn_code"] = coerce.Identifier(row.Text(hsnCol))
		}
		if hasEAN {
			line.Attrs["ean"] = coerce.Identifier(row.Text(eanCol))
		}
		if hasMRP {
			line.Attrs["mrp"] = row.Text(mrpCol)
		}

		base := line.LineAmount - line.TaxAmount
		if hasCost && hasTotal && !coerce.AmountsReconcile(line.Quantity, line.UnitPrice, base, 0) {
			line.AddFlag(po.FlagAmountMismatch)
			g.doc.Warnings = append(g.doc.Warnings, po.Warning{
				Row:     row.Index,
				Column:  "Total Amount",
				Message: fmt.Sprintf("line %d: %v x %v does not reconcile with %v", line.LineNumber, line.Quantity, line.UnitPrice, base),
			})
		}

		g.doc.Lines = append(g.doc.Lines, line)
	}

	if len(order) == 0 {
		return nil, &po.StructureError{Platform: "zepto", Reason: "no rows with a PO number below the column header"}
	}

	docs := make([]po.Document, 0, len(order))
	for _, poNumber := range order {
		docs = append(docs, *groups[poNumber].doc)
	}
	return docs, nil
}
