package platform

// citymall.go parses CityMall PO exports: a short label preamble followed
// by an article table located by the "Article Id" and "Quantity" columns.
// CityMall uses zero-quantity rows to communicate cancelled lines; those
// are retained and flagged, never silently dropped.

import (
	"fmt"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

func init() {
	Register(cityMallParser{})
}

type cityMallParser struct{}

func (cityMallParser) Platform() string { return "citymall" }

func (cityMallParser) Parse(rows []tabular.RawRow) ([]po.Document, error) {
	header := po.ParsedHeader{Platform: "citymall", Attrs: map[string]string{}}
	var warnings []po.Warning

	tableRow := findRow(rows, 0, func(r tabular.RawRow) bool {
		idx := indexColumns(r)
		return idx.has("article id") && idx.has("quantity")
	})
	if tableRow < 0 {
		return nil, &po.StructureError{Platform: "citymall", Reason: "article table header (Article Id / Quantity) not found"}
	}

	// Label preamble above the table.
	for i := 0; i < tableRow && i < MaxHeaderScanRows; i++ {
		row := rows[i]
		if v, ok := valueAfter(row, "PO Number"); ok && header.PONumber == "" {
			header.PONumber = coerce.Identifier(v.Text)
		}
		if v, ok := valueAfter(row, "PO Date"); ok && header.PODate.IsZero() {
			if d, err := coerce.Date(v); err == nil {
				header.PODate = d
			} else {
				warnings = append(warnings, po.Warning{Row: row.Index, Column: "PO Date", Message: po.WithCell(err, row.Index, "PO Date").Error()})
			}
		}
		if v, ok := valueAfter(row, "Vendor"); ok && header.VendorName == "" {
			header.VendorName = v.Text
		}
	}
	if header.PONumber == "" {
		return nil, &po.StructureError{Platform: "citymall", Reason: "PO Number label not found above article table"}
	}

	idx := indexColumns(rows[tableRow])
	articleCol, _ := idx.find("article id")
	qtyCol, _ := idx.find("quantity")
	nameCol, hasName := idx.find("article name", "name")
	priceCol, hasPrice := idx.find("base cost price", "cost price", "rate")
	taxCol, hasTax := idx.find("igst", "tax")
	totalCol, hasTotal := idx.find("total amount", "total")
	hsnCol, hasHSN := idx.find("hsn")
	mrpCol, hasMRP := idx.find("mrp")

	lineNo := 0
	var lines []po.ParsedLine
	for i := tableRow + 1; i < len(rows); i++ {
		row := rows[i]
		if row.IsBlank() {
			continue
		}
		if labelMatch(row.Text(0), "total") {
			if hasTotal {
				if amt, err := coerce.Amount(row.Text(totalCol)); err == nil {
					header.DeclaredAmount = amt
				}
			}
			break
		}

		article := coerce.Identifier(row.Text(articleCol))
		name := ""
		if hasName {
			name = row.Text(nameCol)
		}
		if article == "" && name == "" {
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Message: "skipped row without article id or name",
			})
			continue
		}

		qty, err := coerce.Quantity(row.Text(qtyCol))
		if err != nil {
			warnings = append(warnings, po.Warning{
				Row:     row.Index,
				Column:  "Quantity",
				Message: fmt.Sprintf("skipped article %s: %v", article, po.WithCell(err, row.Index, "Quantity")),
			})
			continue
		}

		lineNo++
		line := po.ParsedLine{
			LineNumber:  lineNo,
			ItemCode:    article,
			Description: name,
			Quantity:    qty,
			Attrs:       map[string]string{},
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

		// Platform policy: zero quantity means the line was cancelled
		// after issue. Kept for reconciliation, flagged for downstream.
		if qty == 0 {
			line.AddFlag(po.FlagZeroQuantity)
		}

		lines = append(lines, line)
	}

	doc := po.Document{Header: header, Lines: lines, Warnings: warnings}
	return []po.Document{doc}, nil
}
