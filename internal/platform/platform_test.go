package platform

import (
	"strings"
	"testing"

	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

// rowsFromCSV decodes an inline CSV fixture through the real reader so the
// parsers see exactly what they see in production.
func rowsFromCSV(t *testing.T, content string) []tabular.RawRow {
	t.Helper()
	rows, err := tabular.ReadAll(tabular.RawDocument{
		Content: []byte(strings.TrimSpace(content) + "\n"),
		Format:  tabular.FormatCSV,
	})
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return rows
}

func TestRegistry(t *testing.T) {
	for _, key := range []string{"flipkart", "zepto", "blinkit", "citymall"} {
		if _, ok := Get(key); !ok {
			t.Errorf("parser %q not registered", key)
		}
	}
	if _, ok := Get("nosuchplatform"); ok {
		t.Error("Get(nosuchplatform) should fail")
	}
	if _, ok := Get("  FLIPKART  "); !ok {
		t.Error("Get should normalize case and whitespace")
	}
}

const flipkartFixture = `
PURCHASE ORDER #FK2025001
PO#,FK2025001,Nature Of Supply,Goods,PO Expiry,30-10-2025,CATEGORY,Grocery,ORDER DATE,26-09-2025
SUPPLIER NAME,Jivo Wellness,,,SUPPLIER CONTACT,9990001111,EMAIL,orders@jivo.in
Billed by,GSTIN,07AAACF1111A1Z5
MODE OF PAYMENT,,EFT,CONTRACT REF ID,CR-42,CREDIT TERM,,30 Days
S. no.,HSN/SA Code,FSN/ISBN13,Quantity,Pending Quantity,UOM,Title,Brand,Type,EAN,Vertical,Required By Date,Supplier MRP,Supplier Price,Taxable Value,Tax Amount,Total Amount
1,15099090,FSNA001,10,10,PCS,Jivo Olive Oil 1L,Jivo,Oil,8901001,Edible,28-09-2025,299,25.50,255.00,12.75,267.75
2,15099090,FSNA002,5,5,PCS,Jivo Canola 1L,Jivo,Oil,8901002,Edible,28-09-2025,399,100.00,500.00,25.00,525.00
Total Quantity,15,,,,,,,792.75
Important Notification: Please mention PO number on all invoices
1. All disputes are subject to Delhi jurisdiction
`

func TestFlipkartParse(t *testing.T) {
	p, _ := Get("flipkart")
	docs, err := p.Parse(rowsFromCSV(t, flipkartFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}

	doc := docs[0]
	h := doc.Header
	if h.PONumber != "FK2025001" {
		t.Errorf("PONumber = %q, want FK2025001", h.PONumber)
	}
	if h.PODate.Format("2006-01-02") != "2025-09-26" {
		t.Errorf("PODate = %s, want 2025-09-26", h.PODate.Format("2006-01-02"))
	}
	if h.ExpiryDate.Format("2006-01-02") != "2025-10-30" {
		t.Errorf("ExpiryDate = %s, want 2025-10-30", h.ExpiryDate.Format("2006-01-02"))
	}
	if h.VendorName != "Jivo Wellness" {
		t.Errorf("VendorName = %q", h.VendorName)
	}
	if h.VendorGSTIN != "07AAACF1111A1Z5" {
		t.Errorf("VendorGSTIN = %q", h.VendorGSTIN)
	}
	if h.DeclaredQuantity != 15 {
		t.Errorf("DeclaredQuantity = %v, want 15", h.DeclaredQuantity)
	}
	if got := h.Attrs["credit_term"]; got != "30 Days" {
		t.Errorf("credit_term = %q, want 30 Days", got)
	}
	if got := h.Attrs["mode_of_payment"]; got != "EFT" {
		t.Errorf("mode_of_payment = %q, want EFT", got)
	}

	if len(doc.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(doc.Lines))
	}
	l := doc.Lines[0]
	if l.LineNumber != 1 || l.ItemCode != "FSNA001" || l.Quantity != 10 {
		t.Errorf("line 1 = %+v", l)
	}
	if l.UnitPrice != 25.50 || l.LineAmount != 267.75 || l.TaxAmount != 12.75 {
		t.Errorf("line 1 amounts = %+v", l)
	}
	if l.HasFlag(po.FlagAmountMismatch) {
		t.Error("line 1 reconciles, should not be flagged")
	}
	if got := l.Attrs["hsn_code"]; got != "15099090" {
		t.Errorf("hsn_code = %q", got)
	}

	// Two trailing notice rows must be skipped with warnings, not parsed
	// as lines and not failing the document.
	skipped := 0
	for _, w := range doc.Warnings {
		if strings.Contains(w.Message, "skipped non-data row") {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("got %d skipped-row warnings, want 2: %+v", skipped, doc.Warnings)
	}
}

func TestFlipkartStructureError(t *testing.T) {
	fixture := `
Some random export,with,cells
that,matches,nothing
1,2,3
`
	p, _ := Get("flipkart")
	_, err := p.Parse(rowsFromCSV(t, fixture))
	if err == nil || !po.IsStructural(err) {
		t.Fatalf("err = %v, want StructureError", err)
	}
}

const zeptoFixture = `
PO No.,PO Date,Vendor Code,Vendor Name,SKU,SKU Desc,Brand,HSN,EAN,Qty,Unit Base Cost,Landing Cost,Total Amount,MRP,Status
ZPO-A,26-09-2025,V001,Jivo Wellness,SKU-GUID-1,Olive Oil 1L,Jivo,15099090,8901001,10,25.50,28.05,280.50,299,PENDING
ZPO-A,26-09-2025,V001,Jivo Wellness,SKU-GUID-2,Canola 1L,Jivo,15099090,8901002,4,50.00,55.00,220.00,399,PENDING
ZPO-B,26-09-2025,V001,Jivo Wellness,SKU-GUID-3,Soyabean 1L,Jivo,15079010,8901003,6,30.00,33.00,198.00,120,PENDING
`

func TestZeptoMultiPOGrouping(t *testing.T) {
	p, _ := Get("zepto")
	docs, err := p.Parse(rowsFromCSV(t, zeptoFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	a, b := docs[0], docs[1]
	if a.Header.PONumber != "ZPO-A" || b.Header.PONumber != "ZPO-B" {
		t.Fatalf("document order = %q, %q; want ZPO-A, ZPO-B", a.Header.PONumber, b.Header.PONumber)
	}
	if len(a.Lines) != 2 || len(b.Lines) != 1 {
		t.Fatalf("line counts = %d, %d; want 2, 1", len(a.Lines), len(b.Lines))
	}
	// Line numbers restart per PO.
	if a.Lines[0].LineNumber != 1 || a.Lines[1].LineNumber != 2 || b.Lines[0].LineNumber != 1 {
		t.Errorf("line numbering wrong: %d %d / %d",
			a.Lines[0].LineNumber, a.Lines[1].LineNumber, b.Lines[0].LineNumber)
	}
	if a.Header.VendorCode != "V001" || a.Header.VendorName != "Jivo Wellness" {
		t.Errorf("vendor = %q %q", a.Header.VendorCode, a.Header.VendorName)
	}

	l := a.Lines[0]
	if l.ItemCode != "SKU-GUID-1" || l.Quantity != 10 || l.UnitPrice != 25.50 {
		t.Errorf("line = %+v", l)
	}
	// Landing cost 28.05 over base 25.50 gives 2.55/unit tax.
	if l.TaxAmount != 25.50 {
		t.Errorf("TaxAmount = %v, want 25.50", l.TaxAmount)
	}
	if l.HasFlag(po.FlagAmountMismatch) {
		t.Error("line reconciles, should not be flagged")
	}
}

func TestZeptoStructureError(t *testing.T) {
	p, _ := Get("zepto")
	_, err := p.Parse(rowsFromCSV(t, "a,b,c\n1,2,3"))
	if !po.IsStructural(err) {
		t.Fatalf("err = %v, want StructureError", err)
	}
}

func TestZeptoBadDateRecordsWarning(t *testing.T) {
	fixture := `
PO No.,PO Date,SKU,SKU Desc,Qty,Unit Base Cost,Total Amount
ZPO-X,next tuesday,SKU-1,Olive Oil 1L,10,25.50,255.00
`
	p, _ := Get("zepto")
	docs, err := p.Parse(rowsFromCSV(t, fixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc := docs[0]
	if !doc.Header.PODate.IsZero() {
		t.Errorf("PODate = %v, want zero for unparseable date", doc.Header.PODate)
	}
	if len(doc.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(doc.Lines))
	}
	found := false
	for _, w := range doc.Warnings {
		if w.Column == "PO Date" && strings.Contains(w.Message, "next tuesday") {
			found = true
		}
	}
	if !found {
		t.Errorf("no PO Date warning recorded: %+v", doc.Warnings)
	}
}

const blinkitFixture = `
Blinkit Commerce Private Limited
PO Number,BL-789,PO Date,26/09/2025
Vendor Name,Jivo Wellness,Vendor No,V42
GST No,07AAACF1111A1Z5,Delivery Date,28/09/2025,Expiry Date,30/10/2025

Item Code,HSN Code,Product Description,Quantity,MRP,Basic Cost Price,Tax Amount,Total Amount
ITM001,15099090,Olive Oil 1L,10,299,25.50,12.75,267.75
ITM002,15099090,Canola 1L,5,399,100.00,25.00,525.00
,,Total Quantity: 15,,,,,792.75
`

func TestBlinkitParse(t *testing.T) {
	p, _ := Get("blinkit")
	docs, err := p.Parse(rowsFromCSV(t, blinkitFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}

	doc := docs[0]
	h := doc.Header
	if h.PONumber != "BL-789" {
		t.Errorf("PONumber = %q", h.PONumber)
	}
	if h.PODate.Format("2006-01-02") != "2025-09-26" {
		t.Errorf("PODate = %s", h.PODate.Format("2006-01-02"))
	}
	if h.VendorName != "Jivo Wellness" || h.VendorCode != "V42" {
		t.Errorf("vendor = %q %q", h.VendorName, h.VendorCode)
	}
	if h.DeclaredQuantity != 15 {
		t.Errorf("DeclaredQuantity = %v, want 15", h.DeclaredQuantity)
	}
	if h.DeclaredAmount != 792.75 {
		t.Errorf("DeclaredAmount = %v, want 792.75", h.DeclaredAmount)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(doc.Lines))
	}
	if doc.Lines[1].ItemCode != "ITM002" || doc.Lines[1].LineAmount != 525.00 {
		t.Errorf("line 2 = %+v", doc.Lines[1])
	}
}

func TestBlinkitStructureError(t *testing.T) {
	p, _ := Get("blinkit")
	_, err := p.Parse(rowsFromCSV(t, "nothing,to,see\nhere,at,all"))
	if !po.IsStructural(err) {
		t.Fatalf("err = %v, want StructureError", err)
	}
}

const cityMallFixture = `
PO Number,CM-001,PO Date,26-09-2025
Vendor,Jivo Wellness
S.No,Article Id,Article Name,HSN,MRP,Base Cost Price,IGST,Quantity,Total Amount
1,ART-1001,Olive Oil 1L,15099090,299,25.50,12.75,10,267.75
2,ART-1002,Canola 1L,15099090,399,100.00,0,0,0
Total,,,,,,,,267.75
`

func TestCityMallZeroQuantityCancellation(t *testing.T) {
	p, _ := Get("citymall")
	docs, err := p.Parse(rowsFromCSV(t, cityMallFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc := docs[0]
	if doc.Header.PONumber != "CM-001" {
		t.Errorf("PONumber = %q", doc.Header.PONumber)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("got %d lines, want 2; zero-quantity lines must be retained", len(doc.Lines))
	}
	if doc.Lines[1].Quantity != 0 {
		t.Errorf("line 2 quantity = %v, want 0", doc.Lines[1].Quantity)
	}
	if !doc.Lines[1].HasFlag(po.FlagZeroQuantity) {
		t.Error("zero-quantity line should carry FlagZeroQuantity")
	}
	if doc.Lines[0].HasFlag(po.FlagZeroQuantity) {
		t.Error("non-zero line should not carry FlagZeroQuantity")
	}
	if doc.Header.DeclaredAmount != 267.75 {
		t.Errorf("DeclaredAmount = %v, want 267.75", doc.Header.DeclaredAmount)
	}
}
