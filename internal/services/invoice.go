package services

import (
	"bytes"
	"fmt"
	"strings"

	"franchise-billing/internal/models"
	"franchise-billing/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

const walkInCustomer = "Walk-in Customer"

// InvoiceFilename is the download name of a bill's PDF
func InvoiceFilename(billNumber string) string {
	return "bill-" + strings.ReplaceAll(billNumber, "/", "-") + ".pdf"
}

func customerLabel(b *models.Bill) string {
	if b.CustomerName != "" {
		return b.CustomerName
	}
	return walkInCustomer
}

func rupees(d decimal.Decimal) string {
	return "Rs. " + d.StringFixed(2)
}

// RenderInvoicePDF lays out an A4 invoice for a bill
func RenderInvoicePDF(franchiseName string, bill *models.BillWithItems) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Invoice "+bill.BillNumber, true)
	pdf.AddPage()
	// Core fonts are cp1252; translate so accented names survive
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(180, 12, "INVOICE", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(180, 8, tr(franchiseName), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(180, 6, "Invoice Number: "+bill.BillNumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(180, 6, "Date: "+timeutil.ToIST(bill.BillDate).Format(timeutil.InvoiceLayout), "", 1, "L", false, 0, "")
	pdf.CellFormat(180, 6, "Customer: "+tr(customerLabel(&bill.Bill)), "", 1, "L", false, 0, "")
	if bill.CustomerPhone != "" {
		pdf.CellFormat(180, 6, "Phone: "+bill.CustomerPhone, "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	// Items table
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "MRP", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range bill.Items {
		pdf.CellFormat(90, 7, tr(truncate(it.ProductName, 50)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, rupees(it.MRP), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, rupees(it.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	if !bill.ServiceCharges.IsZero() {
		pdf.CellFormat(180, 6, "Service Charges: "+rupees(bill.ServiceCharges), "", 1, "R", false, 0, "")
	}
	if !bill.Discount.IsZero() {
		pdf.CellFormat(180, 6, "Discount: "+rupees(bill.Discount), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(180, 8, "Total Amount: "+rupees(bill.TotalAmount), "", 1, "R", false, 0, "")

	if bill.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(180, 6, "Notes: "+tr(bill.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderInvoiceText formats a bill for chat apps
func RenderInvoiceText(franchiseName string, bill *models.BillWithItems) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", franchiseName)
	fmt.Fprintf(&b, "Invoice: %s\n", bill.BillNumber)
	fmt.Fprintf(&b, "Date: %s\n", timeutil.ToIST(bill.BillDate).Format(timeutil.InvoiceLayout))
	fmt.Fprintf(&b, "Customer: %s\n\n", customerLabel(&bill.Bill))

	for _, it := range bill.Items {
		fmt.Fprintf(&b, "%s x%d @ %s = %s\n", it.ProductName, it.Quantity, rupees(it.MRP), rupees(it.Total))
	}
	b.WriteString("\n")
	if !bill.ServiceCharges.IsZero() {
		fmt.Fprintf(&b, "Service Charges: %s\n", rupees(bill.ServiceCharges))
	}
	if !bill.Discount.IsZero() {
		fmt.Fprintf(&b, "Discount: %s\n", rupees(bill.Discount))
	}
	fmt.Fprintf(&b, "*Total: %s*\n", rupees(bill.TotalAmount))
	if bill.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", bill.Notes)
	}
	b.WriteString("\nThank you for shopping with us!")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
