package notify

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"mediconnect-server/internal/models"
)

// OrderInvoicePDF renders a verified order as a PDF invoice. Line prices
// come from the order's captured snapshots, not from the medicine table.
func OrderInvoicePDF(order *models.Order, patient *models.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "MediConnect Pharmacy", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "Your Healthcare Partner", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Order Invoice", "1", 1, "C", false, 0, "")
	invoiceDetail(pdf, "Order ID", order.ID, true)
	invoiceDetail(pdf, "Patient", patient.Name, true)
	invoiceDetail(pdf, "Order Date", order.CreatedAt.Format("2006-01-02"), true)
	invoiceDetail(pdf, "Status", string(order.Status), true)
	invoiceDetail(pdf, "Payment Status", string(order.PaymentStatus), true)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Items", "1", 1, "C", false, 0, "")
	for _, item := range order.Items {
		name := item.Medicine.Name
		if name == "" {
			name = item.MedicineID
		}
		invoiceDetail(pdf, fmt.Sprintf("%s x%d", name, item.Quantity),
			fmt.Sprintf("%.2f", item.Price*float64(item.Quantity)), false)
	}

	pdf.SetFont("Arial", "B", 13)
	invoiceDetail(pdf, "Grand Total", fmt.Sprintf("%.2f", order.TotalAmount), true)

	addr := order.DeliveryAddress
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 10, "Delivery Address:", "", 1, "L", false, 0, "")
	pdf.MultiCell(0, 5, fmt.Sprintf("%s, %s, %s %s", addr.Street, addr.City, addr.State, addr.ZipCode), "", "L", false)

	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated invoice", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func invoiceDetail(pdf *gofpdf.Fpdf, label, value string, isHeader bool) {
	if isHeader {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(255, 255, 255)
	} else {
		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(240, 240, 240)
	}
	pdf.CellFormat(70, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}
