package infra

// pdf.go — Internal PDF ticket generation using go-pdf/fpdf.
// Generates A7-size thermal receipt-style tickets with:
//   - Business name header
//   - Ticket number, date and cashier
//   - Item table (product name, quantity, subtotal)
//   - Bold total
//   - Payment, amount tendered and change
//
// The output file is saved to storagePath/ticket_{fecha}_{numero}_{id}.pdf.
// Ticket numbers restart per cashier per day, so the file name carries the
// date and a venta ID fragment to stay unique.

import (
	"fmt"
	"os"
	"path/filepath"

	"sazonpos/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateTicketPDF generates an internal PDF receipt for a completed Venta.
// emitido is the local-time stamp shown on the ticket; storagePath is the
// directory where the PDF will be written (created if needed).
// Returns the absolute path to the generated file.
func GenerateTicketPDF(venta *model.Venta, emitido, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	idFrag := venta.ID.String()
	if len(idFrag) > 8 {
		idFrag = idFrag[:8]
	}
	fileName := fmt.Sprintf("ticket_%s_%d_%s.pdf", venta.Fecha, venta.NumeroTicket, idFrag)
	filePath := filepath.Join(storagePath, fileName)

	// A7 ≈ 74mm × 105mm — close to thermal receipt paper (custom size, "A7" is not in fpdf's named list)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8 // total margins = 8mm

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "SazónPOS", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Comprobante de Venta", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Ticket info ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Ticket N° %d", venta.NumeroTicket), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, emitido, "", 1, "L", false, 0, "")
	if venta.Usuario != nil {
		pdf.CellFormat(contentW, 4, "Cajero: "+venta.Usuario.Nombre, "", 1, "L", false, 0, "")
	}
	if venta.NumeroMesa != nil {
		pdf.CellFormat(contentW, 4, fmt.Sprintf("Mesa %d", *venta.NumeroMesa), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// ── Separator ────────────────────────────────────────────────────────────
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items header ──────────────────────────────────────────────────────────
	col1 := contentW * 0.52 // product name
	col2 := contentW * 0.16 // qty
	col3 := contentW * 0.32 // subtotal

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	// ── Item rows ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	for _, det := range venta.Detalles {
		nombre := det.ProductoNombre
		// Truncate long names
		if len(nombre) > 22 {
			nombre = nombre[:21] + "…"
		}
		pdf.CellFormat(col1, 5, nombre, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", det.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "Bs "+det.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Bs "+venta.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Payment ───────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1+col2, 4, "Pago ("+venta.MetodoPago+"):", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 4, "Bs "+venta.MontoPagado.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(col1+col2, 4, "Cambio:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 4, "Bs "+venta.Vuelto.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Footer ────────────────────────────────────────────────────────────────
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "¡Gracias por su preferencia!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
