package infra

// pdf.go — PDF generation using go-pdf/fpdf.
// Two documents are produced here:
//   - Factura receipt: A7-size thermal-style ticket for a sale.
//   - Reporte de cierre: A5 summary of a closed cash session
//     (apertura, ventas por método de pago, esperado vs real, diferencia).

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/money"

	"github.com/go-pdf/fpdf"
)

// GenerateFacturaPDF generates a thermal receipt-style PDF for a factura.
// storagePath is the directory where the PDF will be written (created if needed).
// Returns the absolute path to the generated file.
func GenerateFacturaPDF(factura *model.Factura, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("factura_%s.pdf", factura.ID)
	filePath := filepath.Join(storagePath, fileName)

	// A7 ≈ 74mm × 105mm, close to thermal receipt paper
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Chamo's Barber", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Comprobante de Venta", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	facturaRef := factura.ID.String()
	if len(facturaRef) > 8 {
		facturaRef = facturaRef[:8]
	}
	pdf.CellFormat(contentW, 5, "Factura "+facturaRef, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, factura.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if factura.ClienteNombre != nil && *factura.ClienteNombre != "" {
		pdf.CellFormat(contentW, 4, "Cliente: "+*factura.ClienteNombre, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Servicio", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range factura.Items {
		descripcion := item.Descripcion
		if len(descripcion) > 22 {
			descripcion = descripcion[:21] + "…"
		}
		pdf.CellFormat(col1, 5, descripcion, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, money.Formatear(item.PrecioUnitario*int64(item.Cantidad)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, money.Formatear(factura.Total), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1+col2, 4, "Pago ("+factura.MetodoPago+"):", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 4, money.Formatear(factura.Total), "", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "¡Gracias por su visita!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

// GenerateCierrePDF generates the cierre-de-caja report for a closed session.
// ventasPorMetodo maps payment method to the signed sum of venta movements.
func GenerateCierrePDF(sesion *model.CajaSesion, ventasPorMetodo map[string]int64, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("cierre_sesion_%s.pdf", sesion.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Chamo's Barber — Cierre de Caja", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Sesión "+sesion.ID.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Apertura: "+sesion.OpenedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if sesion.ClosedAt != nil {
		pdf.CellFormat(contentW, 5, "Cierre:    "+sesion.ClosedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(3)

	labelW := contentW * 0.6
	valueW := contentW * 0.4

	row := func(label string, monto int64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, money.Formatear(monto), "", 1, "R", false, 0, "")
	}

	row("Monto inicial:", sesion.MontoInicial, false)
	for metodo, monto := range ventasPorMetodo {
		row("Ventas ("+metodo+"):", monto, false)
	}
	row("Monto esperado:", sesion.MontoEsperado, true)

	if sesion.MontoReal != nil {
		row("Monto real contado:", *sesion.MontoReal, true)
	}
	if sesion.Diferencia != nil {
		row("Diferencia:", *sesion.Diferencia, true)
		if sesion.ClasificacionDesvio != nil {
			pdf.Ln(1)
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(contentW, 5, "Clasificación del desvío: "+*sesion.ClasificacionDesvio, "", 1, "L", false, 0, "")
		}
	}

	if sesion.Notas != nil && *sesion.Notas != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(contentW, 4, "Notas: "+*sesion.Notas, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
