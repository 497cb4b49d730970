package infra

// pdf.go: printable cost sheet for one product, rendered with go-pdf/fpdf.
// Layout:
//   - Product header (name, yield, sale price)
//   - Line table (component, quantity, unit cost, line cost)
//   - Bold totals: production cost and cost per unit
//   - Margin against the sale price, when one is set

import (
	"bytes"
	"fmt"
	"time"

	"candycost/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// RenderCostSheet renders an A4 cost sheet and returns the PDF bytes.
func RenderCostSheet(b *dto.CostBreakdownResponse) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Cost sheet: "+b.ProductName, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(b.ProductName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Yield: %s %s", b.Yield.String(), b.UnitOfMeasure), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Generated "+time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Lines ────────────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.40, contentW * 0.20, contentW * 0.20, contentW * 0.20}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Component", "Quantity", "Unit cost", "Cost"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 7, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range b.Lines {
		name := l.ComponentName
		if l.Kind == "product" {
			name += " (sub-product)"
		}
		if len(name) > 48 {
			name = name[:47] + "..."
		}
		pdf.CellFormat(cols[0], 6, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 6, l.Quantity.String()+" "+l.UnitOfMeasure, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 6, "$"+l.UnitCost.StringFixed(4)+"/"+l.NativeUnit, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 6, "$"+l.Cost.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if len(b.Lines) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 6, "No bill of materials", "", 1, "L", false, 0, "")
	}

	pdf.Ln(2)
	y := pdf.GetY()
	pdf.Line(15, y, pageW-15, y)
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := cols[0] + cols[1] + cols[2]
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(labelW, 7, "Production cost", "", 0, "L", false, 0, "")
	pdf.CellFormat(cols[3], 7, "$"+b.ProductionCost.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 7, "Cost per "+b.UnitOfMeasure, "", 0, "L", false, 0, "")
	pdf.CellFormat(cols[3], 7, "$"+b.ProductionCostRatio.StringFixed(4), "", 1, "R", false, 0, "")

	if b.SalePrice.IsPositive() {
		pdf.SetFont("Helvetica", "", 9)
		margin := b.SalePrice.Sub(b.ProductionCostRatio)
		pct := margin.Div(b.SalePrice).Mul(decimal.NewFromInt(100))
		pdf.CellFormat(labelW, 6, "Sale price", "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3], 6, "$"+b.SalePrice.StringFixed(2), "", 1, "R", false, 0, "")
		pdf.CellFormat(labelW, 6, "Unit margin", "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3], 6, fmt.Sprintf("$%s (%s%%)", margin.StringFixed(2), pct.StringFixed(1)), "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render cost sheet: %w", err)
	}
	return buf.Bytes(), nil
}
