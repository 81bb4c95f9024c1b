package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// GridSheet is one weekly grid page: columns across, row labels down.
type GridSheet struct {
	Title     string
	Columns   []string
	RowLabels []string
	// Cells[row][col]; multi-line values use "\n"
	Cells [][]string
}

// PDFExporter renders datasets and weekly grids into PDF documents.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a portrait PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := e.newDocument("P")
	pdf.AddPage()
	writeTitle(pdf, title)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return output(pdf)
}

// RenderGrid writes one landscape page per sheet.
func (e *PDFExporter) RenderGrid(sheets []GridSheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("pdf grid requires at least one sheet")
	}
	pdf := e.newDocument("L")
	for _, sheet := range sheets {
		if len(sheet.Columns) == 0 {
			return nil, fmt.Errorf("sheet %q has no columns", sheet.Title)
		}
		pdf.AddPage()
		writeTitle(pdf, sheet.Title)

		labelWidth := 30.0
		colWidth := (277.0 - labelWidth) / float64(len(sheet.Columns))
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(labelWidth, 8, "", "1", 0, "C", false, 0, "")
		for _, col := range sheet.Columns {
			pdf.CellFormat(colWidth, 8, col, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		for r, label := range sheet.RowLabels {
			height := 6.0 * float64(rowLines(sheet, r))
			pdf.SetFont("Arial", "B", 8)
			pdf.CellFormat(labelWidth, height, label, "1", 0, "C", false, 0, "")
			pdf.SetFont("Arial", "", 7)
			for c := range sheet.Columns {
				x, y := pdf.GetXY()
				pdf.Rect(x, y, colWidth, height, "D")
				pdf.MultiCell(colWidth, 6, cell(sheet, r, c), "", "C", false)
				pdf.SetXY(x+colWidth, y)
			}
			pdf.Ln(height)
		}
	}
	return output(pdf)
}

func (e *PDFExporter) newDocument(orientation string) *gofpdf.Fpdf {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AliasNbPages("{nb}")
	generated := e.now().Format("2006-01-02")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb} | Generated on: %s", pdf.PageNo(), generated), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	return pdf
}

func writeTitle(pdf *gofpdf.Fpdf, title string) {
	if title == "" {
		return
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)
}

func cell(sheet GridSheet, r, c int) string {
	if r >= len(sheet.Cells) || c >= len(sheet.Cells[r]) {
		return ""
	}
	return sheet.Cells[r][c]
}

func rowLines(sheet GridSheet, r int) int {
	lines := 1
	for c := range sheet.Columns {
		if n := strings.Count(cell(sheet, r, c), "\n") + 1; n > lines {
			lines = n
		}
	}
	return lines
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
