package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []struct {
	title string
	width float64
	value func(TimetableRow) string
}{
	{"Day", 28, func(r TimetableRow) string { return r.Day }},
	{"Time", 30, func(r TimetableRow) string { return r.StartTime + "-" + r.EndTime }},
	{"Code", 25, func(r TimetableRow) string { return r.CourseCode }},
	{"Course", 75, func(r TimetableRow) string { return r.CourseName }},
	{"Faculty", 60, func(r TimetableRow) string { return r.Faculty }},
	{"Room", 59, func(r TimetableRow) string { return r.Room }},
}

// PDFExporter renders timetable rows into a landscape table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title and one row per entry.
func (e *PDFExporter) Render(title string, rows []TimetableRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 10)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(rows) == 0 {
		pdf.CellFormat(0, 8, "No sessions scheduled", "1", 1, "C", false, 0, "")
	}
	for _, row := range rows {
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.value(row), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
