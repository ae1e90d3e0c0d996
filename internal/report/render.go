// Package report renders category reports as downloadable documents.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/phpdave11/gofpdf"
)

// Format is an export document format
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ErrUnsupportedFormat is returned for a format other than csv or pdf
var ErrUnsupportedFormat = fmt.Errorf("%w: unsupported export format", domain.ErrValidation)

// ParseFormat parses a case-insensitive format name; empty means csv
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrUnsupportedFormat
}

// ContentType returns the MIME type of documents in f
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Document is a category report prepared for rendering
type Document struct {
	Start       time.Time
	End         time.Time
	Rows        []domain.CategoryTotal
	Total       string
	GeneratedAt time.Time
}

// NewDocument builds a document from a report; rows are sorted by category name
func NewDocument(period domain.Period, r domain.CategoryReport, generatedAt time.Time) Document {
	return Document{
		Start:       period.Start,
		End:         period.End,
		Rows:        r.Rows(),
		Total:       r.Total().StringFixed(domain.SumPrecision),
		GeneratedAt: generatedAt.UTC(),
	}
}

// Filename returns a download name such as category-report-2024-01-01-to-2024-01-31.csv
func (d Document) Filename(f Format) string {
	return fmt.Sprintf("category-report-%s-to-%s.%s", d.Start.Format("2006-01-02"), d.End.Format("2006-01-02"), f)
}

// Render writes d to w in format f
func Render(w io.Writer, d Document, f Format) error {
	switch f {
	case FormatCSV:
		return RenderCSV(w, d)
	case FormatPDF:
		return RenderPDF(w, d)
	}
	return ErrUnsupportedFormat
}

// RenderBytes renders d into memory
func RenderBytes(d Document, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, d, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderCSV writes a header, one row per category and a TOTAL row
func RenderCSV(w io.Writer, d Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "total"}); err != nil {
		return err
	}
	for _, row := range d.Rows {
		if err := cw.Write([]string{row.Category, row.Total.StringFixed(domain.SumPrecision)}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"TOTAL", d.Total}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// RenderPDF writes a one-table A4 report
func RenderPDF(w io.Writer, d Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "FinTrack category report")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", d.Start.Format(time.RFC3339), d.End.Format(time.RFC3339)))
	pdf.Ln(10)

	colW := []float64{130, 52}
	header := func() {
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(colW[0], 8, "CATEGORY", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[1], 8, "TOTAL AFTER TAX", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	header()

	for _, row := range d.Rows {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(colW[0], 8, tr(row.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 8, row.Total.StringFixed(domain.SumPrecision), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colW[0], 8, "TOTAL", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 8, d.Total, "1", 1, "R", true, 0, "")

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+d.GeneratedAt.Format(time.RFC3339), "", 0, "C", false, 0, "")

	return pdf.Output(w)
}
