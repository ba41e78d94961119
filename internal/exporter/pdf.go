package exporter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// PDFExporter renders a report as a linear PDF document: the same projection
// the flow-document renderer uses, laid out page by page.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string {
	return ContentTypePDF
}

func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

func (e *PDFExporter) Render(ctx context.Context, export *models.ReportExport) (result0 []byte, err error) {
	_, span := observability.TraceExportFunction(ctx, "PDFExporter.Render")
	defer observability.FinishSpan(span, &err)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, export.Report.Title, "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	e.writeMetaLine(pdf, "Organization", export.OrganizationName)
	e.writeMetaLine(pdf, "Author", export.AuthorName)
	e.writeMetaLine(pdf, "Date", export.GeneratedAt.Format("January 2, 2006"))
	e.writeMetaLine(pdf, "Status", string(export.Report.Status))
	if export.Report.Description != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 5, StripHTML(export.Report.Description), "", "L", false)
	}
	pdf.Ln(5)

	for _, section := range models.VisibleSections(export.Sections) {
		pdf.SetFont("Arial", "B", 14)
		pdf.MultiCell(0, 8, section.Title, "", "L", false)
		pdf.Ln(1)
		e.writeSectionContent(pdf, section)
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "I", 8)
	pdf.Ln(3)
	pdf.MultiCell(0, 5, fmt.Sprintf("Generated by %s", export.BrandTitle), "", "C", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("%s, %s", export.OrganizationName, export.GeneratedAt.Format("January 2, 2006")), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRenderFailed, contextutils.SeverityError, "failed to generate PDF", err.Error(), err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) writeMetaLine(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(35, 6, label+":")
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, value)
	pdf.Ln(6)
}

func (e *PDFExporter) writeSectionContent(pdf *gofpdf.Fpdf, section models.Section) {
	switch content := section.Content.(type) {
	case models.TextContent:
		e.writePlainText(pdf, content.Text)
	case models.RecommendationsContent:
		e.writePlainText(pdf, content.Text)
	case models.TableContent:
		e.writePlainText(pdf, content.Text)
	case models.StatisticsContent:
		e.writeStatistics(pdf, content)
	case models.ChartContent:
		e.writeChart(pdf, content)
	case models.MapContent:
		e.writeLocations(pdf, content)
	default:
		pdf.SetFont("Arial", "I", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("[%s section]", section.Type), "", "L", false)
	}
}

func (e *PDFExporter) writePlainText(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "", 11)
	for _, paragraph := range strings.Split(StripHTML(text), "\n") {
		if paragraph != "" {
			pdf.MultiCell(0, 6, paragraph, "", "L", false)
			pdf.Ln(1)
		}
	}
}

func (e *PDFExporter) writeStatistics(pdf *gofpdf.Fpdf, content models.StatisticsContent) {
	if len(content.Statistics) == 0 {
		return
	}
	e.writeTableHeader(pdf, "Metric", "Value")
	pdf.SetFont("Arial", "", 11)
	for _, stat := range content.Statistics {
		pdf.CellFormat(95, 7, stat.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, statisticText(stat), "1", 1, "L", false, 0, "")
	}
}

func (e *PDFExporter) writeChart(pdf *gofpdf.Fpdf, content models.ChartContent) {
	if content.Title != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 7, content.Title, "", "L", false)
	}
	rows := extractChartRows(content)
	if len(rows) == 0 {
		return
	}
	e.writeTableHeader(pdf, "Label", "Value")
	pdf.SetFont("Arial", "", 11)
	for _, record := range rows {
		pdf.CellFormat(95, 7, record.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, asString(record.Value), "1", 1, "L", false, 0, "")
	}
}

func (e *PDFExporter) writeLocations(pdf *gofpdf.Fpdf, content models.MapContent) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Locations:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 11)
	for _, loc := range content.Locations {
		line := "- " + strings.TrimPrefix(formatLocationLine(loc), "• ")
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
}

func (e *PDFExporter) writeTableHeader(pdf *gofpdf.Fpdf, left, right string) {
	pdf.SetFillColor(240, 244, 248)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 7, left, "1", 0, "L", true, 0, "")
	pdf.CellFormat(95, 7, right, "1", 1, "L", true, 0, "")
}
