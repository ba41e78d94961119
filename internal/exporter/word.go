package exporter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gitee.com/gooffice/gooffice/color"
	"gitee.com/gooffice/gooffice/document"
	"gitee.com/gooffice/gooffice/measurement"
	"gitee.com/gooffice/gooffice/schema/soo/wml"

	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// WordExporter renders a report as a .docx flow document: centered title,
// metadata block, one heading per visible section with a per-type projection
// of its content, and a centered footer.
type WordExporter struct{}

func NewWordExporter() *WordExporter {
	return &WordExporter{}
}

func (e *WordExporter) ContentType() string {
	return ContentTypeWord
}

func (e *WordExporter) FileExtension() string {
	return "docx"
}

func (e *WordExporter) Render(ctx context.Context, export *models.ReportExport) (result0 []byte, err error) {
	_, span := observability.TraceExportFunction(ctx, "WordExporter.Render")
	defer observability.FinishSpan(span, &err)

	doc, err := e.buildDocument(export)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRenderFailed, contextutils.SeverityError, "failed to serialize document", err.Error(), err)
	}
	return buf.Bytes(), nil
}

func (e *WordExporter) buildDocument(export *models.ReportExport) (result0 *document.Document, err error) {
	doc := document.New()

	title := doc.AddParagraph()
	title.Properties().SetAlignment(wml.ST_JcCenter)
	titleRun := title.AddRun()
	titleRun.Properties().SetBold(true)
	titleRun.Properties().SetSize(18)
	titleRun.AddText(export.Report.Title)

	e.addMetaLine(doc, "Organization", export.OrganizationName)
	e.addMetaLine(doc, "Author", export.AuthorName)
	e.addMetaLine(doc, "Date", export.GeneratedAt.Format("January 2, 2006"))
	e.addMetaLine(doc, "Status", string(export.Report.Status))
	if export.Report.Description != "" {
		desc := doc.AddParagraph()
		desc.AddRun().AddText(StripHTML(export.Report.Description))
	}
	doc.AddParagraph()

	for _, section := range models.VisibleSections(export.Sections) {
		heading := doc.AddParagraph()
		heading.Properties().SetHeadingLevel(1)
		headingRun := heading.AddRun()
		headingRun.Properties().SetBold(true)
		headingRun.Properties().SetSize(14)
		headingRun.AddText(section.Title)

		e.addSectionContent(doc, section)
		doc.AddParagraph()
	}

	divider := doc.AddParagraph()
	divider.Properties().SetAlignment(wml.ST_JcCenter)
	divider.AddRun().AddText(strings.Repeat("_", 40))

	e.addFooterLine(doc, fmt.Sprintf("Generated by %s", export.BrandTitle))
	e.addFooterLine(doc, fmt.Sprintf("%s, %s", export.OrganizationName, export.GeneratedAt.Format("January 2, 2006")))
	return doc, nil
}

func (e *WordExporter) addSectionContent(doc *document.Document, section models.Section) {
	switch content := section.Content.(type) {
	case models.TextContent:
		e.addPlainText(doc, content.Text)
	case models.RecommendationsContent:
		e.addPlainText(doc, content.Text)
	case models.TableContent:
		e.addPlainText(doc, content.Text)
	case models.StatisticsContent:
		e.addStatisticsTable(doc, content)
	case models.ChartContent:
		e.addChartTable(doc, content)
	case models.MapContent:
		e.addLocations(doc, content)
	default:
		placeholder := doc.AddParagraph()
		run := placeholder.AddRun()
		run.Properties().SetItalic(true)
		run.AddText(fmt.Sprintf("[%s section]", section.Type))
	}
}

// addPlainText writes stripped rich text, one paragraph per line
func (e *WordExporter) addPlainText(doc *document.Document, text string) {
	for _, line := range strings.Split(StripHTML(text), "\n") {
		para := doc.AddParagraph()
		para.AddRun().AddText(line)
	}
}

func (e *WordExporter) addStatisticsTable(doc *document.Document, content models.StatisticsContent) {
	if len(content.Statistics) == 0 {
		return
	}
	table := e.addBorderedTable(doc)
	header := table.AddRow()
	e.addTableHeaderCell(header, "Metric")
	e.addTableHeaderCell(header, "Value")
	for _, stat := range content.Statistics {
		row := table.AddRow()
		row.AddCell().AddParagraph().AddRun().AddText(stat.Label)
		row.AddCell().AddParagraph().AddRun().AddText(statisticText(stat))
	}
}

func (e *WordExporter) addChartTable(doc *document.Document, content models.ChartContent) {
	if content.Title != "" {
		para := doc.AddParagraph()
		run := para.AddRun()
		run.Properties().SetItalic(true)
		run.AddText("Chart: " + content.Title)
	}
	rows := extractChartRows(content)
	if len(rows) == 0 {
		return
	}
	table := e.addBorderedTable(doc)
	header := table.AddRow()
	e.addTableHeaderCell(header, "Label")
	e.addTableHeaderCell(header, "Value")
	for _, record := range rows {
		row := table.AddRow()
		row.AddCell().AddParagraph().AddRun().AddText(record.Label)
		row.AddCell().AddParagraph().AddRun().AddText(asString(record.Value))
	}
}

func (e *WordExporter) addLocations(doc *document.Document, content models.MapContent) {
	label := doc.AddParagraph()
	labelRun := label.AddRun()
	labelRun.Properties().SetBold(true)
	labelRun.AddText("Locations:")
	for _, loc := range content.Locations {
		para := doc.AddParagraph()
		para.AddRun().AddText(formatLocationLine(loc))
	}
}

// formatLocationLine renders one map entry as a bullet line, skipping the
// clauses whose data is absent
func formatLocationLine(loc models.Location) string {
	var b strings.Builder
	b.WriteString("• " + loc.Name)
	if loc.Type != "" {
		b.WriteString(fmt.Sprintf(" (%s)", loc.Type))
	}
	if loc.AffectedPeople != nil {
		b.WriteString(fmt.Sprintf(" - %d affected", *loc.AffectedPeople))
	}
	if loc.Description != nil && *loc.Description != "" {
		b.WriteString(" - " + *loc.Description)
	}
	return b.String()
}

func (e *WordExporter) addBorderedTable(doc *document.Document) document.Table {
	table := doc.AddTable()
	table.Properties().SetWidthPercent(100)
	borders := table.Properties().Borders()
	borders.SetAll(wml.ST_BorderSingle, color.Auto, 1*measurement.Point)
	return table
}

func (e *WordExporter) addTableHeaderCell(row document.Row, text string) {
	run := row.AddCell().AddParagraph().AddRun()
	run.Properties().SetBold(true)
	run.AddText(text)
}

func (e *WordExporter) addMetaLine(doc *document.Document, label, value string) {
	para := doc.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)
	labelRun := para.AddRun()
	labelRun.Properties().SetBold(true)
	labelRun.AddText(label + ": ")
	para.AddRun().AddText(value)
}

func (e *WordExporter) addFooterLine(doc *document.Document, text string) {
	para := doc.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)
	run := para.AddRun()
	run.Properties().SetItalic(true)
	run.Properties().SetSize(9)
	run.AddText(text)
}
