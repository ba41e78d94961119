package exporter

import (
	"context"
	"fmt"
	"html"
	"strings"

	"reliefapp/internal/models"
	"reliefapp/internal/observability"
)

// HTMLExporter renders a report as a single self-contained HTML page with
// inline styles. Rich-text section bodies are emitted verbatim; every other
// value is escaped.
type HTMLExporter struct{}

func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{}
}

func (e *HTMLExporter) ContentType() string {
	return ContentTypeHTML
}

func (e *HTMLExporter) FileExtension() string {
	return "html"
}

func (e *HTMLExporter) Render(ctx context.Context, export *models.ReportExport) (result0 []byte, err error) {
	_, span := observability.TraceExportFunction(ctx, "HTMLExporter.Render")
	defer observability.FinishSpan(span, &err)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(export.Report.Title))
	b.WriteString("<style>\n" + htmlPageStyle + "</style>\n</head>\n<body>\n")

	e.writeHeader(&b, export)
	for _, section := range models.VisibleSections(export.Sections) {
		e.writeSection(&b, section)
	}
	e.writeAssessments(&b, export)
	e.writeFooter(&b, export)

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String()), nil
}

func (e *HTMLExporter) writeHeader(b *strings.Builder, export *models.ReportExport) {
	b.WriteString("<header class=\"report-header\">\n")
	fmt.Fprintf(b, "<h1>%s</h1>\n", html.EscapeString(export.Report.Title))
	b.WriteString("<div class=\"report-meta\">\n")
	e.writeMetaItem(b, "Organization", export.OrganizationName)
	e.writeMetaItem(b, "Author", export.AuthorName)
	e.writeMetaItem(b, "Date", export.GeneratedAt.Format("January 2, 2006"))
	e.writeMetaItem(b, "Status", string(export.Report.Status))
	b.WriteString("</div>\n")
	if export.Report.Description != "" {
		fmt.Fprintf(b, "<div class=\"report-description\">%s</div>\n", export.Report.Description)
	}
	b.WriteString("</header>\n")
}

func (e *HTMLExporter) writeMetaItem(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<div class=\"meta-item\"><span class=\"meta-label\">%s</span> %s</div>\n",
		html.EscapeString(label), html.EscapeString(value))
}

func (e *HTMLExporter) writeSection(b *strings.Builder, section models.Section) {
	fmt.Fprintf(b, "<section class=\"report-section report-section-%s\">\n", section.Type)
	fmt.Fprintf(b, "<h2>%s</h2>\n", html.EscapeString(section.Title))

	switch content := section.Content.(type) {
	case models.TextContent:
		e.writeRichText(b, content.Text)
	case models.RecommendationsContent:
		e.writeRichText(b, content.Text)
	case models.TableContent:
		e.writeRichText(b, content.Text)
	case models.StatisticsContent:
		e.writeStatistics(b, content)
	case models.ChartContent:
		e.writeChart(b, content)
	case models.MapContent:
		e.writeLocations(b, content)
	case models.ImageGalleryContent:
		b.WriteString("<p class=\"placeholder\"><em>Images are not included in this export</em></p>\n")
	case models.AssessmentDataContent:
		b.WriteString("<p class=\"placeholder\"><em>Assessment data integration coming soon</em></p>\n")
	default:
		fmt.Fprintf(b, "<p class=\"placeholder\"><em>[%s section]</em></p>\n", section.Type)
	}
	b.WriteString("</section>\n")
}

// writeRichText emits trusted editor output verbatim
func (e *HTMLExporter) writeRichText(b *strings.Builder, text string) {
	fmt.Fprintf(b, "<div class=\"rich-text\">%s</div>\n", text)
}

func (e *HTMLExporter) writeStatistics(b *strings.Builder, content models.StatisticsContent) {
	if len(content.Statistics) == 0 {
		return
	}
	b.WriteString("<div class=\"stat-grid\">\n")
	for _, stat := range content.Statistics {
		b.WriteString("<div class=\"stat-card\">\n")
		fmt.Fprintf(b, "<div class=\"stat-value\">%s</div>\n", html.EscapeString(stat.Value))
		if stat.Unit != "" {
			fmt.Fprintf(b, "<div class=\"stat-unit\">%s</div>\n", html.EscapeString(stat.Unit))
		}
		fmt.Fprintf(b, "<div class=\"stat-label\">%s</div>\n", html.EscapeString(stat.Label))
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")
}

func (e *HTMLExporter) writeChart(b *strings.Builder, content models.ChartContent) {
	if content.Title != "" {
		fmt.Fprintf(b, "<h3>%s</h3>\n", html.EscapeString(content.Title))
	}
	rows := extractChartRows(content)
	if len(rows) == 0 {
		return
	}
	b.WriteString("<table class=\"chart-data\">\n<thead><tr><th>Label</th><th>Value</th></tr></thead>\n<tbody>\n")
	for _, record := range rows {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(record.Label), html.EscapeString(asString(record.Value)))
	}
	b.WriteString("</tbody>\n</table>\n")
}

func (e *HTMLExporter) writeLocations(b *strings.Builder, content models.MapContent) {
	if len(content.Locations) == 0 {
		return
	}
	b.WriteString("<ul class=\"location-list\">\n")
	for _, loc := range content.Locations {
		line := strings.TrimPrefix(formatLocationLine(loc), "• ")
		fmt.Fprintf(b, "<li>%s<br><span class=\"location-coords\">%.6f, %.6f</span></li>\n",
			html.EscapeString(line), loc.Latitude, loc.Longitude)
	}
	b.WriteString("</ul>\n")
}

func (e *HTMLExporter) writeAssessments(b *strings.Builder, export *models.ReportExport) {
	if len(export.Assessments) == 0 {
		return
	}
	b.WriteString("<section class=\"report-section report-section-assessments\">\n<h2>Assessments</h2>\n")
	b.WriteString("<table class=\"chart-data\">\n<thead><tr><th>Location</th><th>Type</th><th>Affected People</th><th>Households</th></tr></thead>\n<tbody>\n")
	for _, a := range export.Assessments {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td></tr>\n",
			html.EscapeString(a.Location), html.EscapeString(a.Type), a.AffectedPeople, a.Households)
	}
	b.WriteString("</tbody>\n</table>\n</section>\n")
}

func (e *HTMLExporter) writeFooter(b *strings.Builder, export *models.ReportExport) {
	b.WriteString("<footer class=\"report-footer\">\n")
	fmt.Fprintf(b, "<p>Generated by %s</p>\n", html.EscapeString(export.BrandTitle))
	fmt.Fprintf(b, "<p>%s, %s</p>\n", html.EscapeString(export.OrganizationName), export.GeneratedAt.Format("January 2, 2006"))
	b.WriteString("</footer>\n")
}

const htmlPageStyle = `body { font-family: Georgia, "Times New Roman", serif; max-width: 860px; margin: 0 auto; padding: 2rem; color: #1f2933; }
.report-header { text-align: center; border-bottom: 2px solid #334e68; padding-bottom: 1rem; margin-bottom: 2rem; }
.report-header h1 { margin-bottom: 0.5rem; }
.report-meta { display: flex; flex-wrap: wrap; justify-content: center; gap: 1.5rem; font-size: 0.9rem; }
.meta-label { font-weight: bold; }
.report-description { margin-top: 1rem; font-style: italic; }
.report-section { margin-bottom: 2rem; }
.report-section h2 { border-bottom: 1px solid #d9e2ec; padding-bottom: 0.3rem; }
.stat-grid { display: flex; flex-wrap: wrap; gap: 1rem; }
.stat-card { flex: 1 1 160px; border: 1px solid #d9e2ec; border-radius: 6px; padding: 1rem; text-align: center; }
.stat-value { font-size: 1.6rem; font-weight: bold; }
.stat-unit { color: #627d98; font-size: 0.85rem; }
.stat-label { margin-top: 0.4rem; }
.chart-data { width: 100%; border-collapse: collapse; }
.chart-data th, .chart-data td { border: 1px solid #d9e2ec; padding: 0.4rem 0.6rem; text-align: left; }
.chart-data th { background: #f0f4f8; }
.location-list li { margin-bottom: 0.3rem; }
.location-coords { color: #627d98; font-size: 0.85rem; }
.placeholder { color: #627d98; }
.report-footer { text-align: center; border-top: 1px solid #d9e2ec; padding-top: 1rem; font-size: 0.85rem; color: #627d98; }
`
