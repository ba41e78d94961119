package exporter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefapp/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

// testExport builds a report with one section of every data-bearing type plus
// a hidden section that must never appear in any artifact.
func testExport() *models.ReportExport {
	return &models.ReportExport{
		Report: &models.Report{
			ID:          1,
			Title:       "Flood Response Update",
			Description: "<p>Situation overview for the northern region.</p>",
			Status:      models.ReportStatusPublished,
		},
		Sections: []models.Section{
			{
				ID:        10,
				Type:      models.SectionStatistics,
				Title:     "Key Figures",
				Order:     0,
				IsVisible: true,
				Content: models.StatisticsContent{
					Statistics: []models.Statistic{
						{Label: "Beneficiaries", Value: "1200", Unit: "people"},
						{Label: "Coverage", Value: "68%"},
					},
				},
			},
			{
				ID:        11,
				Type:      models.SectionText,
				Title:     "Hidden Notes",
				Order:     1,
				IsVisible: false,
				Content:   models.TextContent{Text: "<p>Internal only</p>"},
			},
			{
				ID:        12,
				Type:      models.SectionChart,
				Title:     "Monthly Distributions",
				Order:     2,
				IsVisible: true,
				Content: models.ChartContent{
					Title:    "Distributions by Month",
					XAxisKey: "month",
					DataKey:  "count",
					Data: []map[string]interface{}{
						{"month": "Jan", "count": float64(5)},
						{"month": "Feb", "count": float64(9)},
					},
				},
			},
			{
				ID:        13,
				Type:      models.SectionMap,
				Title:     "Affected Areas",
				Order:     3,
				IsVisible: true,
				Content: models.MapContent{
					Locations: []models.Location{
						{
							Name:           "Northville",
							Type:           "camp",
							Latitude:       12.345678,
							Longitude:      -4.567891,
							AffectedPeople: intPtr(3400),
							Description:    strPtr("Primary distribution point"),
						},
						{Name: "Riverside", Latitude: 12.5, Longitude: -4.2},
					},
				},
			},
			{
				ID:        14,
				Type:      models.SectionImageGallery,
				Title:     "Field Photos",
				Order:     4,
				IsVisible: true,
				Content: models.ImageGalleryContent{
					Images: []models.ImageRef{{URL: "https://example.org/a.jpg"}},
				},
			},
			{
				ID:        15,
				Type:      models.SectionRecommendations,
				Title:     "Next Steps",
				Order:     5,
				IsVisible: true,
				Content:   models.RecommendationsContent{Text: "<p>Scale up water trucking &amp; sanitation.</p>"},
			},
		},
		OrganizationName: "Relief Works",
		AuthorName:       "Amina Diallo",
		GeneratedAt:      time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		BrandTitle:       "Relief Reporting",
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tags and entities",
			input:    "<p>Hello &amp; <b>world</b></p>",
			expected: "Hello & world",
		},
		{
			name:     "nbsp and quotes",
			input:    "a&nbsp;&quot;b&quot;&#39;c&#39;",
			expected: `a "b"'c'`,
		},
		{
			name:     "angle bracket entities survive as text",
			input:    "&lt;script&gt;",
			expected: "<script>",
		},
		{
			name:     "paragraphs become lines",
			input:    "<p>first</p><p>second</p>",
			expected: "first\nsecond",
		},
		{
			name:     "br becomes line break",
			input:    "line one<br/>line two",
			expected: "line one\nline two",
		},
		{
			name:     "plain text untouched",
			input:    "no markup here",
			expected: "no markup here",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripHTML(tt.input))
		})
	}
}

func TestForFormat(t *testing.T) {
	for _, format := range []models.ExportFormat{
		models.ExportFormatExcel,
		models.ExportFormatWord,
		models.ExportFormatHTML,
		models.ExportFormatPDF,
	} {
		exp, err := ForFormat(format)
		require.NoError(t, err)
		require.NotNil(t, exp)
		assert.NotEmpty(t, exp.ContentType())
		assert.NotEmpty(t, exp.FileExtension())
	}

	_, err := ForFormat(models.ExportFormat("CSV"))
	require.Error(t, err)
}

func TestExcelExporter_SheetLayout(t *testing.T) {
	export := testExport()
	wb, err := NewExcelExporter().buildWorkbook(export)
	require.NoError(t, err)
	defer wb.Close()

	names := make([]string, 0)
	for _, sheet := range wb.Sheets() {
		names = append(names, sheet.Name())
	}
	// Sheet numbers follow the 1-based position among visible sections; the
	// hidden section is not counted, and sections without tabular data
	// produce no sheet.
	assert.Equal(t, []string{"Overview", "Statistics 1", "Chart 2", "Locations 3"}, names)

	overview := wb.Sheets()[0]
	assert.Equal(t, "Flood Response Update", overview.Cell("A1").GetString())
	assert.Equal(t, "Organization", overview.Cell("A3").GetString())
	assert.Equal(t, "Relief Works", overview.Cell("B3").GetString())

	stats := wb.Sheets()[1]
	assert.Equal(t, "Key Figures", stats.Cell("A1").GetString())
	assert.Equal(t, "Metric", stats.Cell("A3").GetString())
	assert.Equal(t, "Beneficiaries", stats.Cell("A4").GetString())
	value, err := stats.Cell("B4").GetValueAsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 1200, value, 0.001)
	assert.Equal(t, "people", stats.Cell("C4").GetString())
	// non-numeric value stays a string
	assert.Equal(t, "68%", stats.Cell("B5").GetString())

	chart := wb.Sheets()[2]
	assert.Equal(t, "Label", chart.Cell("A3").GetString())
	assert.Equal(t, "Value", chart.Cell("B3").GetString())
	assert.Equal(t, "Jan", chart.Cell("A4").GetString())
	jan, err := chart.Cell("B4").GetValueAsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 5, jan, 0.001)
	assert.Equal(t, "Feb", chart.Cell("A5").GetString())
	feb, err := chart.Cell("B5").GetValueAsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 9, feb, 0.001)

	locations := wb.Sheets()[3]
	assert.Equal(t, "Northville", locations.Cell("A4").GetString())
	assert.Equal(t, "camp", locations.Cell("B4").GetString())
	lat, err := locations.Cell("C4").GetValueAsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 12.345678, lat, 0.0000001)
}

func TestExcelExporter_Render(t *testing.T) {
	data, err := NewExcelExporter().Render(context.Background(), testExport())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// xlsx artifacts are zip archives
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestWordExporter_Render(t *testing.T) {
	export := testExport()
	doc, err := NewWordExporter().buildDocument(export)
	require.NoError(t, err)
	defer doc.Close()

	var text strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			text.WriteString(run.Text())
		}
		text.WriteString("\n")
	}
	body := text.String()

	assert.Contains(t, body, "Flood Response Update")
	assert.Contains(t, body, "Relief Works")
	assert.Contains(t, body, "Key Figures")
	assert.Contains(t, body, "Next Steps")
	assert.Contains(t, body, "Scale up water trucking & sanitation.")
	assert.Contains(t, body, "Chart: Distributions by Month")
	assert.Contains(t, body, "• Northville (camp) - 3400 affected - Primary distribution point")
	assert.Contains(t, body, "• Riverside")
	assert.Contains(t, body, "[image_gallery section]")
	assert.Contains(t, body, "Generated by Relief Reporting")
	assert.NotContains(t, body, "Hidden Notes")
	assert.NotContains(t, body, "Internal only")

	data, err := NewWordExporter().Render(context.Background(), export)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestHTMLExporter_Render(t *testing.T) {
	data, err := NewHTMLExporter().Render(context.Background(), testExport())
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, "<h1>Flood Response Update</h1>")
	assert.Contains(t, page, "Relief Works")
	// rich text passes through verbatim, markup intact
	assert.Contains(t, page, "<p>Scale up water trucking &amp; sanitation.</p>")
	assert.Contains(t, page, `<div class="stat-value">1200</div>`)
	assert.Contains(t, page, "<thead><tr><th>Label</th><th>Value</th></tr></thead>")
	assert.Contains(t, page, "<td>Jan</td><td>5</td>")
	// locations carry their coordinates on a second line
	assert.Contains(t, page, "<li>Northville (camp) - 3400 affected - Primary distribution point<br>")
	assert.Contains(t, page, `<span class="location-coords">12.345678, -4.567891</span>`)
	assert.Contains(t, page, `<span class="location-coords">12.500000, -4.200000</span>`)
	assert.Contains(t, page, "<em>Images are not included in this export</em>")
	assert.NotContains(t, page, "Hidden Notes")
	assert.NotContains(t, page, "Internal only")
}

func TestHTMLExporter_AssessmentDataPlaceholder(t *testing.T) {
	export := testExport()
	export.Sections = []models.Section{
		{
			ID:        20,
			Type:      models.SectionAssessmentData,
			Title:     "Field Assessments",
			Order:     0,
			IsVisible: true,
			Content:   models.AssessmentDataContent{},
		},
	}
	data, err := NewHTMLExporter().Render(context.Background(), export)
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, "<h2>Field Assessments</h2>")
	assert.Contains(t, page, "<em>Assessment data integration coming soon</em>")
	assert.NotContains(t, page, "[assessment_data section]")
}

func TestHTMLExporter_EscapesUntrustedFields(t *testing.T) {
	export := testExport()
	export.Report.Title = `Flood <script>alert("x")</script>`
	data, err := NewHTMLExporter().Render(context.Background(), export)
	require.NoError(t, err)
	page := string(data)
	assert.NotContains(t, page, "<script>alert")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestPDFExporter_Render(t *testing.T) {
	data, err := NewPDFExporter().Render(context.Background(), testExport())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

// Every renderer shows the same visible sections under the same titles.
func TestRenderers_TitleEquivalence(t *testing.T) {
	export := testExport()
	visibleTitles := []string{"Key Figures", "Monthly Distributions", "Affected Areas", "Field Photos", "Next Steps"}

	wb, err := NewExcelExporter().buildWorkbook(export)
	require.NoError(t, err)
	defer wb.Close()
	sheetTitles := make(map[string]bool)
	for _, sheet := range wb.Sheets() {
		sheetTitles[sheet.Cell("A1").GetString()] = true
	}
	// only data-bearing sections surface as sheets
	assert.True(t, sheetTitles["Key Figures"])
	assert.True(t, sheetTitles["Affected Areas"])

	htmlData, err := NewHTMLExporter().Render(context.Background(), export)
	require.NoError(t, err)
	for _, title := range visibleTitles {
		assert.Contains(t, string(htmlData), "<h2>"+title+"</h2>")
	}

	doc, err := NewWordExporter().buildDocument(export)
	require.NoError(t, err)
	defer doc.Close()
	var docText strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			docText.WriteString(run.Text())
		}
	}
	for _, title := range visibleTitles {
		assert.Contains(t, docText.String(), title)
	}
}

func TestFormatLocationLine_OmitsMissingClauses(t *testing.T) {
	line := formatLocationLine(models.Location{Name: "Riverside"})
	assert.Equal(t, "• Riverside", line)

	line = formatLocationLine(models.Location{Name: "Northville", Type: "camp"})
	assert.Equal(t, "• Northville (camp)", line)
}
