// Package exporter renders a report's visible sections into the supported
// artifact formats. Renderers are pure: they read a prepared
// models.ReportExport and never touch storage.
package exporter

import (
	"context"
	"fmt"
	"strconv"

	"reliefapp/internal/models"
	contextutils "reliefapp/internal/utils"
)

// MIME types for the supported artifact formats
const (
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeWord  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeHTML  = "text/html; charset=utf-8"
	ContentTypePDF   = "application/pdf"
)

// Exporter renders one report export bundle into a single artifact
type Exporter interface {
	// Render produces the complete artifact. Rendering is all-or-nothing;
	// a failure on any section aborts the whole artifact.
	Render(ctx context.Context, export *models.ReportExport) ([]byte, error)
	// ContentType returns the MIME type of the artifact
	ContentType() string
	// FileExtension returns the filename extension without the dot
	FileExtension() string
}

// ForFormat returns the exporter for the given format
func ForFormat(format models.ExportFormat) (result0 Exporter, err error) {
	switch format {
	case models.ExportFormatExcel:
		return NewExcelExporter(), nil
	case models.ExportFormatWord:
		return NewWordExporter(), nil
	case models.ExportFormatHTML:
		return NewHTMLExporter(), nil
	case models.ExportFormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrUnsupportedFormat, "no exporter for format %q", format)
	}
}

// asFloat attempts to read a chart/statistic value as a number
func asFloat(value interface{}) (result0 float64, result1 bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asString renders a chart record value as text
func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// chartRow is one extracted (label, value) pair from a chart data record
type chartRow struct {
	Label string
	Value interface{}
}

// extractChartRows pulls (xAxisKey, dataKey) pairs out of the heterogeneous
// data records, preserving record order
func extractChartRows(content models.ChartContent) []chartRow {
	rows := make([]chartRow, 0, len(content.Data))
	for _, record := range content.Data {
		rows = append(rows, chartRow{
			Label: asString(record[content.XAxisKey]),
			Value: record[content.DataKey],
		})
	}
	return rows
}

// statisticText joins a statistic's value and unit for single-cell display
func statisticText(stat models.Statistic) string {
	if stat.Unit != "" {
		return stat.Value + " " + stat.Unit
	}
	return stat.Value
}
