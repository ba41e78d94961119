package exporter

import (
	"bytes"
	"context"
	"fmt"

	"gitee.com/gooffice/gooffice/measurement"
	"gitee.com/gooffice/gooffice/spreadsheet"

	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// ExcelExporter renders a report as an .xlsx workbook. The Overview sheet
// carries the report metadata; each visible data-bearing section gets its own
// sheet named after its type and 1-based position among the visible sections.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

func (e *ExcelExporter) ContentType() string {
	return ContentTypeExcel
}

func (e *ExcelExporter) FileExtension() string {
	return "xlsx"
}

func (e *ExcelExporter) Render(ctx context.Context, export *models.ReportExport) (result0 []byte, err error) {
	_, span := observability.TraceExportFunction(ctx, "ExcelExporter.Render")
	defer observability.FinishSpan(span, &err)

	wb, err := e.buildWorkbook(export)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if err := wb.Validate(); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRenderFailed, contextutils.SeverityError, "workbook validation failed", err.Error(), err)
	}
	var buf bytes.Buffer
	if err := wb.Save(&buf); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRenderFailed, contextutils.SeverityError, "failed to serialize workbook", err.Error(), err)
	}
	return buf.Bytes(), nil
}

// workbookStyles groups the cell styles shared across sheets
type workbookStyles struct {
	title    spreadsheet.CellStyle
	header   spreadsheet.CellStyle
	label    spreadsheet.CellStyle
	thousand spreadsheet.CellStyle
	coord    spreadsheet.CellStyle
}

func newWorkbookStyles(wb *spreadsheet.Workbook) workbookStyles {
	titleFont := wb.StyleSheet.AddFont()
	titleFont.SetBold(true)
	titleFont.SetSize(16)
	titleStyle := wb.StyleSheet.AddCellStyle()
	titleStyle.SetFont(titleFont)

	headerFont := wb.StyleSheet.AddFont()
	headerFont.SetBold(true)
	headerFont.SetSize(12)
	headerStyle := wb.StyleSheet.AddCellStyle()
	headerStyle.SetFont(headerFont)

	labelFont := wb.StyleSheet.AddFont()
	labelFont.SetBold(true)
	labelStyle := wb.StyleSheet.AddCellStyle()
	labelStyle.SetFont(labelFont)

	thousandStyle := wb.StyleSheet.AddCellStyle()
	thousandStyle.SetNumberFormat("#,##0")

	coordStyle := wb.StyleSheet.AddCellStyle()
	coordStyle.SetNumberFormat("0.000000")

	return workbookStyles{
		title:    titleStyle,
		header:   headerStyle,
		label:    labelStyle,
		thousand: thousandStyle,
		coord:    coordStyle,
	}
}

func (e *ExcelExporter) buildWorkbook(export *models.ReportExport) (result0 *spreadsheet.Workbook, err error) {
	wb := spreadsheet.New()
	styles := newWorkbookStyles(wb)

	e.addOverviewSheet(wb, styles, export)

	// Sheet numbering counts every visible section, including ones that
	// produce no sheet, so positions stay stable across exports.
	for idx, section := range models.VisibleSections(export.Sections) {
		position := idx + 1
		switch content := section.Content.(type) {
		case models.StatisticsContent:
			if len(content.Statistics) > 0 {
				e.addStatisticsSheet(wb, styles, section, content, position)
			}
		case models.ChartContent:
			if len(content.Data) > 0 {
				e.addChartSheet(wb, styles, section, content, position)
			}
		case models.MapContent:
			if len(content.Locations) > 0 {
				e.addLocationsSheet(wb, styles, section, content, position)
			}
		case models.AssessmentDataContent:
			e.addAssessmentDataSheet(wb, styles, section, position)
		}
	}

	if len(export.Assessments) > 0 {
		e.addAssessmentsSheet(wb, styles, export)
	}
	return wb, nil
}

func (e *ExcelExporter) addOverviewSheet(wb *spreadsheet.Workbook, styles workbookStyles, export *models.ReportExport) {
	sheet := wb.AddSheet()
	sheet.SetName("Overview")
	for col := uint32(1); col <= 2; col++ {
		sheet.Column(col).SetWidth(2.2 * measurement.Inch)
	}

	titleRow := sheet.AddRow()
	titleCell := titleRow.AddCell()
	titleCell.SetString(export.Report.Title)
	titleCell.SetStyle(styles.title)
	sheet.AddMergedCells("A1", "F1")
	sheet.AddRow()

	addMetaRow := func(label, value string) {
		row := sheet.AddRow()
		labelCell := row.AddCell()
		labelCell.SetString(label)
		labelCell.SetStyle(styles.label)
		row.AddCell().SetString(value)
	}
	addMetaRow("Organization", export.OrganizationName)
	addMetaRow("Author", export.AuthorName)
	addMetaRow("Date", export.GeneratedAt.Format("January 2, 2006"))
	addMetaRow("Status", string(export.Report.Status))
	if export.Report.Description != "" {
		addMetaRow("Description", StripHTML(export.Report.Description))
	}
}

func (e *ExcelExporter) addStatisticsSheet(wb *spreadsheet.Workbook, styles workbookStyles, section models.Section, content models.StatisticsContent, position int) {
	sheet := wb.AddSheet()
	sheet.SetName(fmt.Sprintf("Statistics %d", position))
	sheet.Column(1).SetWidth(2.5 * measurement.Inch)
	sheet.Column(2).SetWidth(1.5 * measurement.Inch)
	sheet.Column(3).SetWidth(1.2 * measurement.Inch)

	e.addSheetTitle(sheet, styles, section.Title)
	header := sheet.AddRow()
	for _, name := range []string{"Metric", "Value", "Unit"} {
		cell := header.AddCell()
		cell.SetString(name)
		cell.SetStyle(styles.header)
	}
	for _, stat := range content.Statistics {
		row := sheet.AddRow()
		row.AddCell().SetString(stat.Label)
		valueCell := row.AddCell()
		if f, ok := asFloat(stat.Value); ok {
			valueCell.SetNumber(f)
			valueCell.SetStyle(styles.thousand)
		} else {
			valueCell.SetString(stat.Value)
		}
		row.AddCell().SetString(stat.Unit)
	}
}

func (e *ExcelExporter) addChartSheet(wb *spreadsheet.Workbook, styles workbookStyles, section models.Section, content models.ChartContent, position int) {
	sheet := wb.AddSheet()
	sheet.SetName(fmt.Sprintf("Chart %d", position))
	sheet.Column(1).SetWidth(2.5 * measurement.Inch)
	sheet.Column(2).SetWidth(1.5 * measurement.Inch)

	title := section.Title
	if content.Title != "" {
		title = content.Title
	}
	e.addSheetTitle(sheet, styles, title)

	header := sheet.AddRow()
	labelHeader := header.AddCell()
	labelHeader.SetString("Label")
	labelHeader.SetStyle(styles.header)
	valueHeader := header.AddCell()
	valueHeader.SetString("Value")
	valueHeader.SetStyle(styles.header)

	for _, record := range extractChartRows(content) {
		row := sheet.AddRow()
		row.AddCell().SetString(record.Label)
		valueCell := row.AddCell()
		if f, ok := asFloat(record.Value); ok {
			valueCell.SetNumber(f)
			valueCell.SetStyle(styles.thousand)
		} else {
			valueCell.SetString(asString(record.Value))
		}
	}
}

func (e *ExcelExporter) addLocationsSheet(wb *spreadsheet.Workbook, styles workbookStyles, section models.Section, content models.MapContent, position int) {
	sheet := wb.AddSheet()
	sheet.SetName(fmt.Sprintf("Locations %d", position))
	sheet.Column(1).SetWidth(2.0 * measurement.Inch)
	sheet.Column(2).SetWidth(1.2 * measurement.Inch)
	sheet.Column(5).SetWidth(1.5 * measurement.Inch)
	sheet.Column(6).SetWidth(3.0 * measurement.Inch)

	e.addSheetTitle(sheet, styles, section.Title)
	header := sheet.AddRow()
	for _, name := range []string{"Name", "Type", "Latitude", "Longitude", "Affected People", "Description"} {
		cell := header.AddCell()
		cell.SetString(name)
		cell.SetStyle(styles.header)
	}
	for _, loc := range content.Locations {
		row := sheet.AddRow()
		row.AddCell().SetString(loc.Name)
		row.AddCell().SetString(loc.Type)
		latCell := row.AddCell()
		latCell.SetNumber(loc.Latitude)
		latCell.SetStyle(styles.coord)
		lngCell := row.AddCell()
		lngCell.SetNumber(loc.Longitude)
		lngCell.SetStyle(styles.coord)
		affectedCell := row.AddCell()
		if loc.AffectedPeople != nil {
			affectedCell.SetNumber(float64(*loc.AffectedPeople))
			affectedCell.SetStyle(styles.thousand)
		} else {
			affectedCell.SetString("")
		}
		if loc.Description != nil {
			row.AddCell().SetString(*loc.Description)
		} else {
			row.AddCell().SetString("")
		}
	}
}

func (e *ExcelExporter) addAssessmentDataSheet(wb *spreadsheet.Workbook, styles workbookStyles, section models.Section, position int) {
	sheet := wb.AddSheet()
	sheet.SetName(fmt.Sprintf("Assessment Data %d", position))
	sheet.Column(1).SetWidth(3.0 * measurement.Inch)
	e.addSheetTitle(sheet, styles, section.Title)
	sheet.AddRow().AddCell().SetString("Assessment data integration coming soon")
}

func (e *ExcelExporter) addAssessmentsSheet(wb *spreadsheet.Workbook, styles workbookStyles, export *models.ReportExport) {
	sheet := wb.AddSheet()
	sheet.SetName("Assessments")
	sheet.Column(1).SetWidth(2.0 * measurement.Inch)
	sheet.Column(2).SetWidth(1.5 * measurement.Inch)

	e.addSheetTitle(sheet, styles, "Assessments")
	header := sheet.AddRow()
	for _, name := range []string{"Location", "Type", "Affected People", "Households", "Start Date", "End Date"} {
		cell := header.AddCell()
		cell.SetString(name)
		cell.SetStyle(styles.header)
	}
	for _, a := range export.Assessments {
		row := sheet.AddRow()
		row.AddCell().SetString(a.Location)
		row.AddCell().SetString(a.Type)
		affectedCell := row.AddCell()
		affectedCell.SetNumber(float64(a.AffectedPeople))
		affectedCell.SetStyle(styles.thousand)
		householdsCell := row.AddCell()
		householdsCell.SetNumber(float64(a.Households))
		householdsCell.SetStyle(styles.thousand)
		if a.StartDate.Valid {
			row.AddCell().SetString(a.StartDate.Time.Format("2006-01-02"))
		} else {
			row.AddCell().SetString("")
		}
		if a.EndDate.Valid {
			row.AddCell().SetString(a.EndDate.Time.Format("2006-01-02"))
		} else {
			row.AddCell().SetString("")
		}
	}
}

func (e *ExcelExporter) addSheetTitle(sheet spreadsheet.Sheet, styles workbookStyles, title string) {
	row := sheet.AddRow()
	cell := row.AddCell()
	cell.SetString(title)
	cell.SetStyle(styles.header)
	sheet.AddRow()
}
