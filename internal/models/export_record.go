package models

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// ExportFormat represents the output format of an export
type ExportFormat string

// Export formats supported by the system
const (
	// ExportFormatExcel produces a spreadsheet workbook
	ExportFormatExcel ExportFormat = "EXCEL"
	// ExportFormatWord produces a flow document
	ExportFormatWord ExportFormat = "WORD"
	// ExportFormatHTML produces a self-contained HTML document
	ExportFormatHTML ExportFormat = "HTML"
	// ExportFormatPDF produces a linear PDF document
	ExportFormatPDF ExportFormat = "PDF"
)

// ParseExportFormat maps a request path value to an export format.
// Matching is case-insensitive; unknown values return false.
func ParseExportFormat(value string) (result0 ExportFormat, result1 bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "EXCEL", "XLSX":
		return ExportFormatExcel, true
	case "WORD", "DOCX":
		return ExportFormatWord, true
	case "HTML":
		return ExportFormatHTML, true
	case "PDF":
		return ExportFormatPDF, true
	default:
		return "", false
	}
}

// ExportStatus represents the lifecycle status of an export record
type ExportStatus string

const (
	// ExportStatusProcessing is the initial state while rendering runs
	ExportStatusProcessing ExportStatus = "PROCESSING"
	// ExportStatusCompleted is the terminal success state
	ExportStatusCompleted ExportStatus = "COMPLETED"
	// ExportStatusFailed is the terminal failure state
	ExportStatusFailed ExportStatus = "FAILED"
)

// IsTerminal reports whether the status is a final state
func (s ExportStatus) IsTerminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed
}

// ExportRecord is the audit row tracking one export attempt
type ExportRecord struct {
	ID           int            `json:"id" db:"id"`
	ReportID     int            `json:"report_id" db:"report_id"`
	RequestedBy  int            `json:"requested_by" db:"requested_by"`
	Format       ExportFormat   `json:"format" db:"format"`
	Status       ExportStatus   `json:"status" db:"status"`
	ErrorMessage sql.NullString `json:"error_message" db:"error_message"`
	CompletedAt  sql.NullTime   `json:"completed_at" db:"completed_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// MarshalJSON customizes JSON marshaling for ExportRecord to handle sql.NullString and sql.NullTime properly
func (r ExportRecord) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int          `json:"id"`
		ReportID     int          `json:"report_id"`
		RequestedBy  int          `json:"requested_by"`
		Format       ExportFormat `json:"format"`
		Status       ExportStatus `json:"status"`
		ErrorMessage *string      `json:"error_message"`
		CompletedAt  *time.Time   `json:"completed_at"`
		CreatedAt    time.Time    `json:"created_at"`
	}{
		ID:           r.ID,
		ReportID:     r.ReportID,
		RequestedBy:  r.RequestedBy,
		Format:       r.Format,
		Status:       r.Status,
		ErrorMessage: nullStringToPointer(r.ErrorMessage),
		CompletedAt:  nullTimeToPointer(r.CompletedAt),
		CreatedAt:    r.CreatedAt,
	})
}

// ExportResult is the in-memory artifact handed back to the caller
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}
