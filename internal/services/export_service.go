package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reliefapp/internal/config"
	"reliefapp/internal/exporter"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// ExportServiceInterface defines the interface for export orchestration
type ExportServiceInterface interface {
	Export(ctx context.Context, orgID, userID, reportID int, format models.ExportFormat) (*models.ExportResult, *models.ExportRecord, error)
	ExportShared(ctx context.Context, report *models.Report) (*models.ExportResult, error)
	ListExports(ctx context.Context, orgID, reportID, limit int) ([]models.ExportRecord, error)
	PruneExpiredRecords(ctx context.Context) (int64, error)
}

// ExportService orchestrates report exports: it records every attempt,
// bounds renderer concurrency, and leaves each record in a terminal state.
type ExportService struct {
	db          *sql.DB
	config      *config.Config
	logger      *observability.Logger
	reports     ReportServiceInterface
	audit       AuditServiceInterface
	renderSlots chan struct{}
}

// NewExportService creates a new ExportService instance
func NewExportService(db *sql.DB, cfg *config.Config, logger *observability.Logger, reports ReportServiceInterface, audit AuditServiceInterface) *ExportService {
	if db == nil {
		panic("ExportService requires a valid database connection")
	}
	if reports == nil {
		panic("ExportService requires a report service")
	}
	return &ExportService{
		db:          db,
		config:      cfg,
		logger:      logger,
		reports:     reports,
		audit:       audit,
		renderSlots: make(chan struct{}, cfg.ExportMaxConcurrent()),
	}
}

// Export renders the report in the requested format. Every call creates an
// export record that ends COMPLETED or FAILED; PROCESSING is never a resting
// state.
func (s *ExportService) Export(ctx context.Context, orgID, userID, reportID int, format models.ExportFormat) (result0 *models.ExportResult, result1 *models.ExportRecord, err error) {
	ctx, span := observability.TraceExportFunction(ctx, "Export",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeUserID(userID),
		observability.AttributeReportID(reportID),
		observability.AttributeExportFormat(format),
	)
	defer observability.FinishSpan(span, &err)

	renderer, err := exporter.ForFormat(format)
	if err != nil {
		return nil, nil, err
	}

	// The report is resolved before anything is recorded: a report the caller
	// cannot see must not gain a record in its export history, and a missing
	// report surfaces as not-found rather than a foreign-key failure.
	export, err := s.buildExport(ctx, orgID, reportID)
	if err != nil {
		return nil, nil, err
	}

	// The record is created before any rendering work so failed attempts are
	// visible in the history too.
	record, err := s.createRecord(ctx, reportID, userID, format)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if finalizeErr := s.finalizeRecord(record, err); finalizeErr != nil {
			s.logger.Error(ctx, "Failed to finalize export record", finalizeErr, map[string]interface{}{
				"export_record_id": record.ID,
			})
		}
	}()

	select {
	case s.renderSlots <- struct{}{}:
		defer func() { <-s.renderSlots }()
	case <-ctx.Done():
		return nil, record, contextutils.WrapErrorf(ctx.Err(), "export queue wait canceled")
	}

	renderCtx, cancel := context.WithTimeout(ctx, config.ExportTimeout)
	defer cancel()
	data, err := renderer.Render(renderCtx, export)
	if err != nil {
		return nil, record, contextutils.WrapErrorf(err, "failed to render %s export", format)
	}

	if s.audit != nil {
		auditErr := s.audit.Record(ctx, &models.AuditLogEntry{
			UserID:   userID,
			Action:   "EXPORT_REPORT",
			Entity:   "report",
			EntityID: reportID,
			Metadata: map[string]interface{}{"format": string(format)},
		})
		if auditErr != nil {
			s.logger.Warn(ctx, "Failed to record export audit entry", map[string]interface{}{
				"report_id": reportID,
				"error":     auditErr.Error(),
			})
		}
	}
	s.logger.Info(ctx, "Report exported", map[string]interface{}{
		"report_id": reportID,
		"format":    string(format),
		"bytes":     len(data),
	})

	return &models.ExportResult{
		Data:        data,
		ContentType: renderer.ContentType(),
		Filename:    exportFilename(export.Report, renderer.FileExtension()),
	}, record, nil
}

// ExportShared renders the public HTML view of an already-resolved shared
// report. Anonymous views are not part of the export history, so no record
// is created and no audit entry is written.
func (s *ExportService) ExportShared(ctx context.Context, report *models.Report) (result0 *models.ExportResult, err error) {
	ctx, span := observability.TraceExportFunction(ctx, "ExportShared",
		observability.AttributeReportID(report.ID),
	)
	defer observability.FinishSpan(span, &err)

	renderer, err := exporter.ForFormat(models.ExportFormatHTML)
	if err != nil {
		return nil, err
	}

	export, err := s.buildExport(ctx, report.OrganizationID, report.ID)
	if err != nil {
		return nil, err
	}

	select {
	case s.renderSlots <- struct{}{}:
		defer func() { <-s.renderSlots }()
	case <-ctx.Done():
		return nil, contextutils.WrapErrorf(ctx.Err(), "export queue wait canceled")
	}

	renderCtx, cancel := context.WithTimeout(ctx, config.ExportTimeout)
	defer cancel()
	data, err := renderer.Render(renderCtx, export)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to render shared HTML view")
	}

	return &models.ExportResult{
		Data:        data,
		ContentType: renderer.ContentType(),
		Filename:    exportFilename(export.Report, renderer.FileExtension()),
	}, nil
}

// exportFilename builds "slug.ext"
func exportFilename(report *models.Report, extension string) string {
	return fmt.Sprintf("%s.%s", report.Slug, extension)
}

// buildExport assembles the renderer input bundle: report, sections, display
// names, and field assessments
func (s *ExportService) buildExport(ctx context.Context, orgID, reportID int) (result0 *models.ReportExport, err error) {
	report, err := s.reports.GetReport(ctx, orgID, reportID)
	if err != nil {
		return nil, err
	}

	var orgName string
	if err := s.db.QueryRowContext(ctx,
		"SELECT name FROM organizations WHERE id = $1", orgID).Scan(&orgName); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to load organization")
	}

	var authorName string
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(NULLIF(display_name, ''), username) FROM users WHERE id = $1",
		report.AuthorID).Scan(&authorName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(err, "failed to load author")
	}

	assessments, err := s.loadAssessments(ctx, reportID)
	if err != nil {
		return nil, err
	}

	return &models.ReportExport{
		Report:           report,
		Sections:         report.Sections,
		OrganizationName: orgName,
		AuthorName:       authorName,
		Assessments:      assessments,
		GeneratedAt:      time.Now(),
		BrandTitle:       s.config.ExportBrandTitle(),
	}, nil
}

func (s *ExportService) loadAssessments(ctx context.Context, reportID int) (result0 []models.Assessment, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, location, type, affected_people, households, start_date, end_date, created_at
		FROM assessments
		WHERE report_id = $1
		ORDER BY created_at ASC, id ASC`, reportID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to load assessments")
	}
	defer func() { _ = rows.Close() }()

	var assessments []models.Assessment
	for rows.Next() {
		var a models.Assessment
		if err := rows.Scan(&a.ID, &a.ReportID, &a.Location, &a.Type, &a.AffectedPeople,
			&a.Households, &a.StartDate, &a.EndDate, &a.CreatedAt); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan assessment")
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func (s *ExportService) createRecord(ctx context.Context, reportID, userID int, format models.ExportFormat) (result0 *models.ExportRecord, err error) {
	record := &models.ExportRecord{
		ReportID:    reportID,
		RequestedBy: userID,
		Format:      format,
		Status:      models.ExportStatusProcessing,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO export_records (report_id, requested_by, format, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		reportID, userID, format, record.Status,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to create export record")
	}
	return record, nil
}

// finalizeRecord moves the record to its terminal state. It runs off the
// request context so a canceled export still gets recorded as FAILED.
func (s *ExportService) finalizeRecord(record *models.ExportRecord, exportErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultHTTPTimeout)
	defer cancel()

	now := time.Now()
	if exportErr != nil {
		record.Status = models.ExportStatusFailed
		record.ErrorMessage = sql.NullString{String: exportErr.Error(), Valid: true}
	} else {
		record.Status = models.ExportStatusCompleted
		record.CompletedAt = sql.NullTime{Time: now, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE export_records
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4`,
		record.Status, record.ErrorMessage, record.CompletedAt, record.ID)
	return err
}

// ListExports returns the report's most recent export records
func (s *ExportService) ListExports(ctx context.Context, orgID, reportID, limit int) (result0 []models.ExportRecord, err error) {
	ctx, span := observability.TraceExportFunction(ctx, "ListExports",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	if limit < 1 || limit > 100 {
		limit = 20
	}

	// org scoping rides on the join; records of foreign reports are invisible
	rows, err := s.db.QueryContext(ctx, `
		SELECT er.id, er.report_id, er.requested_by, er.format, er.status, er.error_message, er.completed_at, er.created_at
		FROM export_records er
		JOIN reports r ON r.id = er.report_id
		WHERE er.report_id = $1 AND r.organization_id = $2
		ORDER BY er.created_at DESC
		LIMIT $3`, reportID, orgID, limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to list export records")
	}
	defer func() { _ = rows.Close() }()

	var records []models.ExportRecord
	for rows.Next() {
		var record models.ExportRecord
		if err := rows.Scan(&record.ID, &record.ReportID, &record.RequestedBy, &record.Format,
			&record.Status, &record.ErrorMessage, &record.CompletedAt, &record.CreatedAt); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan export record")
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// PruneExpiredRecords deletes export records older than the retention window
func (s *ExportService) PruneExpiredRecords(ctx context.Context) (result0 int64, err error) {
	ctx, span := observability.TraceExportFunction(ctx, "PruneExpiredRecords")
	defer observability.FinishSpan(span, &err)

	cutoff := time.Now().Add(-s.config.ExportRecordRetention())
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM export_records WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, contextutils.WrapErrorf(err, "failed to prune export records")
	}
	return result.RowsAffected()
}
