// Package services provides business logic services for the relief reporting application.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"reliefapp/internal/config"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// ReportServiceInterface defines the interface for report and section operations
type ReportServiceInterface interface {
	CreateReport(ctx context.Context, orgID, authorID int, title, description string) (*models.Report, error)
	GetReport(ctx context.Context, orgID, reportID int) (*models.Report, error)
	GetReportBySlug(ctx context.Context, orgID int, slug string) (*models.Report, error)
	ListReports(ctx context.Context, orgID, page, pageSize int, search string) ([]models.Report, int, error)
	UpdateReport(ctx context.Context, orgID, reportID int, title, description *string, status *models.ReportStatus) (*models.Report, error)
	DeleteReport(ctx context.Context, orgID, reportID int) error
	GetSections(ctx context.Context, reportID int) ([]models.Section, error)
	SaveSection(ctx context.Context, orgID, reportID int, section *models.Section) (*models.Section, error)
	DeleteSection(ctx context.Context, orgID, reportID, sectionID int) error
	ReorderSections(ctx context.Context, orgID, reportID int, orderedIDs []int) error
	SetSectionVisibility(ctx context.Context, orgID, reportID, sectionID int, visible bool) error
}

// ReportService handles report composition: reports and their ordered sections
type ReportService struct {
	db     *sql.DB
	config *config.Config
	logger *observability.Logger
}

// NewReportService creates a new ReportService instance
func NewReportService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ReportService {
	if db == nil {
		panic("ReportService requires a valid database connection")
	}
	return &ReportService{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe slug from a report title
func slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "report"
	}
	if len(slug) > 200 {
		slug = strings.Trim(slug[:200], "-")
	}
	return slug
}

// uniqueSlug appends a numeric suffix until the slug is free within the organization
func (s *ReportService) uniqueSlug(ctx context.Context, orgID int, base string) (result0 string, err error) {
	slug := base
	for attempt := 2; ; attempt++ {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM reports WHERE organization_id = $1 AND slug = $2)",
			orgID, slug).Scan(&exists)
		if err != nil {
			return "", contextutils.WrapErrorf(err, "failed to check slug uniqueness")
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, attempt)
	}
}

// CreateReport creates a new draft report. The slug is derived from the title
// once, here; later title changes leave it untouched.
func (s *ReportService) CreateReport(ctx context.Context, orgID, authorID int, title, description string) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "CreateReport",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeUserID(authorID),
	)
	defer observability.FinishSpan(span, &err)

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, contextutils.ErrMissingRequired
	}

	slug, err := s.uniqueSlug(ctx, orgID, slugify(title))
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		OrganizationID: orgID,
		AuthorID:       authorID,
		Slug:           slug,
		Title:          title,
		Description:    description,
		Status:         models.ReportStatusDraft,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reports (organization_id, author_id, slug, title, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		orgID, authorID, slug, title, description, report.Status,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to create report")
	}

	s.logger.Info(ctx, "Report created", map[string]interface{}{
		"report_id":       report.ID,
		"organization_id": orgID,
		"slug":            slug,
	})
	return report, nil
}

const reportColumns = `id, organization_id, author_id, slug, title, description, status, is_public, share_token, created_at, updated_at`

func scanReport(scanner interface{ Scan(...interface{}) error }) (*models.Report, error) {
	var report models.Report
	var description sql.NullString
	err := scanner.Scan(
		&report.ID, &report.OrganizationID, &report.AuthorID, &report.Slug,
		&report.Title, &description, &report.Status, &report.IsPublic,
		&report.ShareToken, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	report.Description = description.String
	return &report, nil
}

// GetReport returns a report with its sections. Reports outside the caller's
// organization surface as not found.
func (s *ReportService) GetReport(ctx context.Context, orgID, reportID int) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "GetReport",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = $1 AND organization_id = $2",
		reportID, orgID)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrReportNotFound
		}
		return nil, contextutils.WrapErrorf(err, "failed to get report")
	}

	report.Sections, err = s.GetSections(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetReportBySlug returns a report by its organization-scoped slug
func (s *ReportService) GetReportBySlug(ctx context.Context, orgID int, slug string) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "GetReportBySlug",
		observability.AttributeOrganizationID(orgID),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE organization_id = $1 AND slug = $2",
		orgID, slug)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrReportNotFound
		}
		return nil, contextutils.WrapErrorf(err, "failed to get report by slug")
	}

	report.Sections, err = s.GetSections(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns a page of the organization's reports, newest first,
// with sections omitted
func (s *ReportService) ListReports(ctx context.Context, orgID, page, pageSize int, search string) (result0 []models.Report, result1 int, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "ListReports",
		observability.AttributeOrganizationID(orgID),
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
	)
	defer observability.FinishSpan(span, &err)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	where := "WHERE organization_id = $1"
	args := []interface{}{orgID}
	if search != "" {
		where += " AND (title ILIKE $2 OR description ILIKE $2)"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports "+where, args...).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapErrorf(err, "failed to count reports")
	}

	query := fmt.Sprintf("SELECT %s FROM reports %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d",
		reportColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, contextutils.WrapErrorf(err, "failed to list reports")
	}
	defer func() { _ = rows.Close() }()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, contextutils.WrapErrorf(err, "failed to scan report")
		}
		reports = append(reports, *report)
	}
	return reports, total, rows.Err()
}

// UpdateReport applies the provided fields. The slug never changes after creation.
func (s *ReportService) UpdateReport(ctx context.Context, orgID, reportID int, title, description *string, status *models.ReportStatus) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "UpdateReport",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{reportID, orgID}
	next := 3
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return nil, contextutils.ErrMissingRequired
		}
		sets = append(sets, fmt.Sprintf("title = $%d", next))
		args = append(args, trimmed)
		next++
	}
	if description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", next))
		args = append(args, *description)
		next++
	}
	if status != nil {
		if !isValidReportStatus(*status) {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report status %q", *status)
		}
		sets = append(sets, fmt.Sprintf("status = $%d", next))
		args = append(args, *status)
		next++
	}

	query := fmt.Sprintf("UPDATE reports SET %s WHERE id = $1 AND organization_id = $2", strings.Join(sets, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to update report")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to check update result")
	}
	if affected == 0 {
		return nil, contextutils.ErrReportNotFound
	}
	return s.GetReport(ctx, orgID, reportID)
}

func isValidReportStatus(status models.ReportStatus) bool {
	switch status {
	case models.ReportStatusDraft, models.ReportStatusInReview, models.ReportStatusApproved,
		models.ReportStatusPublished, models.ReportStatusArchived:
		return true
	}
	return false
}

// DeleteReport removes a report and, via cascade, its sections, export
// records, and assessments
func (s *ReportService) DeleteReport(ctx context.Context, orgID, reportID int) (err error) {
	ctx, span := observability.TraceReportFunction(ctx, "DeleteReport",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM reports WHERE id = $1 AND organization_id = $2", reportID, orgID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to delete report")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check delete result")
	}
	if affected == 0 {
		return contextutils.ErrReportNotFound
	}

	s.logger.Info(ctx, "Report deleted", map[string]interface{}{
		"report_id":       reportID,
		"organization_id": orgID,
	})
	return nil
}

// GetSections returns the report's sections in stored order
func (s *ReportService) GetSections(ctx context.Context, reportID int) (result0 []models.Section, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "GetSections",
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, type, title, content, section_order, is_visible
		FROM sections
		WHERE report_id = $1
		ORDER BY section_order ASC, id ASC`, reportID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get sections")
	}
	defer func() { _ = rows.Close() }()

	var sections []models.Section
	for rows.Next() {
		var section models.Section
		var content string
		if err := rows.Scan(&section.ID, &section.ReportID, &section.Type, &section.Title,
			&content, &section.Order, &section.IsVisible); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan section")
		}
		if err := section.UnmarshalContentFromJSON(content); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to decode section %d content", section.ID)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// reportExists verifies the report belongs to the organization
func (s *ReportService) reportExists(ctx context.Context, orgID, reportID int) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reports WHERE id = $1 AND organization_id = $2)",
		reportID, orgID).Scan(&exists)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check report")
	}
	if !exists {
		return contextutils.ErrReportNotFound
	}
	return nil
}

// SaveSection inserts or fully replaces one section. Concurrent saves of the
// same section resolve last-writer-wins: the whole row is overwritten, no
// field-level merging.
func (s *ReportService) SaveSection(ctx context.Context, orgID, reportID int, section *models.Section) (result0 *models.Section, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "SaveSection",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
		observability.AttributeSectionID(section.ID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return nil, err
	}
	if section.Content == nil {
		content, err := models.ParseSectionContent(section.Type, nil)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown section type %q", section.Type)
		}
		section.Content = content
	}
	if section.Content.SectionType() != section.Type {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput,
			"content payload is %q but section type is %q", section.Content.SectionType(), section.Type)
	}
	content, err := section.MarshalContentToJSON()
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to encode section content")
	}

	section.ReportID = reportID
	if section.ID == 0 {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO sections (report_id, type, title, content, section_order, is_visible)
			VALUES ($1, $2, $3, $4,
				COALESCE((SELECT MAX(section_order) + 1 FROM sections WHERE report_id = $1), 0), $5)
			RETURNING id, section_order`,
			reportID, section.Type, section.Title, content, section.IsVisible,
		).Scan(&section.ID, &section.Order)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to insert section")
		}
	} else {
		result, err := s.db.ExecContext(ctx, `
			UPDATE sections
			SET type = $3, title = $4, content = $5, is_visible = $6, updated_at = NOW()
			WHERE id = $1 AND report_id = $2`,
			section.ID, reportID, section.Type, section.Title, content, section.IsVisible)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to update section")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to check section update")
		}
		if affected == 0 {
			return nil, contextutils.ErrSectionNotFound
		}
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE reports SET updated_at = NOW() WHERE id = $1", reportID); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to touch report")
	}
	return section, nil
}

// DeleteSection removes one section
func (s *ReportService) DeleteSection(ctx context.Context, orgID, reportID, sectionID int) (err error) {
	ctx, span := observability.TraceReportFunction(ctx, "DeleteSection",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
		observability.AttributeSectionID(sectionID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sections WHERE id = $1 AND report_id = $2", sectionID, reportID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to delete section")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check section delete")
	}
	if affected == 0 {
		return contextutils.ErrSectionNotFound
	}
	return nil
}

// ReorderSections rewrites the order of every section of the report. The
// provided IDs must cover the report's sections exactly; orders are assigned
// densely from 0 in the given sequence.
func (s *ReportService) ReorderSections(ctx context.Context, orgID, reportID int, orderedIDs []int) (err error) {
	ctx, span := observability.TraceReportFunction(ctx, "ReorderSections",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM sections WHERE report_id = $1", reportID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to load section ids")
	}
	existing := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return contextutils.WrapErrorf(err, "failed to scan section id")
		}
		existing[id] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return contextutils.WrapErrorf(err, "failed to read section ids")
	}

	if len(orderedIDs) != len(existing) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput,
			"reorder lists %d sections, report has %d", len(orderedIDs), len(existing))
	}
	seen := make(map[int]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !existing[id] || seen[id] {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid section id %d in reorder", id)
		}
		seen[id] = true
	}

	for position, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE sections SET section_order = $1, updated_at = NOW() WHERE id = $2 AND report_id = $3",
			position, id, reportID); err != nil {
			return contextutils.WrapErrorf(err, "failed to reorder section %d", id)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE reports SET updated_at = NOW() WHERE id = $1", reportID); err != nil {
		return contextutils.WrapErrorf(err, "failed to touch report")
	}

	if err := tx.Commit(); err != nil {
		return contextutils.WrapErrorf(err, "failed to commit reorder")
	}
	return nil
}

// SetSectionVisibility toggles whether a section appears in exports and the
// public share view
func (s *ReportService) SetSectionVisibility(ctx context.Context, orgID, reportID, sectionID int, visible bool) (err error) {
	ctx, span := observability.TraceReportFunction(ctx, "SetSectionVisibility",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
		observability.AttributeSectionID(sectionID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE sections SET is_visible = $1, updated_at = NOW() WHERE id = $2 AND report_id = $3",
		visible, sectionID, reportID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to set section visibility")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check visibility update")
	}
	if affected == 0 {
		return contextutils.ErrSectionNotFound
	}
	return nil
}
