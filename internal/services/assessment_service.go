package services

import (
	"context"
	"database/sql"
	"strings"

	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// AssessmentServiceInterface defines the interface for field assessment operations
type AssessmentServiceInterface interface {
	CreateAssessment(ctx context.Context, orgID, reportID int, assessment *models.Assessment) (*models.Assessment, error)
	ListAssessments(ctx context.Context, orgID, reportID int) ([]models.Assessment, error)
	DeleteAssessment(ctx context.Context, orgID, reportID, assessmentID int) error
}

// AssessmentService manages the field assessments attached to reports
type AssessmentService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAssessmentService creates a new AssessmentService instance
func NewAssessmentService(db *sql.DB, logger *observability.Logger) *AssessmentService {
	if db == nil {
		panic("AssessmentService requires a valid database connection")
	}
	return &AssessmentService{
		db:     db,
		logger: logger,
	}
}

func (s *AssessmentService) reportExists(ctx context.Context, orgID, reportID int) error {
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

// CreateAssessment attaches one assessment to a report
func (s *AssessmentService) CreateAssessment(ctx context.Context, orgID, reportID int, assessment *models.Assessment) (result0 *models.Assessment, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "CreateAssessment",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(assessment.Location) == "" {
		return nil, contextutils.ErrMissingRequired
	}
	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return nil, err
	}

	assessment.ReportID = reportID
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO assessments (report_id, location, type, affected_people, households, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		reportID, assessment.Location, assessment.Type, assessment.AffectedPeople,
		assessment.Households, assessment.StartDate, assessment.EndDate,
	).Scan(&assessment.ID, &assessment.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to create assessment")
	}
	return assessment, nil
}

// ListAssessments returns the report's assessments in creation order
func (s *AssessmentService) ListAssessments(ctx context.Context, orgID, reportID int) (result0 []models.Assessment, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "ListAssessments",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, location, type, affected_people, households, start_date, end_date, created_at
		FROM assessments
		WHERE report_id = $1
		ORDER BY created_at ASC, id ASC`, reportID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to list assessments")
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

// DeleteAssessment removes one assessment
func (s *AssessmentService) DeleteAssessment(ctx context.Context, orgID, reportID, assessmentID int) (err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "DeleteAssessment",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	if err := s.reportExists(ctx, orgID, reportID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM assessments WHERE id = $1 AND report_id = $2", assessmentID, reportID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to delete assessment")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check assessment delete")
	}
	if affected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}
