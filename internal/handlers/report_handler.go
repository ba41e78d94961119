package handlers

import (
	"net/http"
	"strconv"

	"reliefapp/internal/config"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ReportHandler handles report and section HTTP requests
type ReportHandler struct {
	reportService     services.ReportServiceInterface
	assessmentService services.AssessmentServiceInterface
	config            *config.Config
	logger            *observability.Logger
}

// NewReportHandler creates a new ReportHandler instance
func NewReportHandler(reportService services.ReportServiceInterface, assessmentService services.AssessmentServiceInterface, cfg *config.Config, logger *observability.Logger) *ReportHandler {
	return &ReportHandler{
		reportService:     reportService,
		assessmentService: assessmentService,
		config:            cfg,
		logger:            logger,
	}
}

// reportIDParam parses the :id path parameter. Non-numeric ids are shaped as
// not-found rather than bad-request so the route does not reveal which report
// ids exist.
func reportIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		HandleAppError(c, contextutils.ErrReportNotFound)
		return 0, false
	}
	return id, true
}

type createReportRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type updateReportRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.ReportStatus `json:"status"`
}

// ListReports returns the caller's organization reports, paginated
func (h *ReportHandler) ListReports(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_reports")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	page, pageSize := ParsePagination(c, 1, 20, 100)
	search := ParseSearch(c)

	span.SetAttributes(
		attribute.Int("pagination.page", page),
		attribute.Int("pagination.page_size", pageSize),
	)

	reports, total, err := h.reportService.ListReports(c.Request.Context(), orgID, page, pageSize, search)
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to list reports", err, map[string]interface{}{
			"organization_id": orgID,
		})
		HandleAppError(c, err)
		return
	}

	WritePaginated(c, "reports", reports, gin.H{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	}, nil)
}

// CreateReport creates a new draft report
func (h *ReportHandler) CreateReport(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "create_report")
	defer observability.FinishSpan(span, nil)

	userID, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	report, err := h.reportService.CreateReport(c.Request.Context(), orgID, userID, req.Title, req.Description)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("report.id", report.ID))
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// GetReport returns a single report with its sections
func (h *ReportHandler) GetReport(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_report")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("report.id", reportID))

	report, err := h.reportService.GetReport(c.Request.Context(), orgID, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// UpdateReport applies a partial update to a report
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "update_report")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("report.id", reportID))

	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	report, err := h.reportService.UpdateReport(c.Request.Context(), orgID, reportID, req.Title, req.Description, req.Status)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// DeleteReport deletes a report and everything attached to it
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_report")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("report.id", reportID))

	if err := h.reportService.DeleteReport(c.Request.Context(), orgID, reportID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Report deleted",
	})
}

// SaveSection creates or updates a section on a report. A zero section id
// creates; a non-zero id updates in place.
func (h *ReportHandler) SaveSection(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "save_section")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("report.id", reportID))

	var section models.Section
	if err := c.ShouldBindJSON(&section); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid section body",
			"",
			err,
		))
		return
	}
	if id := c.Param("sectionId"); id != "" {
		sectionID, err := strconv.Atoi(id)
		if err != nil || sectionID <= 0 {
			HandleAppError(c, contextutils.ErrInvalidInput)
			return
		}
		section.ID = sectionID
	}

	saved, err := h.reportService.SaveSection(c.Request.Context(), orgID, reportID, &section)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	status := http.StatusOK
	if section.ID == 0 || saved.ID != section.ID {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"section": saved})
}

// DeleteSection removes a section from a report
func (h *ReportHandler) DeleteSection(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_section")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	sectionID, err := strconv.Atoi(c.Param("sectionId"))
	if err != nil || sectionID <= 0 {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeSectionNotFound,
			contextutils.SeverityWarn,
			"Section not found",
			"",
		))
		return
	}
	span.SetAttributes(
		attribute.Int("report.id", reportID),
		attribute.Int("section.id", sectionID),
	)

	if err := h.reportService.DeleteSection(c.Request.Context(), orgID, reportID, sectionID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Section deleted",
	})
}

type reorderSectionsRequest struct {
	SectionIDs []int `json:"section_ids" binding:"required"`
}

// ReorderSections applies a full ordering to a report's sections
func (h *ReportHandler) ReorderSections(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "reorder_sections")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("report.id", reportID))

	var req reorderSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	if err := h.reportService.ReorderSections(c.Request.Context(), orgID, reportID, req.SectionIDs); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sections reordered",
	})
}

type sectionVisibilityRequest struct {
	IsVisible *bool `json:"is_visible" binding:"required"`
}

// SetSectionVisibility toggles whether a section appears in exports
func (h *ReportHandler) SetSectionVisibility(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "set_section_visibility")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	sectionID, err := strconv.Atoi(c.Param("sectionId"))
	if err != nil || sectionID <= 0 {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeSectionNotFound,
			contextutils.SeverityWarn,
			"Section not found",
			"",
		))
		return
	}

	var req sectionVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	if err := h.reportService.SetSectionVisibility(c.Request.Context(), orgID, reportID, sectionID, *req.IsVisible); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Section visibility updated",
	})
}

// CreateAssessment attaches a field assessment to a report
func (h *ReportHandler) CreateAssessment(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "create_assessment")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("report.id", reportID))

	var assessment models.Assessment
	if err := c.ShouldBindJSON(&assessment); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid assessment body",
			"",
			err,
		))
		return
	}

	created, err := h.assessmentService.CreateAssessment(c.Request.Context(), orgID, reportID, &assessment)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assessment": created})
}

// ListAssessments returns a report's assessments in creation order
func (h *ReportHandler) ListAssessments(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_assessments")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	assessments, err := h.assessmentService.ListAssessments(c.Request.Context(), orgID, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

// DeleteAssessment removes an assessment from a report
func (h *ReportHandler) DeleteAssessment(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_assessment")
	defer observability.FinishSpan(span, nil)

	_, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	assessmentID, err := strconv.Atoi(c.Param("assessmentId"))
	if err != nil || assessmentID <= 0 {
		HandleAppError(c, contextutils.ErrRecordNotFound)
		return
	}

	if err := h.assessmentService.DeleteAssessment(c.Request.Context(), orgID, reportID, assessmentID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Assessment deleted",
	})
}
