package handlers

import (
	"fmt"
	"net/http"

	"reliefapp/internal/config"
	"reliefapp/internal/middleware"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	"reliefapp/internal/serviceinterfaces"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ExportHandler handles export, share-link, and export-history HTTP requests
type ExportHandler struct {
	exportService services.ExportServiceInterface
	shareService  services.ShareServiceInterface
	reportService services.ReportServiceInterface
	emailService  serviceinterfaces.EmailService
	config        *config.Config
	logger        *observability.Logger
}

// NewExportHandler creates a new ExportHandler instance
func NewExportHandler(
	exportService services.ExportServiceInterface,
	shareService services.ShareServiceInterface,
	reportService services.ReportServiceInterface,
	emailService serviceinterfaces.EmailService,
	cfg *config.Config,
	logger *observability.Logger,
) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		shareService:  shareService,
		reportService: reportService,
		emailService:  emailService,
		config:        cfg,
		logger:        logger,
	}
}

// Export renders a report in the requested format and streams it back as a
// file attachment. Every attempt, successful or not, lands in the export
// history.
func (h *ExportHandler) Export(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "export_report")
	defer observability.FinishSpan(span, nil)

	userID, orgID, ok := principal(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	format, ok := models.ParseExportFormat(c.Param("format"))
	if !ok {
		HandleAppError(c, contextutils.ErrUnsupportedFormat)
		return
	}
	span.SetAttributes(
		attribute.Int("report.id", reportID),
		attribute.String("export.format", string(format)),
	)

	result, _, err := h.exportService.Export(c.Request.Context(), orgID, userID, reportID, format)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// SharedView serves the public HTML rendering of a shared report. It is
// unauthenticated; the share token is the only credential, and any failure
// looks like a missing report.
func (h *ExportHandler) SharedView(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "shared_view")
	defer observability.FinishSpan(span, nil)

	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.shareService.ResolveShareToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if report.ID != reportID {
		// Valid token for a different report: still a not-found
		HandleAppError(c, contextutils.ErrShareTokenInvalid)
		return
	}
	span.SetAttributes(attribute.Int("report.id", report.ID))

	result, err := h.exportService.ExportShared(c.Request.Context(), report)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// GetShareLink issues (or returns the existing) share token for a report
func (h *ExportHandler) GetShareLink(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_share_link")
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

	token, err := h.shareService.IssueShareToken(c.Request.Context(), orgID, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"share_url": h.config.ShareLinkURL(token),
	})
}

// RotateShareLink replaces the share token, invalidating the previous link
func (h *ExportHandler) RotateShareLink(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "rotate_share_link")
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

	token, err := h.shareService.RotateShareToken(c.Request.Context(), orgID, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"share_url": h.config.ShareLinkURL(token),
	})
}

// RevokeShareLink disables public access to a report
func (h *ExportHandler) RevokeShareLink(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "revoke_share_link")
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

	if err := h.shareService.RevokeShareToken(c.Request.Context(), orgID, reportID); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Share link revoked",
	})
}

type emailShareLinkRequest struct {
	To string `json:"to" binding:"required"`
}

// EmailShareLink issues (or reuses) the report's share token and emails the
// resulting link to a recipient
func (h *ExportHandler) EmailShareLink(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "email_share_link")
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

	var req emailShareLinkRequest
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

	report, err := h.reportService.GetReport(c.Request.Context(), orgID, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	token, err := h.shareService.IssueShareToken(c.Request.Context(), orgID, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	senderName, _ := c.Get(middleware.UsernameKey)
	sender, _ := senderName.(string)

	if err := h.emailService.SendShareLinkEmail(c.Request.Context(), req.To, report, h.config.ShareLinkURL(token), sender); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Share link sent",
	})
}

// ListExports returns a report's export history, newest first
func (h *ExportHandler) ListExports(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_exports")
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

	_, limit := ParsePagination(c, 1, 20, 100)

	records, err := h.exportService.ListExports(c.Request.Context(), orgID, reportID, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": records})
}
