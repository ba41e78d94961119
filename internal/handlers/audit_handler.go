package handlers

import (
	"net/http"
	"strconv"

	"reliefapp/internal/config"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuditHandler exposes the audit trail to administrators
type AuditHandler struct {
	auditService services.AuditServiceInterface
	config       *config.Config
	logger       *observability.Logger
}

// NewAuditHandler creates a new AuditHandler instance
func NewAuditHandler(auditService services.AuditServiceInterface, cfg *config.Config, logger *observability.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		config:       cfg,
		logger:       logger,
	}
}

// ListAuditLog returns recent audit entries for one entity
func (h *AuditHandler) ListAuditLog(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_audit_log")
	defer observability.FinishSpan(span, nil)

	entity := c.Query("entity")
	if entity == "" {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeMissingRequired,
			contextutils.SeverityWarn,
			"entity query parameter is required",
			"",
		))
		return
	}
	entityID, err := strconv.Atoi(c.Query("entity_id"))
	if err != nil || entityID <= 0 {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeMissingRequired,
			contextutils.SeverityWarn,
			"entity_id query parameter is required",
			"",
		))
		return
	}
	_, limit := ParsePagination(c, 1, 50, 200)

	span.SetAttributes(
		attribute.String("audit.entity", entity),
		attribute.Int("audit.entity_id", entityID),
	)

	entries, err := h.auditService.ListForEntity(c.Request.Context(), entity, entityID, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
