package handlers

import (
	"net/http"

	"reliefapp/internal/collab"
	"reliefapp/internal/config"
	"reliefapp/internal/middleware"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

// CollabHandler upgrades authenticated clients onto a report's collaborative
// edit channel
type CollabHandler struct {
	hub           *collab.Hub
	reportService services.ReportServiceInterface
	config        *config.Config
	logger        *observability.Logger
	upgrader      websocket.Upgrader
}

// NewCollabHandler creates a new CollabHandler instance
func NewCollabHandler(hub *collab.Hub, reportService services.ReportServiceInterface, cfg *config.Config, logger *observability.Logger) *CollabHandler {
	return &CollabHandler{
		hub:           hub,
		reportService: reportService,
		config:        cfg,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Session cookies carry the auth; origin allowances come from the
			// same CORS configuration the REST routes use.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range cfg.Server.CORSOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

// Connect joins the caller to the report's room and services the socket until
// the client disconnects
func (h *CollabHandler) Connect(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "collab_connect")
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
	span.SetAttributes(
		attribute.Int("report.id", reportID),
		attribute.Int("user.id", userID),
	)

	// Room access follows report access: outside the caller's organization
	// the report does not exist.
	if _, err := h.reportService.GetReport(ctx, orgID, reportID); err != nil {
		HandleAppError(c, err)
		return
	}

	displayName, _ := c.Get(middleware.UsernameKey)
	name, _ := displayName.(string)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response
		h.logger.Warn(ctx, "Websocket upgrade failed", map[string]interface{}{
			"report_id": reportID,
			"error":     err.Error(),
		})
		return
	}

	h.hub.ServeConn(ctx, conn, reportID, userID, name)
}

// Presence returns who is currently connected to a report's room
func (h *CollabHandler) Presence(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "collab_presence")
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

	if _, err := h.reportService.GetReport(c.Request.Context(), orgID, reportID); err != nil {
		HandleAppError(c, err)
		return
	}

	participants := []collab.Participant{}
	if room := h.hub.Room(reportID); room != nil {
		participants = room.Participants()
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}
