package handlers

import (
	"net/http"
	"time"

	"reliefapp/internal/collab"
	"reliefapp/internal/config"
	"reliefapp/internal/middleware"
	"reliefapp/internal/observability"
	"reliefapp/internal/serviceinterfaces"
	"reliefapp/internal/services"
	"reliefapp/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// RouterConfig bundles everything the router needs
type RouterConfig struct {
	Config            *config.Config
	Logger            *observability.Logger
	UserService       services.UserServiceInterface
	ReportService     services.ReportServiceInterface
	AssessmentService services.AssessmentServiceInterface
	ExportService     services.ExportServiceInterface
	ShareService      services.ShareServiceInterface
	AuditService      services.AuditServiceInterface
	EmailService      serviceinterfaces.EmailService
	CollabHub         *collab.Hub
}

// NewRouter builds the gin engine with all middleware and routes wired
func NewRouter(rc RouterConfig) *gin.Engine {
	cfg := rc.Config
	logger := rc.Logger

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Health stays outside the middleware chain so probes are cheap and never
	// blocked by the circuit breaker.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Version,
		})
	})

	router.Use(requestLogger(logger))
	router.Use(observability.GinMiddlewareWithErrorHandling(cfg.OpenTelemetry.ServiceName))
	router.Use(middleware.ErrorRecoveryMiddleware(middleware.DefaultErrorRecoveryConfig()))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	})
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	secureConfig.SSLRedirect = false
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(rc.UserService, cfg, logger)
	reportHandler := NewReportHandler(rc.ReportService, rc.AssessmentService, cfg, logger)
	exportHandler := NewExportHandler(rc.ExportService, rc.ShareService, rc.ReportService, rc.EmailService, cfg, logger)
	collabHandler := NewCollabHandler(rc.CollabHub, rc.ReportService, cfg, logger)
	auditHandler := NewAuditHandler(rc.AuditService, cfg, logger)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.GET("/check", middleware.RequireAuth(), authHandler.Check)
		}

		// The shared HTML view is the one report route with no session; the
		// token in the query string is the whole credential.
		v1.GET("/reports/:id/export/html", exportHandler.SharedView)

		reports := v1.Group("/reports", middleware.RequireAuth())
		{
			reports.GET("", reportHandler.ListReports)
			reports.POST("", reportHandler.CreateReport)
			reports.GET("/:id", reportHandler.GetReport)
			reports.PUT("/:id", reportHandler.UpdateReport)
			reports.DELETE("/:id", reportHandler.DeleteReport)

			reports.POST("/:id/sections", reportHandler.SaveSection)
			reports.PUT("/:id/sections/:sectionId", reportHandler.SaveSection)
			reports.DELETE("/:id/sections/:sectionId", reportHandler.DeleteSection)
			reports.PUT("/:id/sections/:sectionId/visibility", reportHandler.SetSectionVisibility)
			reports.PUT("/:id/sections/reorder", reportHandler.ReorderSections)

			reports.GET("/:id/assessments", reportHandler.ListAssessments)
			reports.POST("/:id/assessments", reportHandler.CreateAssessment)
			reports.DELETE("/:id/assessments/:assessmentId", reportHandler.DeleteAssessment)

			reports.POST("/:id/export/:format", exportHandler.Export)
			reports.GET("/:id/exports", exportHandler.ListExports)

			reports.GET("/:id/share", exportHandler.GetShareLink)
			reports.POST("/:id/share/rotate", exportHandler.RotateShareLink)
			reports.DELETE("/:id/share", exportHandler.RevokeShareLink)
			reports.POST("/:id/share/email", exportHandler.EmailShareLink)

			reports.GET("/:id/collab", collabHandler.Connect)
			reports.GET("/:id/collab/presence", collabHandler.Presence)
		}

		admin := v1.Group("/admin", middleware.RequireAdmin(rc.UserService))
		{
			admin.GET("/audit", auditHandler.ListAuditLog)
		}
	}

	return router
}

// requestLogger logs each request with timing and caller info
func requestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info(c.Request.Context(), "HTTP request", map[string]interface{}{
			"http.method": c.Request.Method,
			"path":        path,
			"status_code": c.Writer.Status(),
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
