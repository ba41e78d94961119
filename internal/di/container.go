// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"reliefapp/internal/collab"
	"reliefapp/internal/config"
	"reliefapp/internal/database"
	"reliefapp/internal/observability"
	"reliefapp/internal/serviceinterfaces"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetReportService() (services.ReportServiceInterface, error)
	GetAssessmentService() (services.AssessmentServiceInterface, error)
	GetShareService() (services.ShareServiceInterface, error)
	GetExportService() (services.ExportServiceInterface, error)
	GetAuditService() (services.AuditServiceInterface, error)
	GetEmailService() (serviceinterfaces.EmailService, error)
	GetCollabHub() (*collab.Hub, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.initializeServices(ctx)

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetReportService returns the report service
func (sc *ServiceContainer) GetReportService() (services.ReportServiceInterface, error) {
	return GetServiceAs[services.ReportServiceInterface](sc, "report")
}

// GetAssessmentService returns the assessment service
func (sc *ServiceContainer) GetAssessmentService() (services.AssessmentServiceInterface, error) {
	return GetServiceAs[services.AssessmentServiceInterface](sc, "assessment")
}

// GetShareService returns the share-link service
func (sc *ServiceContainer) GetShareService() (services.ShareServiceInterface, error) {
	return GetServiceAs[services.ShareServiceInterface](sc, "share")
}

// GetExportService returns the export service
func (sc *ServiceContainer) GetExportService() (services.ExportServiceInterface, error) {
	return GetServiceAs[services.ExportServiceInterface](sc, "export")
}

// GetAuditService returns the audit service
func (sc *ServiceContainer) GetAuditService() (services.AuditServiceInterface, error) {
	return GetServiceAs[services.AuditServiceInterface](sc, "audit")
}

// GetEmailService returns the email service
func (sc *ServiceContainer) GetEmailService() (serviceinterfaces.EmailService, error) {
	return GetServiceAs[serviceinterfaces.EmailService](sc, "email")
}

// GetCollabHub returns the collaborative edit hub
func (sc *ServiceContainer) GetCollabHub() (*collab.Hub, error) {
	return GetServiceAs[*collab.Hub](sc, "collab_hub")
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement the Lifecycle interface
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
		}
	}
	return nil
}

// cleanup handles shutdown of all services
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for name := range sc.services {
		if lifecycleService, ok := sc.services[name].(interface{ Shutdown(context.Context) error }); ok {
			sc.logger.Info(ctx, "Shutting down service", map[string]interface{}{"service": name})
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errors = append(errors, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			}
		}
	}

	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) {
	userService := services.NewUserServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["user"] = userService

	reportService := services.NewReportService(sc.db, sc.cfg, sc.logger)
	sc.services["report"] = reportService

	assessmentService := services.NewAssessmentService(sc.db, sc.logger)
	sc.services["assessment"] = assessmentService

	shareService := services.NewShareService(sc.db, sc.cfg, sc.logger)
	sc.services["share"] = shareService

	auditService := services.NewAuditService(sc.db, sc.logger)
	sc.services["audit"] = auditService

	// Export depends on report (section loading) and audit (history trail)
	exportService := services.NewExportService(sc.db, sc.cfg, sc.logger, reportService, auditService)
	sc.services["export"] = exportService

	emailService := services.NewEmailService(sc.cfg, sc.logger)
	sc.services["email"] = emailService

	collabHub := collab.NewHub(sc.cfg, sc.logger)
	sc.services["collab_hub"] = collabHub
}

// EnsureAdminUser creates the admin user if it doesn't exist
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUserExists(ctx, sc.cfg.Server.AdminUsername, sc.cfg.Server.AdminPassword)
}
