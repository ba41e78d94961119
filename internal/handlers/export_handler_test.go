package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reliefapp/internal/config"
	"reliefapp/internal/middleware"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExportService struct {
	services.ExportServiceInterface
	export       func(ctx context.Context, orgID, userID, reportID int, format models.ExportFormat) (*models.ExportResult, *models.ExportRecord, error)
	exportShared func(ctx context.Context, report *models.Report) (*models.ExportResult, error)
	listExports  func(ctx context.Context, orgID, reportID, limit int) ([]models.ExportRecord, error)
}

func (s *stubExportService) Export(ctx context.Context, orgID, userID, reportID int, format models.ExportFormat) (*models.ExportResult, *models.ExportRecord, error) {
	return s.export(ctx, orgID, userID, reportID, format)
}

func (s *stubExportService) ExportShared(ctx context.Context, report *models.Report) (*models.ExportResult, error) {
	return s.exportShared(ctx, report)
}

func (s *stubExportService) ListExports(ctx context.Context, orgID, reportID, limit int) ([]models.ExportRecord, error) {
	return s.listExports(ctx, orgID, reportID, limit)
}

type stubShareService struct {
	services.ShareServiceInterface
	issue   func(ctx context.Context, orgID, reportID int) (string, error)
	resolve func(ctx context.Context, token string) (*models.Report, error)
}

func (s *stubShareService) IssueShareToken(ctx context.Context, orgID, reportID int) (string, error) {
	return s.issue(ctx, orgID, reportID)
}

func (s *stubShareService) ResolveShareToken(ctx context.Context, token string) (*models.Report, error) {
	return s.resolve(ctx, token)
}

type stubReports struct {
	services.ReportServiceInterface
	getReport func(ctx context.Context, orgID, reportID int) (*models.Report, error)
}

func (s *stubReports) GetReport(ctx context.Context, orgID, reportID int) (*models.Report, error) {
	return s.getReport(ctx, orgID, reportID)
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AppBaseURL: "https://relief.example.org",
		},
	}
}

func handlerTestLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

// fakeAuth stands in for session auth in handler tests
func fakeAuth(userID, orgID int, username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.OrganizationIDKey, orgID)
		c.Set(middleware.UsernameKey, username)
		c.Next()
	}
}

func newExportTestRouter(h *ExportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	authed := router.Group("", fakeAuth(7, 1, "amina"))
	authed.POST("/v1/reports/:id/export/:format", h.Export)
	authed.GET("/v1/reports/:id/share", h.GetShareLink)
	authed.GET("/v1/reports/:id/exports", h.ListExports)
	router.GET("/v1/reports/:id/export/html", h.SharedView)
	return router
}

func TestExportHandler_ServesAttachment(t *testing.T) {
	exports := &stubExportService{
		export: func(_ context.Context, orgID, userID, reportID int, format models.ExportFormat) (*models.ExportResult, *models.ExportRecord, error) {
			assert.Equal(t, 1, orgID)
			assert.Equal(t, 7, userID)
			assert.Equal(t, 42, reportID)
			assert.Equal(t, models.ExportFormatExcel, format)
			return &models.ExportResult{
				Data:        []byte("workbook-bytes"),
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Filename:    "flood-response-update.xlsx",
			}, &models.ExportRecord{ID: 9}, nil
		},
	}
	h := NewExportHandler(exports, &stubShareService{}, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/42/export/excel", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "workbook-bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "flood-response-update.xlsx")
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
}

func TestExportHandler_UnsupportedFormat(t *testing.T) {
	h := NewExportHandler(&stubExportService{}, &stubShareService{}, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/42/export/csv", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandler_ForeignReportShapedAsNotFound(t *testing.T) {
	exports := &stubExportService{
		export: func(context.Context, int, int, int, models.ExportFormat) (*models.ExportResult, *models.ExportRecord, error) {
			return nil, &models.ExportRecord{ID: 9}, contextutils.ErrReportNotFound
		},
	}
	h := NewExportHandler(exports, &stubShareService{}, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/42/export/pdf", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Report not found")
}

func TestExportHandler_RenderFailureBodyIsGeneric(t *testing.T) {
	exports := &stubExportService{
		export: func(context.Context, int, int, int, models.ExportFormat) (*models.ExportResult, *models.ExportRecord, error) {
			return nil, &models.ExportRecord{ID: 9}, contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeRenderFailed,
				contextutils.SeverityError,
				"failed to render PDF export",
				"page 3 layout overflow",
				assertAnError{},
			)
		},
	}
	h := NewExportHandler(exports, &stubShareService{}, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/42/export/pdf", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Export failed")
	// Renderer detail belongs in the export record, not the response
	assert.NotContains(t, w.Body.String(), "layout overflow")
}

type assertAnError struct{}

func (assertAnError) Error() string { return "renderer exploded" }

func TestSharedView_ServesHTMLWithoutSession(t *testing.T) {
	report := &models.Report{ID: 42, OrganizationID: 1, Slug: "flood-response-update"}
	share := &stubShareService{
		resolve: func(_ context.Context, token string) (*models.Report, error) {
			assert.Equal(t, strings.Repeat("ab", 16), token)
			return report, nil
		},
	}
	exports := &stubExportService{
		exportShared: func(_ context.Context, r *models.Report) (*models.ExportResult, error) {
			assert.Equal(t, report, r)
			return &models.ExportResult{
				Data:        []byte("<!DOCTYPE html><html></html>"),
				ContentType: "text/html; charset=utf-8",
				Filename:    "flood-response-update.html",
			}, nil
		},
	}
	h := NewExportHandler(exports, share, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/42/export/html?token="+strings.Repeat("ab", 16), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
	// No attachment disposition on the shared view
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

func TestSharedView_BadTokenLooksLikeMissingReport(t *testing.T) {
	share := &stubShareService{
		resolve: func(context.Context, string) (*models.Report, error) {
			return nil, contextutils.ErrShareTokenInvalid
		},
	}
	h := NewExportHandler(&stubExportService{}, share, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/42/export/html?token=bogus", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Report not found")
}

func TestSharedView_TokenForOtherReportRejected(t *testing.T) {
	share := &stubShareService{
		resolve: func(context.Context, string) (*models.Report, error) {
			return &models.Report{ID: 99, OrganizationID: 1}, nil
		},
	}
	h := NewExportHandler(&stubExportService{}, share, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/42/export/html?token="+strings.Repeat("cd", 16), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Report not found")
}

func TestGetShareLink_ReturnsShareURL(t *testing.T) {
	token := strings.Repeat("ef", 16)
	share := &stubShareService{
		issue: func(_ context.Context, orgID, reportID int) (string, error) {
			assert.Equal(t, 1, orgID)
			assert.Equal(t, 42, reportID)
			return token, nil
		},
	}
	h := NewExportHandler(&stubExportService{}, share, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/42/share", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), token)
	assert.Contains(t, w.Body.String(), "https://relief.example.org/shared/"+token)
}

func TestListExports_ReturnsHistory(t *testing.T) {
	exports := &stubExportService{
		listExports: func(_ context.Context, orgID, reportID, limit int) ([]models.ExportRecord, error) {
			assert.Equal(t, 1, orgID)
			assert.Equal(t, 42, reportID)
			assert.Equal(t, 20, limit)
			return []models.ExportRecord{
				{ID: 2, ReportID: 42, Format: models.ExportFormatPDF, Status: models.ExportStatusCompleted},
				{ID: 1, ReportID: 42, Format: models.ExportFormatExcel, Status: models.ExportStatusFailed},
			}, nil
		},
	}
	h := NewExportHandler(exports, &stubShareService{}, &stubReports{}, nil, handlerTestConfig(), handlerTestLogger())
	router := newExportTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/42/exports", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exports"`)
	assert.Contains(t, w.Body.String(), string(models.ExportStatusFailed))
}
