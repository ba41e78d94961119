package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reliefapp/internal/models"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReportService struct {
	services.ReportServiceInterface
	createReport    func(ctx context.Context, orgID, authorID int, title, description string) (*models.Report, error)
	getReport       func(ctx context.Context, orgID, reportID int) (*models.Report, error)
	listReports     func(ctx context.Context, orgID, page, pageSize int, search string) ([]models.Report, int, error)
	saveSection     func(ctx context.Context, orgID, reportID int, section *models.Section) (*models.Section, error)
	reorderSections func(ctx context.Context, orgID, reportID int, orderedIDs []int) error
}

func (s *stubReportService) CreateReport(ctx context.Context, orgID, authorID int, title, description string) (*models.Report, error) {
	return s.createReport(ctx, orgID, authorID, title, description)
}

func (s *stubReportService) GetReport(ctx context.Context, orgID, reportID int) (*models.Report, error) {
	return s.getReport(ctx, orgID, reportID)
}

func (s *stubReportService) ListReports(ctx context.Context, orgID, page, pageSize int, search string) ([]models.Report, int, error) {
	return s.listReports(ctx, orgID, page, pageSize, search)
}

func (s *stubReportService) SaveSection(ctx context.Context, orgID, reportID int, section *models.Section) (*models.Section, error) {
	return s.saveSection(ctx, orgID, reportID, section)
}

func (s *stubReportService) ReorderSections(ctx context.Context, orgID, reportID int, orderedIDs []int) error {
	return s.reorderSections(ctx, orgID, reportID, orderedIDs)
}

type stubAssessmentService struct {
	services.AssessmentServiceInterface
}

func newReportTestRouter(reports services.ReportServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewReportHandler(reports, &stubAssessmentService{}, handlerTestConfig(), handlerTestLogger())
	authed := router.Group("", fakeAuth(7, 1, "amina"))
	authed.GET("/v1/reports", h.ListReports)
	authed.POST("/v1/reports", h.CreateReport)
	authed.GET("/v1/reports/:id", h.GetReport)
	authed.POST("/v1/reports/:id/sections", h.SaveSection)
	authed.PUT("/v1/reports/:id/sections/reorder", h.ReorderSections)
	return router
}

func TestCreateReport(t *testing.T) {
	reports := &stubReportService{
		createReport: func(_ context.Context, orgID, authorID int, title, description string) (*models.Report, error) {
			assert.Equal(t, 1, orgID)
			assert.Equal(t, 7, authorID)
			assert.Equal(t, "Flood Response Update", title)
			return &models.Report{
				ID:             42,
				OrganizationID: orgID,
				AuthorID:       authorID,
				Slug:           "flood-response-update",
				Title:          title,
				Status:         models.ReportStatusDraft,
			}, nil
		},
	}
	router := newReportTestRouter(reports)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports",
		strings.NewReader(`{"title":"Flood Response Update"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "flood-response-update")
	assert.Contains(t, w.Body.String(), string(models.ReportStatusDraft))
}

func TestCreateReport_MissingTitle(t *testing.T) {
	router := newReportTestRouter(&stubReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReport_NotFound(t *testing.T) {
	reports := &stubReportService{
		getReport: func(context.Context, int, int) (*models.Report, error) {
			return nil, contextutils.ErrReportNotFound
		},
	}
	router := newReportTestRouter(reports)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/42", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Report not found")
}

func TestGetReport_NonNumericIDShapedAsNotFound(t *testing.T) {
	router := newReportTestRouter(&stubReportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/latest", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReports_PassesPaginationAndSearch(t *testing.T) {
	reports := &stubReportService{
		listReports: func(_ context.Context, orgID, page, pageSize int, search string) ([]models.Report, int, error) {
			assert.Equal(t, 1, orgID)
			assert.Equal(t, 2, page)
			assert.Equal(t, 10, pageSize)
			assert.Equal(t, "flood", search)
			return []models.Report{{ID: 42, Title: "Flood Response Update"}}, 11, nil
		},
	}
	router := newReportTestRouter(reports)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports?page=2&page_size=10&search=flood", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":11`)
	assert.Contains(t, w.Body.String(), "Flood Response Update")
}

func TestSaveSection_CreatesSection(t *testing.T) {
	reports := &stubReportService{
		saveSection: func(_ context.Context, orgID, reportID int, section *models.Section) (*models.Section, error) {
			assert.Equal(t, 1, orgID)
			assert.Equal(t, 42, reportID)
			assert.Equal(t, models.SectionText, section.Type)
			saved := *section
			saved.ID = 5
			saved.ReportID = reportID
			return &saved, nil
		},
	}
	router := newReportTestRouter(reports)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/42/sections",
		strings.NewReader(`{"type":"text","title":"Situation Overview","content":{"text":"<p>Rivers rising.</p>"},"is_visible":true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Situation Overview")
}

func TestReorderSections(t *testing.T) {
	var got []int
	reports := &stubReportService{
		reorderSections: func(_ context.Context, orgID, reportID int, orderedIDs []int) error {
			got = orderedIDs
			return nil
		},
	}
	router := newReportTestRouter(reports)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/reports/42/sections/reorder",
		strings.NewReader(`{"section_ids":[3,1,2]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{3, 1, 2}, got)
}
