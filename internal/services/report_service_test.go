package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefapp/internal/config"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func newMockReportService(t *testing.T) (*ReportService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	service := NewReportService(db, &config.Config{}, testLogger())
	cleanup := func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}
	return service, mock, cleanup
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Flood Response Update", "flood-response-update"},
		{"  Cholera -- Outbreak!  ", "cholera-outbreak"},
		{"Q3/2025 (North)", "q3-2025-north"},
		{"---", "report"},
		{"", "report"},
		{"Ümläut Report", "ml-ut-report"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugify(tt.title))
		})
	}
}

func TestCreateReport(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports WHERE organization_id = \$1 AND slug = \$2\)`).
		WithArgs(1, "flood-update").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO reports`).
		WithArgs(1, 7, "flood-update", "Flood Update", "desc", models.ReportStatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(42, time.Now(), time.Now()))

	report, err := service.CreateReport(context.Background(), 1, 7, "Flood Update", "desc")
	require.NoError(t, err)
	assert.Equal(t, 42, report.ID)
	assert.Equal(t, "flood-update", report.Slug)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
}

func TestCreateReport_SlugCollisionGetsSuffix(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	existsRows := func(exists bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
	}
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(1, "flood-update").WillReturnRows(existsRows(true))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(1, "flood-update-2").WillReturnRows(existsRows(false))
	mock.ExpectQuery(`INSERT INTO reports`).
		WithArgs(1, 7, "flood-update-2", "Flood Update", "", models.ReportStatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(43, time.Now(), time.Now()))

	report, err := service.CreateReport(context.Background(), 1, 7, "Flood Update", "")
	require.NoError(t, err)
	assert.Equal(t, "flood-update-2", report.Slug)
}

func TestCreateReport_EmptyTitle(t *testing.T) {
	service, _, cleanup := newMockReportService(t)
	defer cleanup()

	_, err := service.CreateReport(context.Background(), 1, 7, "   ", "")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
}

func TestGetReport_WrongOrganizationLooksMissing(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1 AND organization_id = \$2`).
		WithArgs(42, 99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := service.GetReport(context.Background(), 99, 42)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrReportNotFound))
}

func TestSaveSection_TypeMismatch(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	section := &models.Section{
		Type:    models.SectionChart,
		Content: models.TextContent{Text: "not a chart"},
	}
	_, err := service.SaveSection(context.Background(), 1, 42, section)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestSaveSection_UnknownType(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	section := &models.Section{Type: models.SectionType("video")}
	_, err := service.SaveSection(context.Background(), 1, 42, section)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestReorderSections_RejectsPartialList(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM sections WHERE report_id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectRollback()

	err := service.ReorderSections(context.Background(), 1, 42, []int{3, 1})
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestReorderSections_RejectsForeignSectionID(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM sections WHERE report_id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectRollback()

	err := service.ReorderSections(context.Background(), 1, 42, []int{1, 999})
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestReorderSections_AssignsDenseOrder(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM sections WHERE report_id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectExec(`UPDATE sections SET section_order = \$1`).
		WithArgs(0, 3, 42).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sections SET section_order = \$1`).
		WithArgs(1, 1, 42).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sections SET section_order = \$1`).
		WithArgs(2, 2, 42).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE reports SET updated_at`).
		WithArgs(42).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := service.ReorderSections(context.Background(), 1, 42, []int{3, 1, 2})
	require.NoError(t, err)
}

func TestSetSectionVisibility_SectionNotFound(t *testing.T) {
	service, mock, cleanup := newMockReportService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reports`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE sections SET is_visible`).
		WithArgs(false, 7, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.SetSectionVisibility(context.Background(), 1, 42, 7, false)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrSectionNotFound))
}
