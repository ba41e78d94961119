package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSectionContent_Variants(t *testing.T) {
	affected := 1200
	desc := "camp overflow"

	tests := []struct {
		name        string
		sectionType SectionType
		input       string
		expected    SectionContent
	}{
		{
			name:        "text",
			sectionType: SectionText,
			input:       `{"text":"<p>Situation is stable.</p>"}`,
			expected:    TextContent{Text: "<p>Situation is stable.</p>"},
		},
		{
			name:        "statistics",
			sectionType: SectionStatistics,
			input:       `{"statistics":[{"label":"People reached","value":"12000","unit":"people"}]}`,
			expected: StatisticsContent{Statistics: []Statistic{
				{Label: "People reached", Value: "12000", Unit: "people"},
			}},
		},
		{
			name:        "chart",
			sectionType: SectionChart,
			input:       `{"title":"Aid by region","xAxisKey":"region","dataKey":"tons","data":[{"region":"North","tons":40}]}`,
			expected: ChartContent{
				Title:    "Aid by region",
				XAxisKey: "region",
				DataKey:  "tons",
				Data:     []map[string]interface{}{{"region": "North", "tons": float64(40)}},
			},
		},
		{
			name:        "map",
			sectionType: SectionMap,
			input:       `{"locations":[{"name":"Goma","type":"camp","latitude":-1.68,"longitude":29.22,"affectedPeople":1200,"description":"camp overflow"}]}`,
			expected: MapContent{Locations: []Location{
				{Name: "Goma", Type: "camp", Latitude: -1.68, Longitude: 29.22, AffectedPeople: &affected, Description: &desc},
			}},
		},
		{
			name:        "table",
			sectionType: SectionTable,
			input:       `{"text":"<table><tr><td>x</td></tr></table>"}`,
			expected:    TableContent{Text: "<table><tr><td>x</td></tr></table>"},
		},
		{
			name:        "image gallery",
			sectionType: SectionImageGallery,
			input:       `{"images":[{"url":"https://cdn.example.org/a.jpg","caption":"Distribution"}]}`,
			expected: ImageGalleryContent{Images: []ImageRef{
				{URL: "https://cdn.example.org/a.jpg", Caption: "Distribution"},
			}},
		},
		{
			name:        "assessment data",
			sectionType: SectionAssessmentData,
			input:       `{}`,
			expected:    AssessmentDataContent{},
		},
		{
			name:        "recommendations",
			sectionType: SectionRecommendations,
			input:       `{"text":"Scale up water trucking."}`,
			expected:    RecommendationsContent{Text: "Scale up water trucking."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := ParseSectionContent(tt.sectionType, []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, content)
			assert.Equal(t, tt.sectionType, content.SectionType())
		})
	}
}

func TestStatistic_UnmarshalJSON_NumericValue(t *testing.T) {
	var stat Statistic
	require.NoError(t, json.Unmarshal([]byte(`{"label":"Beneficiaries","value":1200,"unit":"people"}`), &stat))
	assert.Equal(t, Statistic{Label: "Beneficiaries", Value: "1200", Unit: "people"}, stat)

	require.NoError(t, json.Unmarshal([]byte(`{"label":"Coverage","value":"68%"}`), &stat))
	assert.Equal(t, "68%", stat.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"label":"Pending"}`), &stat))
	assert.Equal(t, "", stat.Value)
}

func TestParseSectionContent_UnknownType(t *testing.T) {
	_, err := ParseSectionContent("video", []byte(`{}`))
	assert.Error(t, err)
}

func TestParseSectionContent_EmptyPayload(t *testing.T) {
	content, err := ParseSectionContent(SectionText, nil)
	require.NoError(t, err)
	assert.Equal(t, TextContent{}, content)

	content, err = ParseSectionContent(SectionStatistics, []byte("null"))
	require.NoError(t, err)
	assert.Equal(t, StatisticsContent{}, content)
}

func TestSection_ContentJSONRoundTrip(t *testing.T) {
	section := Section{
		ID:       7,
		ReportID: 3,
		Type:     SectionStatistics,
		Title:    "Key Figures",
		Content: StatisticsContent{Statistics: []Statistic{
			{Label: "Households", Value: "450"},
		}},
		Order:     2,
		IsVisible: true,
	}

	raw, err := section.MarshalContentToJSON()
	require.NoError(t, err)

	restored := Section{Type: SectionStatistics}
	require.NoError(t, restored.UnmarshalContentFromJSON(raw))
	assert.Equal(t, section.Content, restored.Content)
}

func TestSection_UnmarshalJSON(t *testing.T) {
	raw := `{"id":5,"report_id":2,"type":"chart","title":"Deliveries","content":{"xAxisKey":"week","dataKey":"count","data":[{"week":"W1","count":3}]},"order":1,"is_visible":true}`

	var section Section
	require.NoError(t, json.Unmarshal([]byte(raw), &section))

	assert.Equal(t, 5, section.ID)
	assert.Equal(t, SectionChart, section.Type)
	chart, ok := section.Content.(ChartContent)
	require.True(t, ok)
	assert.Equal(t, "week", chart.XAxisKey)
	assert.Len(t, chart.Data, 1)
}

func TestSection_UnmarshalJSON_UnknownType(t *testing.T) {
	raw := `{"id":5,"type":"hologram","content":{}}`

	var section Section
	assert.Error(t, json.Unmarshal([]byte(raw), &section))
}

func TestVisibleSections(t *testing.T) {
	sections := []Section{
		{ID: 1, Order: 2, IsVisible: true},
		{ID: 2, Order: 0, IsVisible: false},
		{ID: 3, Order: 1, IsVisible: true},
		{ID: 4, Order: 0, IsVisible: true},
	}

	visible := VisibleSections(sections)

	require.Len(t, visible, 3)
	assert.Equal(t, []int{4, 3, 1}, []int{visible[0].ID, visible[1].ID, visible[2].ID})
	// Input order must be untouched
	assert.Equal(t, 1, sections[0].ID)
}

func TestVisibleSections_Empty(t *testing.T) {
	assert.Empty(t, VisibleSections(nil))
	assert.Empty(t, VisibleSections([]Section{{ID: 1, IsVisible: false}}))
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected ExportFormat
		ok       bool
	}{
		{"excel", ExportFormatExcel, true},
		{"EXCEL", ExportFormatExcel, true},
		{"xlsx", ExportFormatExcel, true},
		{"word", ExportFormatWord, true},
		{"docx", ExportFormatWord, true},
		{"html", ExportFormatHTML, true},
		{"pdf", ExportFormatPDF, true},
		{" pdf ", ExportFormatPDF, true},
		{"csv", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, ok := ParseExportFormat(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestExportStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExportStatusProcessing.IsTerminal())
	assert.True(t, ExportStatusCompleted.IsTerminal())
	assert.True(t, ExportStatusFailed.IsTerminal())
}

func TestExportRecord_MarshalJSON(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("processing record has null terminal fields", func(t *testing.T) {
		record := ExportRecord{
			ID:        1,
			ReportID:  9,
			Format:    ExportFormatExcel,
			Status:    ExportStatusProcessing,
			CreatedAt: now,
		}

		data, err := json.Marshal(record)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Nil(t, decoded["error_message"])
		assert.Nil(t, decoded["completed_at"])
		assert.Equal(t, "PROCESSING", decoded["status"])
	})

	t.Run("failed record carries error message", func(t *testing.T) {
		record := ExportRecord{
			ID:           2,
			ReportID:     9,
			Format:       ExportFormatPDF,
			Status:       ExportStatusFailed,
			ErrorMessage: sql.NullString{String: "render exploded", Valid: true},
			CompletedAt:  sql.NullTime{Time: now, Valid: true},
			CreatedAt:    now,
		}

		data, err := json.Marshal(record)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "render exploded", decoded["error_message"])
		assert.NotNil(t, decoded["completed_at"])
	})
}

func TestUser_MarshalJSON_OmitsSecrets(t *testing.T) {
	user := User{
		ID:             1,
		Username:       "amina",
		PasswordHash:   sql.NullString{String: "bcrypt-hash", Valid: true},
		OrganizationID: 4,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "password_hash")
	assert.Nil(t, decoded["email"])
	assert.Equal(t, "amina", decoded["username"])
}

func TestUser_Name(t *testing.T) {
	user := User{Username: "amina"}
	assert.Equal(t, "amina", user.Name())

	user.DisplayName = sql.NullString{String: "Amina Yusuf", Valid: true}
	assert.Equal(t, "Amina Yusuf", user.Name())
}
