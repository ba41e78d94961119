package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ReportStatus represents the lifecycle status of a report
type ReportStatus string

const (
	// ReportStatusDraft is for reports still being composed
	ReportStatusDraft ReportStatus = "draft"
	// ReportStatusInReview is for reports under internal review
	ReportStatusInReview ReportStatus = "in_review"
	// ReportStatusApproved is for reports cleared by review
	ReportStatusApproved ReportStatus = "approved"
	// ReportStatusPublished is for reports released outside the organization
	ReportStatusPublished ReportStatus = "published"
	// ReportStatusArchived is for reports retired from active use
	ReportStatusArchived ReportStatus = "archived"
)

// Report represents a situation report composed of ordered sections
type Report struct {
	ID             int            `json:"id" yaml:"id"`
	OrganizationID int            `json:"organization_id" yaml:"organization_id"`
	AuthorID       int            `json:"author_id" yaml:"author_id"`
	Slug           string         `json:"slug" yaml:"slug"`
	Title          string         `json:"title" yaml:"title"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	Status         ReportStatus   `json:"status" yaml:"status"`
	IsPublic       bool           `json:"is_public" yaml:"is_public"`
	ShareToken     sql.NullString `json:"-" yaml:"-"` // Never serialized; issued via the share endpoint
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"updated_at"`
	Sections       []Section      `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// SectionType represents the type of a report section
type SectionType string

// Section types supported by the system
const (
	// SectionText is free-form rich text
	SectionText SectionType = "text"
	// SectionStatistics is a list of labeled key figures
	SectionStatistics SectionType = "statistics"
	// SectionChart is a categorical data series
	SectionChart SectionType = "chart"
	// SectionMap is a list of geographic locations
	SectionMap SectionType = "map"
	// SectionTable is tabular markup authored in the editor
	SectionTable SectionType = "table"
	// SectionImageGallery is a set of image references
	SectionImageGallery SectionType = "image_gallery"
	// SectionAssessmentData pulls the report's field assessments
	SectionAssessmentData SectionType = "assessment_data"
	// SectionRecommendations is free-form recommendation text
	SectionRecommendations SectionType = "recommendations"
)

// SectionTypes lists every supported section type
func SectionTypes() []SectionType {
	return []SectionType{
		SectionText,
		SectionStatistics,
		SectionChart,
		SectionMap,
		SectionTable,
		SectionImageGallery,
		SectionAssessmentData,
		SectionRecommendations,
	}
}

// SectionContent is the typed payload of a section. Exactly one implementation
// exists per SectionType, and every renderer switches over all of them.
type SectionContent interface {
	SectionType() SectionType
}

// TextContent is the payload for text sections; Text may carry HTML markup
type TextContent struct {
	Text string `json:"text"`
}

// SectionType implements SectionContent
func (TextContent) SectionType() SectionType { return SectionText }

// Statistic is a single labeled key figure. Editors enter values as either
// numbers or strings; both decode into Value's textual form.
type Statistic struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// UnmarshalJSON accepts a numeric or string "value" field
func (s *Statistic) UnmarshalJSON(data []byte) error {
	var alias struct {
		Label string          `json:"label"`
		Value json.RawMessage `json:"value"`
		Unit  string          `json:"unit"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	s.Label = alias.Label
	s.Unit = alias.Unit
	s.Value = ""
	if len(alias.Value) > 0 && string(alias.Value) != "null" {
		if alias.Value[0] == '"' {
			var str string
			if err := json.Unmarshal(alias.Value, &str); err != nil {
				return err
			}
			s.Value = str
		} else {
			var num json.Number
			if err := json.Unmarshal(alias.Value, &num); err != nil {
				return err
			}
			s.Value = num.String()
		}
	}
	return nil
}

// StatisticsContent is the payload for statistics sections
type StatisticsContent struct {
	Statistics []Statistic `json:"statistics"`
}

// SectionType implements SectionContent
func (StatisticsContent) SectionType() SectionType { return SectionStatistics }

// ChartContent is the payload for chart sections. Data rows are keyed maps;
// XAxisKey selects the category column and DataKey the value column.
type ChartContent struct {
	Title    string                   `json:"title,omitempty"`
	XAxisKey string                   `json:"xAxisKey"`
	DataKey  string                   `json:"dataKey"`
	Data     []map[string]interface{} `json:"data"`
}

// SectionType implements SectionContent
func (ChartContent) SectionType() SectionType { return SectionChart }

// Location is a single geographic entry in a map section
type Location struct {
	Name           string  `json:"name"`
	Type           string  `json:"type,omitempty"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AffectedPeople *int    `json:"affectedPeople,omitempty"`
	Description    *string `json:"description,omitempty"`
}

// MapContent is the payload for map sections
type MapContent struct {
	Locations []Location `json:"locations"`
}

// SectionType implements SectionContent
func (MapContent) SectionType() SectionType { return SectionMap }

// TableContent is the payload for table sections; Text carries HTML table markup
type TableContent struct {
	Text string `json:"text"`
}

// SectionType implements SectionContent
func (TableContent) SectionType() SectionType { return SectionTable }

// ImageRef is a single image reference in a gallery section
type ImageRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// ImageGalleryContent is the payload for image gallery sections
type ImageGalleryContent struct {
	Images []ImageRef `json:"images"`
}

// SectionType implements SectionContent
func (ImageGalleryContent) SectionType() SectionType { return SectionImageGallery }

// AssessmentDataContent is the payload for assessment data sections. It carries
// no fields; renderers source rows from the report's assessments.
type AssessmentDataContent struct{}

// SectionType implements SectionContent
func (AssessmentDataContent) SectionType() SectionType { return SectionAssessmentData }

// RecommendationsContent is the payload for recommendations sections
type RecommendationsContent struct {
	Text string `json:"text"`
}

// SectionType implements SectionContent
func (RecommendationsContent) SectionType() SectionType { return SectionRecommendations }

// Section represents one typed, ordered block of a report
type Section struct {
	ID        int            `json:"id" yaml:"id"`
	ReportID  int            `json:"report_id" yaml:"report_id"`
	Type      SectionType    `json:"type" yaml:"type"`
	Title     string         `json:"title" yaml:"title"`
	Content   SectionContent `json:"content" yaml:"content"`
	Order     int            `json:"order" yaml:"order"`
	IsVisible bool           `json:"is_visible" yaml:"is_visible"`
}

// sectionAlias avoids recursion in Section's custom JSON methods
type sectionAlias struct {
	ID        int             `json:"id"`
	ReportID  int             `json:"report_id"`
	Type      SectionType     `json:"type"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	Order     int             `json:"order"`
	IsVisible bool            `json:"is_visible"`
}

// UnmarshalJSON decodes a section, dispatching the content payload on the
// section type.
func (s *Section) UnmarshalJSON(data []byte) error {
	var alias sectionAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	content, err := ParseSectionContent(alias.Type, alias.Content)
	if err != nil {
		return err
	}

	s.ID = alias.ID
	s.ReportID = alias.ReportID
	s.Type = alias.Type
	s.Title = alias.Title
	s.Content = content
	s.Order = alias.Order
	s.IsVisible = alias.IsVisible
	return nil
}

// ParseSectionContent decodes raw JSON into the content variant for the given
// section type. Empty input yields the type's zero payload.
func ParseSectionContent(sectionType SectionType, data []byte) (result0 SectionContent, err error) {
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	switch sectionType {
	case SectionText:
		var c TextContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionStatistics:
		var c StatisticsContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionChart:
		var c ChartContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionMap:
		var c MapContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionTable:
		var c TableContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionImageGallery:
		var c ImageGalleryContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionAssessmentData:
		var c AssessmentDataContent
		err = json.Unmarshal(data, &c)
		return c, err
	case SectionRecommendations:
		var c RecommendationsContent
		err = json.Unmarshal(data, &c)
		return c, err
	default:
		return nil, fmt.Errorf("unknown section type %q", sectionType)
	}
}

// MarshalContentToJSON serializes the section content to a JSON string for persistence
func (s *Section) MarshalContentToJSON() (result0 string, err error) {
	if s.Content == nil {
		return "{}", nil
	}
	data, err := json.Marshal(s.Content)
	return string(data), err
}

// UnmarshalContentFromJSON deserializes a JSON string into the section content
// using the section's type
func (s *Section) UnmarshalContentFromJSON(data string) error {
	content, err := ParseSectionContent(s.Type, []byte(data))
	if err != nil {
		return err
	}
	s.Content = content
	return nil
}

// VisibleSections returns the sections that should appear in exports and the
// public share view: visible only, ascending order, original slice untouched.
func VisibleSections(sections []Section) []Section {
	visible := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.IsVisible {
			visible = append(visible, s)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Order < visible[j].Order
	})
	return visible
}

// ReportExport bundles everything a renderer needs to produce an artifact.
// Sections carries all sections of the report; renderers apply
// VisibleSections themselves.
type ReportExport struct {
	Report           *Report
	Sections         []Section
	OrganizationName string
	AuthorName       string
	Assessments      []Assessment
	GeneratedAt      time.Time
	BrandTitle       string
}
