package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Assessment represents a field assessment attached to a report. Assessment
// rows feed the Assessments sheet of the spreadsheet export and the
// assessment-data sections of the other formats.
type Assessment struct {
	ID             int          `json:"id" db:"id"`
	ReportID       int          `json:"report_id" db:"report_id"`
	Location       string       `json:"location" db:"location"`
	Type           string       `json:"type" db:"type"`
	AffectedPeople int          `json:"affected_people" db:"affected_people"`
	Households     int          `json:"households" db:"households"`
	StartDate      sql.NullTime `json:"start_date" db:"start_date"`
	EndDate        sql.NullTime `json:"end_date" db:"end_date"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// MarshalJSON customizes JSON marshaling for Assessment to handle sql.NullTime properly
func (a Assessment) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID             int        `json:"id"`
		ReportID       int        `json:"report_id"`
		Location       string     `json:"location"`
		Type           string     `json:"type"`
		AffectedPeople int        `json:"affected_people"`
		Households     int        `json:"households"`
		StartDate      *time.Time `json:"start_date"`
		EndDate        *time.Time `json:"end_date"`
		CreatedAt      time.Time  `json:"created_at"`
	}{
		ID:             a.ID,
		ReportID:       a.ReportID,
		Location:       a.Location,
		Type:           a.Type,
		AffectedPeople: a.AffectedPeople,
		Households:     a.Households,
		StartDate:      nullTimeToPointer(a.StartDate),
		EndDate:        nullTimeToPointer(a.EndDate),
		CreatedAt:      a.CreatedAt,
	})
}
