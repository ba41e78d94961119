// Package models defines data structures used throughout the relief reporting application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID             int            `json:"id" yaml:"id"`
	Username       string         `json:"username" yaml:"username"`
	DisplayName    sql.NullString `json:"display_name" yaml:"display_name"`
	Email          sql.NullString `json:"email" yaml:"email"`
	PasswordHash   sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	OrganizationID int            `json:"organization_id" yaml:"organization_id"`
	LastActive     sql.NullTime   `json:"last_active" yaml:"last_active"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"updated_at"`
	Roles          []Role         `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Role represents a role in the system
type Role struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// UserRole represents the mapping between users and roles
type UserRole struct {
	ID        int       `json:"id" yaml:"id"`
	UserID    int       `json:"user_id" yaml:"user_id"`
	RoleID    int       `json:"role_id" yaml:"role_id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Organization represents an organization whose members author and share reports
type Organization struct {
	ID        int       `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString and sql.NullTime properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID             int        `json:"id"`
		Username       string     `json:"username"`
		DisplayName    *string    `json:"display_name"`
		Email          *string    `json:"email"`
		OrganizationID int        `json:"organization_id"`
		LastActive     *time.Time `json:"last_active"`
		CreatedAt      time.Time  `json:"created_at"`
		UpdatedAt      time.Time  `json:"updated_at"`
		Roles          []Role     `json:"roles,omitempty"`
	}{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    nullStringToPointer(u.DisplayName),
		Email:          nullStringToPointer(u.Email),
		OrganizationID: u.OrganizationID,
		LastActive:     nullTimeToPointer(u.LastActive),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		Roles:          u.Roles,
	})
}

// Name returns the user's display name, falling back to the username
func (u *User) Name() string {
	if u.DisplayName.Valid && u.DisplayName.String != "" {
		return u.DisplayName.String
	}
	return u.Username
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// AuditLogEntry records a domain action for the audit trail
type AuditLogEntry struct {
	ID        int                    `json:"id"`
	UserID    int                    `json:"user_id"`
	Action    string                 `json:"action"`
	Entity    string                 `json:"entity"`
	EntityID  int                    `json:"entity_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// MarshalMetadataToJSON serializes the audit metadata to a JSON string for persistence
func (a *AuditLogEntry) MarshalMetadataToJSON() (result0 string, err error) {
	if a.Metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(a.Metadata)
	return string(data), err
}

// UnmarshalMetadataFromJSON deserializes a JSON string into the audit metadata
func (a *AuditLogEntry) UnmarshalMetadataFromJSON(data string) error {
	if data == "" {
		a.Metadata = nil
		return nil
	}
	return json.Unmarshal([]byte(data), &a.Metadata)
}
