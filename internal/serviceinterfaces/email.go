// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"reliefapp/internal/models"
)

// EmailService defines the interface for email functionality
type EmailService interface {
	// SendShareLinkEmail sends a report share link to a recipient
	SendShareLinkEmail(ctx context.Context, to string, report *models.Report, shareURL, senderName string) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}
