package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"reliefapp/internal/config"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// ShareServiceInterface defines the interface for share link operations
type ShareServiceInterface interface {
	IssueShareToken(ctx context.Context, orgID, reportID int) (string, error)
	RotateShareToken(ctx context.Context, orgID, reportID int) (string, error)
	RevokeShareToken(ctx context.Context, orgID, reportID int) error
	ResolveShareToken(ctx context.Context, token string) (*models.Report, error)
}

// ShareService manages public share links for reports. Tokens are opaque
// 32-character hex strings; resolution failures are indistinguishable from a
// missing report so tokens cannot be probed.
type ShareService struct {
	db     *sql.DB
	config *config.Config
	logger *observability.Logger
}

// NewShareService creates a new ShareService instance
func NewShareService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ShareService {
	if db == nil {
		panic("ShareService requires a valid database connection")
	}
	return &ShareService{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// generateShareToken returns 32 hex characters from a CSPRNG
func generateShareToken() (result0 string, err error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", contextutils.WrapErrorf(err, "failed to generate share token")
	}
	return hex.EncodeToString(buf), nil
}

// IssueShareToken makes the report publicly reachable and returns its share
// token. Issuing is idempotent: a report that already has a token keeps it.
func (s *ShareService) IssueShareToken(ctx context.Context, orgID, reportID int) (result0 string, err error) {
	ctx, span := observability.TraceShareFunction(ctx, "IssueShareToken",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	var existing sql.NullString
	err = s.db.QueryRowContext(ctx,
		"SELECT share_token FROM reports WHERE id = $1 AND organization_id = $2",
		reportID, orgID).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", contextutils.ErrReportNotFound
		}
		return "", contextutils.WrapErrorf(err, "failed to look up share token")
	}

	if existing.Valid && existing.String != "" {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE reports SET is_public = TRUE, updated_at = NOW() WHERE id = $1", reportID); err != nil {
			return "", contextutils.WrapErrorf(err, "failed to re-enable share link")
		}
		return strings.TrimSpace(existing.String), nil
	}

	token, err := generateShareToken()
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE reports SET share_token = $1, is_public = TRUE, updated_at = NOW() WHERE id = $2",
		token, reportID); err != nil {
		return "", contextutils.WrapErrorf(err, "failed to store share token")
	}

	s.logger.Info(ctx, "Share link issued", map[string]interface{}{
		"report_id": reportID,
		"token":     contextutils.MaskToken(token),
	})
	return token, nil
}

// RotateShareToken replaces the report's token, invalidating the old link
func (s *ShareService) RotateShareToken(ctx context.Context, orgID, reportID int) (result0 string, err error) {
	ctx, span := observability.TraceShareFunction(ctx, "RotateShareToken",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	token, err := generateShareToken()
	if err != nil {
		return "", err
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE reports SET share_token = $1, is_public = TRUE, updated_at = NOW() WHERE id = $2 AND organization_id = $3",
		token, reportID, orgID)
	if err != nil {
		return "", contextutils.WrapErrorf(err, "failed to rotate share token")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", contextutils.WrapErrorf(err, "failed to check rotation result")
	}
	if affected == 0 {
		return "", contextutils.ErrReportNotFound
	}

	s.logger.Info(ctx, "Share link rotated", map[string]interface{}{
		"report_id": reportID,
		"token":     contextutils.MaskToken(token),
	})
	return token, nil
}

// RevokeShareToken withdraws the public link entirely
func (s *ShareService) RevokeShareToken(ctx context.Context, orgID, reportID int) (err error) {
	ctx, span := observability.TraceShareFunction(ctx, "RevokeShareToken",
		observability.AttributeOrganizationID(orgID),
		observability.AttributeReportID(reportID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		"UPDATE reports SET share_token = NULL, is_public = FALSE, updated_at = NOW() WHERE id = $1 AND organization_id = $2",
		reportID, orgID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to revoke share token")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check revoke result")
	}
	if affected == 0 {
		return contextutils.ErrReportNotFound
	}
	return nil
}

// ResolveShareToken returns the report behind a public share link, with its
// sections loaded. Unknown tokens, revoked links, and malformed input all
// return ErrShareTokenInvalid, which surfaces as a plain not-found.
func (s *ShareService) ResolveShareToken(ctx context.Context, token string) (result0 *models.Report, err error) {
	ctx, span := observability.TraceShareFunction(ctx, "ResolveShareToken")
	defer observability.FinishSpan(span, &err)

	token = strings.TrimSpace(token)
	if len(token) != 32 {
		return nil, contextutils.ErrShareTokenInvalid
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE share_token = $1 AND is_public = TRUE",
		token)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrShareTokenInvalid
		}
		return nil, contextutils.WrapErrorf(err, "failed to resolve share token")
	}
	// CHAR(32) columns come back space-padded under some drivers
	if strings.TrimSpace(report.ShareToken.String) != token {
		return nil, contextutils.ErrShareTokenInvalid
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, type, title, content, section_order, is_visible
		FROM sections
		WHERE report_id = $1
		ORDER BY section_order ASC, id ASC`, report.ID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to load shared sections")
	}
	defer func() { _ = rows.Close() }()

	var sections []models.Section
	for rows.Next() {
		var section models.Section
		var content string
		if err := rows.Scan(&section.ID, &section.ReportID, &section.Type, &section.Title,
			&content, &section.Order, &section.IsVisible); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan shared section")
		}
		if err := section.UnmarshalContentFromJSON(content); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to decode shared section content")
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read shared sections")
	}

	// the public view never includes hidden sections
	report.Sections = models.VisibleSections(sections)
	return report, nil
}
