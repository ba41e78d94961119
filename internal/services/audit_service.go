package services

import (
	"context"
	"database/sql"

	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// AuditServiceInterface defines the interface for the audit trail
type AuditServiceInterface interface {
	Record(ctx context.Context, entry *models.AuditLogEntry) error
	ListForEntity(ctx context.Context, entity string, entityID, limit int) ([]models.AuditLogEntry, error)
}

// AuditService persists domain actions for later review
type AuditService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db *sql.DB, logger *observability.Logger) *AuditService {
	if db == nil {
		panic("AuditService requires a valid database connection")
	}
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// Record writes one audit entry
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLogEntry) (err error) {
	ctx, span := observability.TraceAuditFunction(ctx, "Record",
		observability.AttributeUserID(entry.UserID),
	)
	defer observability.FinishSpan(span, &err)

	metadata, err := entry.MarshalMetadataToJSON()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to encode audit metadata")
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.UserID, entry.Action, entry.Entity, entry.EntityID, metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to record audit entry")
	}
	return nil
}

// ListForEntity returns the most recent audit entries for one entity
func (s *AuditService) ListForEntity(ctx context.Context, entity string, entityID, limit int) (result0 []models.AuditLogEntry, err error) {
	ctx, span := observability.TraceAuditFunction(ctx, "ListForEntity",
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action, entity, entity_id, metadata, created_at
		FROM audit_logs
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, entity, entityID, limit)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to list audit entries")
	}
	defer func() { _ = rows.Close() }()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		var metadata string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Entity,
			&entry.EntityID, &metadata, &entry.CreatedAt); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan audit entry")
		}
		if err := entry.UnmarshalMetadataFromJSON(metadata); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to decode audit metadata")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
