package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	metadataJSON, err := marshalJSON(entry.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO audit_logs (user_id, action, resource_type, resource_id, ip_address, user_agent, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		nullString(entry.OwnerID), entry.Action, entry.ResourceType, nullString(entry.ResourceID),
		nullString(entry.IPAddress), nullString(entry.UserAgent), metadataJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
