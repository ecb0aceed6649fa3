package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type ShareRepository struct {
	db *sql.DB
}

func NewShareRepository(db *sql.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(ctx context.Context, share *domain.DocumentShare) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_shares (id, document_id, user_id, token, expires_at, recipient_email, access_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, share.ID, share.DocumentID, share.OwnerID, share.Token, share.ExpiresAt, share.RecipientEmail, share.AccessCount, share.CreatedAt)
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

func (r *ShareRepository) ListForDocument(ctx context.Context, ownerID, documentID string) ([]domain.DocumentShare, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, user_id, token, expires_at, recipient_email, access_count, created_at
FROM document_shares
WHERE user_id = $1 AND document_id = $2
ORDER BY created_at DESC
`, ownerID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentShare, 0)
	for rows.Next() {
		var share domain.DocumentShare
		var recipient sql.NullString
		if err := rows.Scan(
			&share.ID, &share.DocumentID, &share.OwnerID, &share.Token,
			&share.ExpiresAt, &recipient, &share.AccessCount, &share.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		if recipient.Valid {
			share.RecipientEmail = &recipient.String
		}
		out = append(out, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return out, nil
}

func (r *ShareRepository) Revoke(ctx context.Context, ownerID, token string) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM document_shares
WHERE user_id = $1 AND token = $2
`, ownerID, token)
	if err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}
	n, err := rowsAffected(result, "revoke share")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.WrapError(domain.ErrShareNotFound, "revoke share", errors.New("no matching share"))
	}
	return nil
}

// Resolve bumps the access counter and reads the shared document in one statement.
func (r *ShareRepository) Resolve(ctx context.Context, token string, now time.Time) (*domain.SharedDocumentView, error) {
	row := r.db.QueryRowContext(ctx, `
WITH hit AS (
	UPDATE document_shares
	SET access_count = access_count + 1
	WHERE token = $1 AND expires_at > $2
	RETURNING document_id, expires_at
)
SELECT d.original_name, d.mime_type, d.file_size, d.status, d.document_type, d.holder_name, d.expiry_date, hit.expires_at
FROM hit
JOIN documents d ON d.id = hit.document_id
`, token, now)

	var view domain.SharedDocumentView
	var status string
	var docType, holder sql.NullString
	var expiry sql.NullTime
	err := row.Scan(
		&view.DocumentName, &view.MimeType, &view.FileSize, &status,
		&docType, &holder, &expiry, &view.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrShareNotFound, "resolve share", errors.New("unknown or expired token"))
		}
		return nil, fmt.Errorf("resolve share: %w", err)
	}
	view.Status = domain.DocumentStatus(status)
	view.DocumentType = domain.DocumentType(docType.String)
	if view.DocumentType == "" && view.Status != domain.StatusProcessing {
		view.DocumentType = domain.TypeOther
	}
	view.HolderName = holder.String
	if expiry.Valid {
		d := domain.DateOf(expiry.Time)
		view.ExpiryDate = &d
	}
	return &view, nil
}
