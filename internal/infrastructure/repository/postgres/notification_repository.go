package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (id, user_id, type, title, message, is_read, document_id, workflow_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, n.ID, n.OwnerID, string(n.Type), n.Title, n.Message, n.IsRead, n.DocumentID, n.WorkflowID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, ownerID string, limit int) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, type, title, message, is_read, document_id, workflow_id, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2
`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		var kind string
		var documentID, workflowID sql.NullString
		if err := rows.Scan(
			&n.ID, &n.OwnerID, &kind, &n.Title, &n.Message, &n.IsRead, &documentID, &workflowID, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = domain.NotificationType(kind)
		if documentID.Valid {
			n.DocumentID = &documentID.String
		}
		if workflowID.Valid {
			n.WorkflowID = &workflowID.String
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, ownerID, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET is_read = true
WHERE user_id = $1 AND id = $2
`, ownerID, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, err := rowsAffected(result, "mark notification read")
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.WrapError(domain.ErrNotificationNotFound, "mark notification read", errors.New("id="+id))
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET is_read = true
WHERE user_id = $1 AND is_read = false
`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return rowsAffected(result, "mark all notifications read")
}
