package domain

import "time"

type NotificationType string

const (
	NotificationDocumentExpiring     NotificationType = "DOCUMENT_EXPIRING"
	NotificationDocumentExpired      NotificationType = "DOCUMENT_EXPIRED"
	NotificationWorkflowStatusChange NotificationType = "WORKFLOW_STATUS_CHANGE"
	NotificationDocumentProcessed    NotificationType = "DOCUMENT_PROCESSED"
	NotificationSystem               NotificationType = "SYSTEM"
)

// NotificationListLimit caps how many notifications a listing returns, newest first.
const NotificationListLimit = 50

type Notification struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"ownerId"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	IsRead     bool             `json:"isRead"`
	DocumentID *string          `json:"documentId,omitempty"`
	WorkflowID *string          `json:"workflowId,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}
