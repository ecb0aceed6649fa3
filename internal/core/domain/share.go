package domain

import "time"

const (
	DefaultShareExpiryHours = 72
	MaxShareExpiryHours     = 720
)

type DocumentShare struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"documentId"`
	OwnerID        string    `json:"ownerId"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expiresAt"`
	RecipientEmail *string   `json:"recipientEmail,omitempty"`
	AccessCount    int       `json:"accessCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SharedDocumentView is the public projection behind a share token.
type SharedDocumentView struct {
	DocumentName string         `json:"documentName"`
	MimeType     string         `json:"mimeType"`
	FileSize     int64          `json:"fileSize"`
	Status       DocumentStatus `json:"status"`
	DocumentType DocumentType   `json:"documentType"`
	HolderName   string         `json:"holderName,omitempty"`
	ExpiryDate   *Date          `json:"expiryDate,omitempty"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

type ShareInput struct {
	OwnerID        string
	DocumentID     string
	ExpiresInHours int
	RecipientEmail *string
}

type ShareLink struct {
	Token     string    `json:"token"`
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}
