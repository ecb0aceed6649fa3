package domain

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusProcessing   DocumentStatus = "PROCESSING"
	StatusCurrent      DocumentStatus = "CURRENT"
	StatusExpiringSoon DocumentStatus = "EXPIRING_SOON"
	StatusExpired      DocumentStatus = "EXPIRED"
)

var documentStatuses = []DocumentStatus{StatusProcessing, StatusCurrent, StatusExpiringSoon, StatusExpired}

func (s DocumentStatus) Valid() bool {
	for _, known := range documentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseDocumentStatus reports false for anything outside the four persisted statuses.
func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	status := DocumentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", false
	}
	return status, true
}

type Document struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"ownerId"`
	FileName     string           `json:"fileName"`
	OriginalName string           `json:"originalName"`
	MimeType     string           `json:"mimeType"`
	FileSize     int64            `json:"fileSize"`
	StorageKey   string           `json:"storageKey"`
	Status       DocumentStatus   `json:"status"`
	Metadata     DocumentMetadata `json:"metadata"`
	FolderID     *string          `json:"folderId,omitempty"`
	IsStarred    bool             `json:"isStarred"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type DocumentMetadata struct {
	DocumentType             DocumentType      `json:"documentType,omitempty"`
	Category                 DocumentCategory  `json:"category,omitempty"`
	IssueDate                *Date             `json:"issueDate,omitempty"`
	ExpiryDate               *Date             `json:"expiryDate,omitempty"`
	IssuingAuthority         string            `json:"issuingAuthority,omitempty"`
	DocumentNumber           string            `json:"documentNumber,omitempty"`
	HolderName               string            `json:"holderName,omitempty"`
	Tags                     []string          `json:"tags"`
	ExtractedFields          map[string]string `json:"extractedFields"`
	ClassificationConfidence *float64          `json:"classificationConfidence,omitempty"`
}

// ApplyReadDefaults reports a document that left PROCESSING without a
// classification as OTHER.
func (d *Document) ApplyReadDefaults() {
	if d.Status == StatusProcessing {
		return
	}
	if d.Metadata.DocumentType == "" {
		d.Metadata.DocumentType = TypeOther
	}
	if d.Metadata.Category == "" {
		d.Metadata.Category = CategoryOther
	}
}

// DocumentPatch carries the user-editable fields of a document. Nil means untouched.
// An empty FolderID detaches the document from its folder.
type DocumentPatch struct {
	Tags         *[]string
	IsStarred    *bool
	FolderID     *string
	DocumentType *DocumentType
	Category     *DocumentCategory
}

func (p DocumentPatch) IsEmpty() bool {
	return p.Tags == nil && p.IsStarred == nil && p.FolderID == nil && p.DocumentType == nil && p.Category == nil
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type DocumentFilter struct {
	Query        string
	Category     DocumentCategory
	DocumentType DocumentType
	Status       DocumentStatus
	IsStarred    *bool
	FolderID     string
	Page         int
	Limit        int
}

func (f DocumentFilter) Normalize() DocumentFilter {
	out := f
	out.Query = strings.TrimSpace(out.Query)
	if out.Page < 1 {
		out.Page = 1
	}
	if out.Limit <= 0 {
		out.Limit = DefaultPageLimit
	}
	if out.Limit > MaxPageLimit {
		out.Limit = MaxPageLimit
	}
	return out
}

func (f DocumentFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type DocumentPage struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
}

type DocumentStats struct {
	Total        int64 `json:"total"`
	Current      int64 `json:"current"`
	ExpiringSoon int64 `json:"expiringSoon"`
	Expired      int64 `json:"expired"`
	Processing   int64 `json:"processing"`
}
