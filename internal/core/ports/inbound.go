package ports

import (
	"context"
	"io"

	"github.com/docudex/docudex-api/internal/core/domain"
)

// DocumentIngestor is the inbound contract for upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, input domain.UploadInput) (*domain.Document, error)
	UploadBulk(ctx context.Context, inputs []domain.UploadInput) ([]domain.BulkUploadResult, error)
}

// DocumentService is the inbound read/write model for owned documents.
type DocumentService interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Document, error)
	List(ctx context.Context, ownerID string, filter domain.DocumentFilter) (domain.DocumentPage, error)
	Update(ctx context.Context, ownerID, id string, patch domain.DocumentPatch) (*domain.Document, error)
	Delete(ctx context.Context, ownerID, id string) error
	Open(ctx context.Context, ownerID, id string) (*domain.Document, io.ReadCloser, error)
	Stats(ctx context.Context, ownerID string) (domain.DocumentStats, error)
}

// ClassificationApplier consumes classification tasks. It never fails the caller.
type ClassificationApplier interface {
	Apply(ctx context.Context, task domain.ClassificationTask) domain.ClassificationOutcome
}

// AdHocClassifier classifies a stored file without touching its document row.
type AdHocClassifier interface {
	Classify(ctx context.Context, storageKey string) (domain.ClassificationResult, error)
}

type StatusSweeper interface {
	Run(ctx context.Context) (domain.SweepResult, error)
}

type FolderService interface {
	List(ctx context.Context, ownerID string) ([]domain.Folder, error)
	Create(ctx context.Context, ownerID, name string, parentID *string) (*domain.Folder, error)
	Rename(ctx context.Context, ownerID, id, name string) (*domain.Folder, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type ShareService interface {
	Create(ctx context.Context, input domain.ShareInput) (*domain.ShareLink, error)
	ListForDocument(ctx context.Context, ownerID, documentID string) ([]domain.DocumentShare, error)
	Revoke(ctx context.Context, ownerID, token string) error
	Resolve(ctx context.Context, token string) (*domain.SharedDocumentView, error)
}

type NotificationService interface {
	List(ctx context.Context, ownerID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string) error
	MarkAllRead(ctx context.Context, ownerID string) (int64, error)
}

type WorkflowService interface {
	ListTemplates(ctx context.Context) []domain.WorkflowTemplate
	GetTemplate(ctx context.Context, id string) (domain.WorkflowTemplate, error)
	List(ctx context.Context, ownerID string) ([]domain.WorkflowInstance, error)
	Start(ctx context.Context, ownerID, templateID string) (*domain.WorkflowInstance, error)
	Get(ctx context.Context, ownerID, id string) (*domain.WorkflowInstance, error)
	Update(ctx context.Context, ownerID, id string, patch domain.WorkflowPatch) (*domain.WorkflowInstance, error)
	Checklist(ctx context.Context, ownerID, id string) (domain.WorkflowChecklist, error)
}
