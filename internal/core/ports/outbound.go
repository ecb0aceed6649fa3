package ports

import (
	"context"
	"io"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

// DocumentRepository persists document rows and owns the status state machine writes.
// Owner-scoped reads and writes report ErrDocumentNotFound for rows of other owners.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error)
	List(ctx context.Context, ownerID string, filter domain.DocumentFilter) (domain.DocumentPage, error)
	Update(ctx context.Context, ownerID, id string, patch domain.DocumentPatch) (*domain.Document, error)
	Delete(ctx context.Context, ownerID, id string) (storageKey string, err error)
	Stats(ctx context.Context, ownerID string) (domain.DocumentStats, error)
	CountOwned(ctx context.Context, ownerID string, ids []string) (int, error)
	ListByTypes(ctx context.Context, ownerID string, types []domain.DocumentType) ([]domain.Document, error)

	// ApplyClassification writes the update only while the row is still PROCESSING.
	ApplyClassification(ctx context.Context, id string, update domain.ClassificationUpdate) (*domain.Document, error)
	// SweepStatuses runs the expired, expiring-soon and current rules in one transaction.
	SweepStatuses(ctx context.Context, window domain.SweepWindow) (domain.SweepResult, error)
	ListStaleProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Document, error)
}

type FolderRepository interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Folder, error)
	List(ctx context.Context, ownerID string) ([]domain.Folder, error)
	Rename(ctx context.Context, ownerID, id, name string) (*domain.Folder, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type ShareRepository interface {
	Create(ctx context.Context, share *domain.DocumentShare) error
	ListForDocument(ctx context.Context, ownerID, documentID string) ([]domain.DocumentShare, error)
	Revoke(ctx context.Context, ownerID, token string) error
	// Resolve counts one access and returns the shared view for an unexpired token.
	Resolve(ctx context.Context, token string, now time.Time) (*domain.SharedDocumentView, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	List(ctx context.Context, ownerID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string) error
	MarkAllRead(ctx context.Context, ownerID string) (int64, error)
}

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *domain.WorkflowInstance) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.WorkflowInstance, error)
	List(ctx context.Context, ownerID string) ([]domain.WorkflowInstance, error)
	Save(ctx context.Context, workflow *domain.WorkflowInstance) error
}

type WorkflowCatalog interface {
	Templates() []domain.WorkflowTemplate
	Template(id string) (domain.WorkflowTemplate, bool)
}

type AuditLog interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// ObjectStorage stores uploaded files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Locate returns the location the classification service reads the file from.
	Locate(key string) string
}

// ClassificationQueue hands classification tasks from ingestion to workers.
type ClassificationQueue interface {
	PublishClassification(ctx context.Context, task domain.ClassificationTask) error
	SubscribeClassification(ctx context.Context, handler func(context.Context, domain.ClassificationTask) error) error
}

// DocumentClassifier calls the external classification service.
type DocumentClassifier interface {
	Classify(ctx context.Context, documentID, fileLocation string) (domain.ClassificationResult, error)
}

// Notifier delivers user notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification)
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

// ClassificationObserver and SweepObserver receive metrics events.
type ClassificationObserver interface {
	ObserveClassification(outcome domain.OutcomeKind, duration, queueLag time.Duration)
}

type SweepObserver interface {
	ObserveSweep(result domain.SweepResult, duration time.Duration, err error)
}
