package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

const maxQueryLength = 200

type DocumentService struct {
	repo    ports.DocumentRepository
	folders ports.FolderRepository
	storage ports.ObjectStorage
	audit   ports.AuditLog
	clock   domain.Clock
	logger  *slog.Logger
}

func NewDocumentService(
	repo ports.DocumentRepository,
	folders ports.FolderRepository,
	storage ports.ObjectStorage,
	audit ports.AuditLog,
	clock domain.Clock,
	logger *slog.Logger,
) *DocumentService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		repo:    repo,
		folders: folders,
		storage: storage,
		audit:   audit,
		clock:   clock,
		logger:  logger,
	}
}

func (s *DocumentService) Get(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

func (s *DocumentService) List(ctx context.Context, ownerID string, filter domain.DocumentFilter) (domain.DocumentPage, error) {
	filter = filter.Normalize()
	if err := validateFilter(&filter); err != nil {
		return domain.DocumentPage{}, domain.WrapError(domain.ErrInvalidInput, "validate document filter", err)
	}
	return s.repo.List(ctx, ownerID, filter)
}

// Update applies a user patch. Status and classification confidence are not user-editable.
func (s *DocumentService) Update(ctx context.Context, ownerID, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	if patch.IsEmpty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update document", fmt.Errorf("no fields to update"))
	}
	if err := validatePatch(&patch); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate document patch", err)
	}
	if patch.FolderID != nil && *patch.FolderID != "" {
		if _, err := s.folders.GetByID(ctx, ownerID, *patch.FolderID); err != nil {
			return nil, err
		}
	}
	if patch.Tags != nil {
		tags := normalizeTags(*patch.Tags)
		patch.Tags = &tags
	}

	doc, err := s.repo.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, ownerID, "document.update", id)
	return doc, nil
}

// Delete removes the file before the row so a failed file delete leaves the
// document in place for a retry. A file that is already gone is not an error.
func (s *DocumentService) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
	defer cancel()
	if err := s.storage.Delete(deleteCtx, doc.StorageKey); err != nil {
		s.logger.Error("document_blob_delete_failed", "document_id", id, "storage_key", doc.StorageKey, "error", err)
		return fmt.Errorf("delete document file: %w", err)
	}
	if _, err := s.repo.Delete(deleteCtx, ownerID, id); err != nil {
		return err
	}
	s.recordAudit(ctx, ownerID, "document.delete", id)
	return nil
}

func (s *DocumentService) Open(ctx context.Context, ownerID, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	s.recordAudit(ctx, ownerID, "document.download", id)
	return doc, body, nil
}

func (s *DocumentService) Stats(ctx context.Context, ownerID string) (domain.DocumentStats, error) {
	return s.repo.Stats(ctx, ownerID)
}

func (s *DocumentService) recordAudit(ctx context.Context, ownerID, action, documentID string) {
	if s.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		OwnerID:      ownerID,
		Action:       action,
		ResourceType: "document",
		ResourceID:   documentID,
		CreatedAt:    s.clock.Now(),
	}
	if meta, ok := RequestMetaFrom(ctx); ok {
		entry.IPAddress = meta.IPAddress
		entry.UserAgent = meta.UserAgent
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit_record_failed", "action", action, "resource_id", documentID, "error", err)
	}
}

func validateFilter(filter *domain.DocumentFilter) error {
	return validation.ValidateStruct(filter,
		validation.Field(&filter.Query, validation.Length(0, maxQueryLength)),
		validation.Field(&filter.Category, validation.By(func(value interface{}) error {
			if c := value.(domain.DocumentCategory); c != "" && !c.Valid() {
				return fmt.Errorf("unknown category %q", c)
			}
			return nil
		})),
		validation.Field(&filter.DocumentType, validation.By(func(value interface{}) error {
			if t := value.(domain.DocumentType); t != "" && !t.Valid() {
				return fmt.Errorf("unknown document type %q", t)
			}
			return nil
		})),
		validation.Field(&filter.Status, validation.By(func(value interface{}) error {
			if st := value.(domain.DocumentStatus); st != "" && !st.Valid() {
				return fmt.Errorf("unknown status %q", st)
			}
			return nil
		})),
	)
}

func validatePatch(patch *domain.DocumentPatch) error {
	return validation.ValidateStruct(patch,
		validation.Field(&patch.Tags, validation.By(func(value interface{}) error {
			tags, _ := value.(*[]string)
			if tags == nil {
				return nil
			}
			return validation.Validate(*tags,
				validation.Length(0, maxTags),
				validation.Each(validation.Length(1, maxTagLength)),
			)
		})),
		validation.Field(&patch.DocumentType, validation.By(func(value interface{}) error {
			if t, _ := value.(*domain.DocumentType); t != nil && !t.Valid() {
				return fmt.Errorf("unknown document type %q", *t)
			}
			return nil
		})),
		validation.Field(&patch.Category, validation.By(func(value interface{}) error {
			if c, _ := value.(*domain.DocumentCategory); c != nil && !c.Valid() {
				return fmt.Errorf("unknown category %q", *c)
			}
			return nil
		})),
	)
}
