package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

const (
	maxOriginalNameLength = 255
	maxTags               = 20
	maxTagLength          = 50
	maxExtensionLength    = 10
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.ClassificationQueue
	audit   ports.AuditLog
	clock   domain.Clock
	logger  *slog.Logger
	limits  domain.IngestLimits
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.ClassificationQueue,
	audit ports.AuditLog,
	clock domain.Clock,
	logger *slog.Logger,
	limits domain.IngestLimits,
) *IngestDocumentUseCase {
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = domain.DefaultMaxFileSize
	}
	if limits.MaxBulkFiles <= 0 {
		limits.MaxBulkFiles = domain.DefaultMaxBulkFiles
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		audit:   audit,
		clock:   clock,
		logger:  logger,
		limits:  limits,
	}
}

// Upload stores the file, creates the PROCESSING row and schedules classification.
// It returns as soon as the row exists; classification happens asynchronously.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, input domain.UploadInput) (*domain.Document, error) {
	if err := uc.validate(&input); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload", err)
	}

	id := uuid.NewString()
	storageKey := id + storageExtension(input.OriginalName)
	now := uc.clock.Now()

	written, err := uc.storage.Save(ctx, storageKey, io.LimitReader(input.Body, uc.limits.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if written > uc.limits.MaxFileSize {
		uc.discardBlob(ctx, storageKey)
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"validate upload",
			fmt.Errorf("file exceeds %d bytes", uc.limits.MaxFileSize),
		)
	}

	doc := &domain.Document{
		ID:           id,
		OwnerID:      input.OwnerID,
		FileName:     storageKey,
		OriginalName: input.OriginalName,
		MimeType:     input.MimeType,
		FileSize:     written,
		StorageKey:   storageKey,
		Status:       domain.StatusProcessing,
		Metadata: domain.DocumentMetadata{
			Tags:            normalizeTags(input.Tags),
			ExtractedFields: map[string]string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		uc.discardBlob(ctx, storageKey)
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	task := domain.ClassificationTask{DocumentID: doc.ID, StorageKey: storageKey, EnqueuedAt: now}
	if err := uc.queue.PublishClassification(ctx, task); err != nil {
		uc.logger.Error("classification_enqueue_failed", "document_id", doc.ID, "error", err)
		uc.applyFallback(ctx, doc, err)
	}

	uc.recordAudit(ctx, doc)
	return doc, nil
}

// UploadBulk runs each upload independently; one failed file does not affect the others.
func (uc *IngestDocumentUseCase) UploadBulk(ctx context.Context, inputs []domain.UploadInput) ([]domain.BulkUploadResult, error) {
	if len(inputs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate bulk upload", errors.New("no files provided"))
	}
	if len(inputs) > uc.limits.MaxBulkFiles {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"validate bulk upload",
			fmt.Errorf("at most %d files per request", uc.limits.MaxBulkFiles),
		)
	}

	results := make([]domain.BulkUploadResult, 0, len(inputs))
	for _, input := range inputs {
		result := domain.BulkUploadResult{OriginalName: input.OriginalName}
		doc, err := uc.Upload(ctx, input)
		switch {
		case err == nil:
			result.Document = doc
		case domain.IsKind(err, domain.ErrInvalidInput):
			result.Error = err.Error()
		default:
			uc.logger.Error("bulk_upload_item_failed", "owner_id", input.OwnerID, "original_name", input.OriginalName, "error", err)
			result.Error = "upload failed"
		}
		results = append(results, result)
	}
	return results, nil
}

func (uc *IngestDocumentUseCase) validate(input *domain.UploadInput) error {
	input.OriginalName = strings.TrimSpace(input.OriginalName)
	input.MimeType = strings.ToLower(strings.TrimSpace(input.MimeType))

	return validation.ValidateStruct(input,
		validation.Field(&input.OwnerID, validation.Required),
		validation.Field(&input.OriginalName,
			validation.Required,
			validation.Length(1, maxOriginalNameLength),
		),
		validation.Field(&input.MimeType,
			validation.Required,
			validation.NewStringRule(domain.IsAllowedMimeType, "file type is not allowed"),
		),
		validation.Field(&input.Size, validation.Min(int64(0)), validation.Max(uc.limits.MaxFileSize)),
		validation.Field(&input.Tags,
			validation.Length(0, maxTags),
			validation.Each(validation.Length(1, maxTagLength)),
		),
		validation.Field(&input.Body, validation.NotNil),
	)
}

// applyFallback moves the row out of PROCESSING when no worker will ever see the task.
func (uc *IngestDocumentUseCase) applyFallback(ctx context.Context, doc *domain.Document, cause error) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
	defer cancel()

	update := domain.InternalErrorOutcome(doc.ID, cause).Update()
	updated, err := uc.repo.ApplyClassification(writeCtx, doc.ID, update)
	if err != nil {
		uc.logger.Error("classification_fallback_failed", "document_id", doc.ID, "error", err)
		return
	}
	*doc = *updated
}

func (uc *IngestDocumentUseCase) discardBlob(ctx context.Context, storageKey string) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
	defer cancel()
	if err := uc.storage.Delete(deleteCtx, storageKey); err != nil {
		uc.logger.Warn("orphan_blob_cleanup_failed", "storage_key", storageKey, "error", err)
	}
}

func (uc *IngestDocumentUseCase) recordAudit(ctx context.Context, doc *domain.Document) {
	if uc.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		OwnerID:      doc.OwnerID,
		Action:       "document.upload",
		ResourceType: "document",
		ResourceID:   doc.ID,
		Metadata:     map[string]string{"originalName": doc.OriginalName, "mimeType": doc.MimeType},
		CreatedAt:    uc.clock.Now(),
	}
	if meta, ok := RequestMetaFrom(ctx); ok {
		entry.IPAddress = meta.IPAddress
		entry.UserAgent = meta.UserAgent
	}
	if err := uc.audit.Record(ctx, entry); err != nil {
		uc.logger.Warn("audit_record_failed", "action", entry.Action, "resource_id", doc.ID, "error", err)
	}
}

// storageExtension keeps the original extension when it is short and alphanumeric.
func storageExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > maxExtensionLength {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

const defaultWriteTimeout = 10 * time.Second
