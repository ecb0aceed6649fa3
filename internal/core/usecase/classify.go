package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

var errServiceReportedFailure = errors.New("classification service reported processing failure")

type ClassificationUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	classifier ports.DocumentClassifier
	notifier   ports.Notifier
	observer   ports.ClassificationObserver
	clock      domain.Clock
	logger     *slog.Logger
	limits     domain.ClassificationLimits
}

func NewClassificationUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	classifier ports.DocumentClassifier,
	notifier ports.Notifier,
	observer ports.ClassificationObserver,
	clock domain.Clock,
	logger *slog.Logger,
	limits domain.ClassificationLimits,
) *ClassificationUseCase {
	if limits.ProcessTimeout <= 0 {
		limits.ProcessTimeout = 2 * time.Minute
	}
	if limits.ClassifyTimeout <= 0 {
		limits.ClassifyTimeout = 60 * time.Second
	}
	if limits.WriteTimeout <= 0 {
		limits.WriteTimeout = defaultWriteTimeout
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if observer == nil {
		observer = noopClassificationObserver{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationUseCase{
		repo:       repo,
		storage:    storage,
		classifier: classifier,
		notifier:   notifier,
		observer:   observer,
		clock:      clock,
		logger:     logger,
		limits:     limits,
	}
}

// Apply classifies the task's file and writes the result. Every path ends with the
// row in CURRENT; failures are logged and reported through the returned outcome.
func (uc *ClassificationUseCase) Apply(ctx context.Context, task domain.ClassificationTask) domain.ClassificationOutcome {
	started := uc.clock.Now()
	outcome := uc.classify(ctx, task)
	if outcome.Kind == domain.OutcomeServiceFailure {
		uc.logger.Warn("classification_service_failed", "document_id", task.DocumentID, "error", outcome.Err)
	}

	doc, err := uc.write(ctx, task.DocumentID, outcome.Update())
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		uc.logger.Info("classification_skipped", "document_id", task.DocumentID, "reason", "not processing")
		return outcome
	default:
		uc.logger.Error("classification_write_failed", "document_id", task.DocumentID, "outcome", outcome.Kind, "error", err)
		outcome = domain.InternalErrorOutcome(task.DocumentID, err)
		doc, err = uc.write(ctx, task.DocumentID, outcome.Update())
		if err != nil {
			uc.logger.Error("classification_fallback_failed", "document_id", task.DocumentID, "error", err)
		}
	}

	finished := uc.clock.Now()
	uc.observer.ObserveClassification(outcome.Kind, finished.Sub(started), queueLag(task, started))
	uc.logger.Info("classification_applied",
		"document_id", task.DocumentID,
		"outcome", outcome.Kind,
		"duration_ms", finished.Sub(started).Milliseconds(),
	)
	if doc != nil {
		uc.notifyProcessed(ctx, doc, outcome)
	}
	return outcome
}

// Classify runs an ad-hoc classification of a stored file. Nothing is persisted.
func (uc *ClassificationUseCase) Classify(ctx context.Context, storageKey string) (domain.ClassificationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.limits.ClassifyTimeout)
	defer cancel()

	result, err := uc.classifier.Classify(callCtx, "", uc.storage.Locate(storageKey))
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrTemporary, "classify document", err)
	}
	return result, nil
}

func (uc *ClassificationUseCase) classify(ctx context.Context, task domain.ClassificationTask) (outcome domain.ClassificationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.InternalErrorOutcome(task.DocumentID, fmt.Errorf("classifier panic: %v", r))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, uc.limits.ProcessTimeout)
	defer cancel()

	result, err := uc.classifier.Classify(callCtx, task.DocumentID, uc.storage.Locate(task.StorageKey))
	if err != nil {
		return domain.ServiceFailureOutcome(task.DocumentID, err)
	}
	if result.ProcessingStatus == domain.ProcessingFailed {
		return domain.ServiceFailureOutcome(task.DocumentID, errServiceReportedFailure)
	}
	return domain.SuccessOutcome(task.DocumentID, result)
}

// write detaches from the caller's cancellation so shutdown cannot strand a row in PROCESSING.
func (uc *ClassificationUseCase) write(ctx context.Context, documentID string, update domain.ClassificationUpdate) (*domain.Document, error) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.limits.WriteTimeout)
	defer cancel()
	return uc.repo.ApplyClassification(writeCtx, documentID, update)
}

func (uc *ClassificationUseCase) notifyProcessed(ctx context.Context, doc *domain.Document, outcome domain.ClassificationOutcome) {
	message := fmt.Sprintf("%s is ready.", doc.OriginalName)
	if outcome.Kind == domain.OutcomeSuccess && doc.Metadata.DocumentType != "" {
		message = fmt.Sprintf("%s was classified as %s.", doc.OriginalName, doc.Metadata.DocumentType)
	}
	documentID := doc.ID
	uc.notifier.Notify(context.WithoutCancel(ctx), domain.Notification{
		OwnerID:    doc.OwnerID,
		Type:       domain.NotificationDocumentProcessed,
		Title:      "Document processed",
		Message:    message,
		DocumentID: &documentID,
	})
}

func queueLag(task domain.ClassificationTask, started time.Time) time.Duration {
	if task.EnqueuedAt.IsZero() || started.Before(task.EnqueuedAt) {
		return 0
	}
	return started.Sub(task.EnqueuedAt)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Notification) {}

type noopClassificationObserver struct{}

func (noopClassificationObserver) ObserveClassification(domain.OutcomeKind, time.Duration, time.Duration) {
}
