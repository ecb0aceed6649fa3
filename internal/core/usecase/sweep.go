package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

type StatusSweepUseCase struct {
	repo     ports.DocumentRepository
	queue    ports.ClassificationQueue
	notifier ports.Notifier
	observer ports.SweepObserver
	clock    domain.Clock
	logger   *slog.Logger
	limits   domain.SweepLimits
}

func NewStatusSweepUseCase(
	repo ports.DocumentRepository,
	queue ports.ClassificationQueue,
	notifier ports.Notifier,
	observer ports.SweepObserver,
	clock domain.Clock,
	logger *slog.Logger,
	limits domain.SweepLimits,
) *StatusSweepUseCase {
	if limits.ExpiringSoonDays <= 0 {
		limits.ExpiringSoonDays = domain.DefaultExpiringSoonDays
	}
	if limits.StaleAfter <= 0 {
		limits.StaleAfter = 15 * time.Minute
	}
	if limits.StaleBatchSize <= 0 {
		limits.StaleBatchSize = 500
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if observer == nil {
		observer = noopSweepObserver{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusSweepUseCase{
		repo:     repo,
		queue:    queue,
		notifier: notifier,
		observer: observer,
		clock:    clock,
		logger:   logger,
		limits:   limits,
	}
}

// Run re-evaluates the status of every classified document with an expiry date.
// The three rules commit together or not at all.
func (uc *StatusSweepUseCase) Run(ctx context.Context) (domain.SweepResult, error) {
	started := uc.clock.Now()
	window := domain.NewSweepWindow(domain.DateOf(started), uc.limits.ExpiringSoonDays)

	result, err := uc.repo.SweepStatuses(ctx, window)
	duration := uc.clock.Now().Sub(started)
	uc.observer.ObserveSweep(result, duration, err)
	if err != nil {
		return domain.SweepResult{}, fmt.Errorf("sweep document statuses: %w", err)
	}

	uc.logger.Info("status_sweep_completed",
		"today", window.Today.String(),
		"horizon", window.Horizon.String(),
		"expired", len(result.Expired),
		"expiring_soon", len(result.ExpiringSoon),
		"current", len(result.Current),
		"duration_ms", duration.Milliseconds(),
	)
	uc.notifyTransitions(ctx, result)
	return result, nil
}

// RunScheduled is the scheduler entrypoint. Failures are logged; the next tick retries.
func (uc *StatusSweepUseCase) RunScheduled() {
	if _, err := uc.Run(context.Background()); err != nil {
		uc.logger.Error("status_sweep_failed", "error", err)
	}
}

// RecoverStale re-enqueues documents that have been PROCESSING longer than the
// stale threshold, typically after a crash lost their task. A temporarily full
// queue ends the batch early; the remaining rows are picked up on the next run.
func (uc *StatusSweepUseCase) RecoverStale(ctx context.Context) (int, error) {
	now := uc.clock.Now()
	cutoff := now.Add(-uc.limits.StaleAfter)

	docs, err := uc.repo.ListStaleProcessing(ctx, cutoff, uc.limits.StaleBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale processing documents: %w", err)
	}

	recovered := 0
	for _, doc := range docs {
		task := domain.ClassificationTask{DocumentID: doc.ID, StorageKey: doc.StorageKey, EnqueuedAt: now}
		err := uc.queue.PublishClassification(ctx, task)
		if domain.IsKind(err, domain.ErrTemporary) {
			uc.logger.Warn("stale_recovery_deferred", "recovered", recovered, "remaining", len(docs)-recovered, "error", err)
			break
		}
		if err != nil {
			return recovered, fmt.Errorf("re-enqueue document %s: %w", doc.ID, err)
		}
		recovered++
	}
	if recovered > 0 {
		uc.logger.Warn("stale_processing_recovered", "count", recovered, "cutoff", cutoff)
	}
	return recovered, nil
}

// RecoverScheduled is the scheduler entrypoint for stale recovery.
func (uc *StatusSweepUseCase) RecoverScheduled() {
	if _, err := uc.RecoverStale(context.Background()); err != nil {
		uc.logger.Error("stale_recovery_failed", "error", err)
	}
}

func (uc *StatusSweepUseCase) notifyTransitions(ctx context.Context, result domain.SweepResult) {
	for _, change := range result.ExpiringSoon {
		uc.notifier.Notify(ctx, transitionNotification(change,
			domain.NotificationDocumentExpiring,
			"Document expiring soon",
			fmt.Sprintf("%s expires on %s.", change.OriginalName, change.ExpiryDate),
		))
	}
	for _, change := range result.Expired {
		uc.notifier.Notify(ctx, transitionNotification(change,
			domain.NotificationDocumentExpired,
			"Document expired",
			fmt.Sprintf("%s expired on %s.", change.OriginalName, change.ExpiryDate),
		))
	}
}

func transitionNotification(change domain.StatusChange, kind domain.NotificationType, title, message string) domain.Notification {
	documentID := change.DocumentID
	return domain.Notification{
		OwnerID:    change.OwnerID,
		Type:       kind,
		Title:      title,
		Message:    message,
		DocumentID: &documentID,
	}
}

type noopSweepObserver struct{}

func (noopSweepObserver) ObserveSweep(domain.SweepResult, time.Duration, error) {}
