package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
)

// NotificationService serves the inbox and is the Notifier used by background jobs.
type NotificationService struct {
	repo   ports.NotificationRepository
	clock  domain.Clock
	logger *slog.Logger
}

func NewNotificationService(repo ports.NotificationRepository, clock domain.Clock, logger *slog.Logger) *NotificationService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{repo: repo, clock: clock, logger: logger}
}

func (s *NotificationService) List(ctx context.Context, ownerID string) ([]domain.Notification, error) {
	return s.repo.List(ctx, ownerID, domain.NotificationListLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, ownerID, id string) error {
	return s.repo.MarkRead(ctx, ownerID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, ownerID)
}

// Notify stores the notification. Failures are logged and never reach the caller.
func (s *NotificationService) Notify(ctx context.Context, notification domain.Notification) {
	if notification.OwnerID == "" {
		return
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.clock.Now()
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		s.logger.Warn("notification_create_failed",
			"owner_id", notification.OwnerID,
			"type", notification.Type,
			"error", err,
		)
	}
}
