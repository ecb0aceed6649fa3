package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/docudex/docudex-api/internal/config"
	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
	"github.com/docudex/docudex-api/internal/core/usecase"
	"github.com/docudex/docudex-api/internal/infrastructure/auth"
	"github.com/docudex/docudex-api/internal/infrastructure/catalog"
	"github.com/docudex/docudex-api/internal/infrastructure/classifier/aiservice"
	"github.com/docudex/docudex-api/internal/infrastructure/queue/inproc"
	"github.com/docudex/docudex-api/internal/infrastructure/queue/nats"
	"github.com/docudex/docudex-api/internal/infrastructure/repository/postgres"
	"github.com/docudex/docudex-api/internal/infrastructure/resilience"
	"github.com/docudex/docudex-api/internal/infrastructure/scheduler"
	"github.com/docudex/docudex-api/internal/infrastructure/storage/localfs"
	"github.com/docudex/docudex-api/internal/infrastructure/storage/s3"
	"github.com/docudex/docudex-api/internal/observability/metrics"
)

type Options struct {
	Service string
	Logger  *slog.Logger
	// Migrate applies pending schema migrations before wiring repositories.
	Migrate bool
}

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Metrics *metrics.Registry

	Queue     ports.ClassificationQueue
	Documents ports.DocumentRepository
	Verifier  ports.TokenVerifier

	IngestUC        *usecase.IngestDocumentUseCase
	ClassifyUC      *usecase.ClassificationUseCase
	SweepUC         *usecase.StatusSweepUseCase
	DocumentSvc     *usecase.DocumentService
	FolderSvc       *usecase.FolderService
	ShareSvc        *usecase.ShareService
	NotificationSvc *usecase.NotificationService
	WorkflowSvc     *usecase.WorkflowService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if options.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	registry := metrics.NewRegistry(options.Service)
	workerMetrics := metrics.NewWorkerMetrics(registry)
	sweepMetrics := metrics.NewSweepMetrics(registry)

	storage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, closeQueue, err := newQueue(cfg, logger, workerMetrics)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init classification queue: %w", err)
	}

	// Only the API authenticates callers; workers and the CLI run without a secret.
	var verifier ports.TokenVerifier
	if cfg.JWTSecret != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			closeQueue()
			_ = db.Close()
			return nil, fmt.Errorf("init token verifier: %w", err)
		}
		verifier = jwtVerifier
	}

	templates, err := catalog.Builtin()
	if err != nil {
		closeQueue()
		_ = db.Close()
		return nil, fmt.Errorf("load workflow templates: %w", err)
	}

	classifier := aiservice.New(cfg.AIServiceURL, aiservice.Options{
		HTTPTimeout: cfg.AIProcessTimeout + 30*time.Second,
		ResilienceExecutor: resilience.NewExecutor(resilience.ClassifierConfig(cfg.AIRetryAttempts, cfg.AIBreakerEnabled),
			resilience.WithLogger(logger),
			resilience.WithStateObserver(workerMetrics.ObserveBreakerState),
		),
	})

	clock := domain.SystemClock{}
	documents := postgres.NewDocumentRepository(db)
	folders := postgres.NewFolderRepository(db)
	audit := postgres.NewAuditRepository(db)
	notifications := usecase.NewNotificationService(postgres.NewNotificationRepository(db), clock, logger)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Metrics:   registry,
		Queue:     queue,
		Documents: documents,
		Verifier:  verifier,

		IngestUC: usecase.NewIngestDocumentUseCase(documents, storage, queue, audit, clock, logger, domain.IngestLimits{
			MaxFileSize:  cfg.MaxFileSize,
			MaxBulkFiles: cfg.MaxBulkFiles,
		}),
		ClassifyUC: usecase.NewClassificationUseCase(documents, storage, classifier, notifications, workerMetrics, clock, logger, domain.ClassificationLimits{
			ProcessTimeout:  cfg.AIProcessTimeout,
			ClassifyTimeout: cfg.AIClassifyTimeout,
		}),
		SweepUC: usecase.NewStatusSweepUseCase(documents, queue, notifications, sweepMetrics, clock, logger, domain.SweepLimits{
			ExpiringSoonDays: cfg.ExpiringSoonDays,
			StaleAfter:       cfg.StaleProcessingAfter,
		}),
		DocumentSvc:     usecase.NewDocumentService(documents, folders, storage, audit, clock, logger),
		FolderSvc:       usecase.NewFolderService(folders, clock),
		ShareSvc:        usecase.NewShareService(postgres.NewShareRepository(db), documents, clock, cfg.ShareBaseURL),
		NotificationSvc: notifications,
		WorkflowSvc:     usecase.NewWorkflowService(postgres.NewWorkflowRepository(db), templates, documents, notifications, clock),

		closeFn: func() {
			closeQueue()
			_ = db.Close()
		},
	}

	logger.Info("bootstrap_completed",
		"storage_type", cfg.StorageType,
		"queue_driver", cfg.QueueDriver,
		"expiring_soon_days", cfg.ExpiringSoonDays,
	)
	return app, nil
}

// RunWorker consumes classification tasks until ctx is cancelled and in-flight
// tasks have finished.
func (a *App) RunWorker(ctx context.Context) error {
	a.Logger.Info("classification_worker_started", "queue_driver", a.Config.QueueDriver, "concurrency", a.Config.WorkerConcurrency)
	err := a.Queue.SubscribeClassification(ctx, func(taskCtx context.Context, task domain.ClassificationTask) error {
		a.ClassifyUC.Apply(taskCtx, task)
		return nil
	})
	a.Logger.Info("classification_worker_stopped")
	return err
}

// ScheduleRecovery re-enqueues stale PROCESSING rows once per stale window.
func (a *App) ScheduleRecovery(s *scheduler.Scheduler) error {
	return s.Add("stale_recovery", scheduler.Every(a.Config.StaleProcessingAfter), a.SweepUC.RecoverScheduled)
}

// Ping reports whether the database answers within a short deadline.
func (a *App) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return a.DB.PingContext(pingCtx)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newObjectStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageType {
	case config.StorageS3:
		return s3.New(ctx, s3.Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
	default:
		return localfs.New(cfg.UploadDir)
	}
}

func newQueue(cfg config.Config, logger *slog.Logger, workerMetrics *metrics.WorkerMetrics) (ports.ClassificationQueue, func(), error) {
	switch cfg.QueueDriver {
	case config.QueueNATS:
		queue, err := nats.New(cfg.NATSURL, nats.Options{
			Subject:     cfg.NATSSubject,
			Concurrency: cfg.WorkerConcurrency,
			Logger:      logger,
			ResilienceExecutor: resilience.NewExecutor(resilience.PublishConfig(),
				resilience.WithLogger(logger),
				resilience.WithStateObserver(workerMetrics.ObserveBreakerState),
			),
		})
		if err != nil {
			return nil, nil, err
		}
		return queue, queue.Close, nil
	default:
		queue := inproc.New(cfg.InprocQueueSize, cfg.WorkerConcurrency, logger)
		return queue, func() {}, nil
	}
}
