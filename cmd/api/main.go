package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/docudex/docudex-api/internal/adapters/http"
	"github.com/docudex/docudex-api/internal/bootstrap"
	"github.com/docudex/docudex-api/internal/config"
	"github.com/docudex/docudex-api/internal/infrastructure/scheduler"
	"github.com/docudex/docudex-api/internal/observability/logging"
	"github.com/docudex/docudex-api/internal/observability/metrics"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.NewJSONLogger("api", "info").Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.Install("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "api", Logger: logger, Migrate: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	if app.Verifier == nil {
		logger.Error("bootstrap_failed", "error", "JWT_SECRET is required")
		os.Exit(1)
	}

	router := httpadapter.NewRouter(httpadapter.Services{
		Ingest:        app.IngestUC,
		Documents:     app.DocumentSvc,
		Folders:       app.FolderSvc,
		Shares:        app.ShareSvc,
		Notifications: app.NotificationSvc,
		Workflows:     app.WorkflowSvc,
		Sweeper:       app.SweepUC,
		Classifier:    app.ClassifyUC,
	}, app.Verifier, httpadapter.Options{
		MaxFileSize:    cfg.MaxFileSize,
		MaxBulkFiles:   cfg.MaxBulkFiles,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.APIMaxInFlight,
		Metrics:        metrics.NewHTTPServerMetrics(app.Metrics),
		MetricsHandler: app.Metrics.Handler(),
		Ready: func(r *http.Request) error {
			return app.Ping(r.Context())
		},
	}).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	workerDone := make(chan struct{})
	sweeps := scheduler.New(logger)
	if err := sweeps.Add("status_sweep", cfg.SweepSchedule, app.SweepUC.RunScheduled); err != nil {
		logger.Error("scheduler_setup_failed", "error", err)
		os.Exit(1)
	}
	if cfg.WorkerEmbedded {
		if err := app.ScheduleRecovery(sweeps); err != nil {
			logger.Error("scheduler_setup_failed", "error", err)
			os.Exit(1)
		}
		go func() {
			defer close(workerDone)
			if err := app.RunWorker(workerCtx); err != nil {
				logger.Error("classification_worker_failed", "error", err)
			}
		}()
		// Rows the queue cannot take or deliver yet are retried on the next recovery tick.
		go app.SweepUC.RecoverScheduled()
	} else {
		close(workerDone)
	}

	sweeps.Start()
	if cfg.SweepOnStart {
		go app.SweepUC.RunScheduled()
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
	stopWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("classification_worker_drain_timeout")
	}
	if err := sweeps.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler_stop_failed", "error", err)
	}
	logger.Info("api_stopped")
}
