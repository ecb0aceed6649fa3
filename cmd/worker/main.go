package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docudex/docudex-api/internal/bootstrap"
	"github.com/docudex/docudex-api/internal/config"
	"github.com/docudex/docudex-api/internal/infrastructure/scheduler"
	"github.com/docudex/docudex-api/internal/observability/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.NewJSONLogger("worker", "info").Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.Install("worker", cfg.LogLevel)
	if cfg.QueueDriver != config.QueueNATS {
		logger.Error("worker_requires_nats", "queue_driver", cfg.QueueDriver)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "worker", Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", app.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	recovery := scheduler.New(logger)
	if err := app.ScheduleRecovery(recovery); err != nil {
		logger.Error("scheduler_setup_failed", "error", err)
		os.Exit(1)
	}
	recovery.Start()
	go app.SweepUC.RecoverScheduled()

	if err := app.RunWorker(ctx); err != nil {
		logger.Error("classification_worker_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recovery.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler_stop_failed", "error", err)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
