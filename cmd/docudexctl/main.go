package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docudex/docudex-api/internal/bootstrap"
	"github.com/docudex/docudex-api/internal/config"
	"github.com/docudex/docudex-api/internal/infrastructure/repository/postgres"
	"github.com/docudex/docudex-api/internal/observability/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var envFile string

// newApp loads config and wires the application. The caller must defer app.Close().
func newApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "docudexctl", cfg.LogLevel)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "docudexctl", Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return app, nil
}

func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}
	return config.Load(), nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:           "docudexctl",
	Short:         "Operate the DocuDex document store",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		version, err := postgres.MigrationVersion(ctx, db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the document status sweep once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.SweepUC.Run(ctx)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Re-enqueue documents stuck in PROCESSING",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if app.Config.QueueDriver != config.QueueNATS {
			return fmt.Errorf("recover needs a shared queue; set QUEUE_DRIVER=%s", config.QueueNATS)
		}
		recovered, err := app.SweepUC.RecoverStale(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "re-enqueued %d documents\n", recovered)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(recoverCmd)
}
