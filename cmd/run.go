package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/coinledger/internal/health"
	"github.com/matrixise/coinledger/internal/scheduler"
	"github.com/matrixise/coinledger/internal/snapshot"
	"github.com/matrixise/coinledger/internal/storage"
	"github.com/spf13/cobra"
)

var (
	interval string
	once     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Record portfolio snapshots of the configured wallets",
	Long: `Value every configured wallet and persist holdings, balances and profit
to PostgreSQL, once or on a clock-aligned schedule.`,
	RunE: runSnapshots,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "run interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - empty for one-time run")
	runCmd.Flags().BoolVar(&once, "once", false, "run once and exit (default)")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, databaseURL, err := loadConfigWithDatabase(cmd)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if err := cfg.RequireWallets(); err != nil {
		return err
	}

	// Flag overrides config
	runInterval := interval
	if runInterval == "" {
		runInterval = cfg.Interval
	}
	if runInterval != "" {
		if err := scheduler.ValidateScheduleInterval(runInterval); err != nil {
			return err
		}
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"wallets", len(cfg.Wallets),
		"contract", cfg.ContractAddress,
		"interval", runInterval,
	)

	if err := storage.RunMigrations(ctx, databaseURL); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		return err
	}

	store, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("PostgreSQL connection established")

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialise", "error", err)
		return err
	}
	defer a.Close()

	wallets := make([]common.Address, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		wallets = append(wallets, common.HexToAddress(w))
	}
	recorder := snapshot.NewRecorder(a.portfolio, store, wallets)

	if runInterval == "" || once {
		return recorder.Run(ctx)
	}

	slog.Info("Starting daemon mode with scheduler",
		"schedule", scheduler.DescribeSchedule(runInterval, cfg.GetTimezone()),
		"run_immediately", cfg.ShouldRunImmediately())

	expectedInterval, err := scheduler.ExpectedInterval(runInterval, cfg.GetTimezone(), time.Now())
	if err != nil {
		return err
	}
	checker := health.NewChecker(store, a.client, expectedInterval)

	sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
		Interval:       runInterval,
		Timezone:       cfg.GetTimezone(),
		RunImmediately: cfg.ShouldRunImmediately(),
		Logger:         slog.Default(),
		Name:           "portfolio-snapshots",
		Timeout:        expectedInterval,
		AfterRun: func(err error, took time.Duration) {
			checker.UpdateLastRun(err == nil)
			slog.Info("Snapshot run finished", "wallets", len(wallets), "duration", took, "ok", err == nil)
		},
	}, recorder.Run)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		return fmt.Errorf("scheduler creation failed: %w", err)
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           checker,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Health check server starting", "port", cfg.HTTPPort, "endpoint", "/health")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Health server shutdown error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("scheduler start failed: %w", err)
	}
	slog.Info("Daemon mode started with clock-aligned scheduling")

	<-ctx.Done()
	slog.Info("Shutdown requested, stopping daemon")
	return nil
}
