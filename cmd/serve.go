package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/matrixise/coinledger/internal/config"
	"github.com/matrixise/coinledger/internal/health"
	"github.com/matrixise/coinledger/internal/server"
	"github.com/matrixise/coinledger/internal/storage"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve wallet and market read models over HTTP",
	Long: `Start the JSON API exposing wallet portfolios, transaction histories and
market data. The snapshot database is optional and only used for health reporting.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default: http_port from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialise", "error", err)
		return err
	}
	defer a.Close()

	var checker *health.Checker
	if dsn := config.DatabaseURL(); dsn != "" {
		store, err := storage.NewStore(ctx, dsn)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", "error", err)
			return err
		}
		defer store.Close()
		checker = health.NewChecker(store, a.client, 0)
	} else {
		checker = health.NewChecker(nil, a.client, 0)
	}

	port := cfg.HTTPPort
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:       port,
		Health:     checker,
		Portfolios: a.portfolio,
		Markets:    a.markets,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutdown requested")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
