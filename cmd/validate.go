package cmd

import (
	"log/slog"

	"github.com/matrixise/coinledger/internal/config"
	"github.com/matrixise/coinledger/internal/scheduler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	schedule := "one-shot"
	if cfg.Interval != "" {
		schedule = scheduler.DescribeSchedule(cfg.Interval, cfg.GetTimezone())
	}

	slog.Info("✓ Configuration valid",
		"contract", cfg.ContractAddress,
		"deploy_block", cfg.DeployBlock,
		"chunk_size", cfg.ChunkSize,
		"rpc_endpoints", len(cfg.RPCUrls),
		"wallets", len(cfg.Wallets),
		"schedule", schedule,
		"log_level", cfg.LogLevel,
		"database_url_set", config.DatabaseURL() != "",
	)

	return nil
}
