package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/matrixise/coinledger/internal/config"
	"github.com/matrixise/coinledger/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "coinledger",
	Short: "Wallet ledger reconciliation and valuation",
	Long: `coinledger rebuilds the transaction timeline of a wallet on the simulated
trading platform contract by merging its stored history with CoinBought and
CoinSold event logs, derives per-symbol cost basis, and values holdings at
live Binance and CoinGecko prices.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig sets up logging from the flag, loads the config file, then lets
// the config override the level unless the flag was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		logger.Setup(cfg.LogLevel)
	}
	return cfg, nil
}

// loadConfigWithDatabase is loadConfig for commands that need DATABASE_URL
func loadConfigWithDatabase(cmd *cobra.Command) (*config.Config, string, error) {
	logger.Setup(logLevel)

	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		logger.Setup(cfg.LogLevel)
	}
	return cfg, databaseURL, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
