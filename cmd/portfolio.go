package cmd

import (
	"log/slog"

	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/matrixise/coinledger/internal/portfolio"
	"github.com/spf13/cobra"
)

var (
	filterType  string
	filterStart string
	filterEnd   string
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio <wallet>",
	Short: "Print the ledger, holdings and profit of a wallet as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolio,
}

var historyCmd = &cobra.Command{
	Use:   "history <wallet>",
	Short: "Print the merged transaction history of a wallet as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(historyCmd)

	for _, c := range []*cobra.Command{portfolioCmd, historyCmd} {
		c.Flags().StringVar(&filterType, "type", "", "only buy or sell entries")
		c.Flags().StringVar(&filterStart, "start", "", "earliest timestamp (RFC 3339 or YYYY-MM-DD)")
		c.Flags().StringVar(&filterEnd, "end", "", "latest timestamp (RFC 3339 or YYYY-MM-DD, whole day)")
	}
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	wallet, err := portfolio.ParseWallet(args[0])
	if err != nil {
		return err
	}
	filter, err := ledger.ParseFilter(filterType, filterStart, filterEnd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.portfolio.WalletView(ctx, wallet, filter)
	if err != nil {
		slog.Error("Failed to build wallet view", "wallet", wallet.Hex(), "error", err)
		return err
	}
	return printJSON(cmd, view)
}

func runHistory(cmd *cobra.Command, args []string) error {
	wallet, err := portfolio.ParseWallet(args[0])
	if err != nil {
		return err
	}
	filter, err := ledger.ParseFilter(filterType, filterStart, filterEnd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.portfolio.History(ctx, wallet)
	if err != nil {
		slog.Error("Failed to build history", "wallet", wallet.Hex(), "error", err)
		return err
	}

	entries := h.Ledger.Filter(filter)
	if entries == nil {
		entries = []ledger.Entry{}
	}
	return printJSON(cmd, map[string]any{
		"wallet":       wallet.Hex(),
		"latest_block": h.LatestBlock,
		"transactions": entries,
		"skipped":      h.Skipped,
	})
}
