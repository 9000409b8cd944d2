package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matrixise/coinledger/internal/admin"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer borrow requests and registrations",
	Long: `Administrator operations on the platform contract. Write operations are
signed with ADMIN_PRIVATE_KEY and return the transaction hash without waiting
for it to be mined.`,
}

var adminPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List outstanding borrow requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, false, func(ctx context.Context, svc *admin.Service) error {
			reqs, err := svc.Pending(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, reqs)
		})
	},
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <user>",
	Short: "Approve the borrow request of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, true, func(ctx context.Context, svc *admin.Service) error {
			txHash, err := svc.Approve(ctx, args[0])
			return printTx(cmd, txHash, err)
		})
	},
}

var adminRejectCmd = &cobra.Command{
	Use:   "reject <user>",
	Short: "Reject the borrow request of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, true, func(ctx context.Context, svc *admin.Service) error {
			txHash, err := svc.Reject(ctx, args[0])
			return printTx(cmd, txHash, err)
		})
	},
}

var adminRegisterCmd = &cobra.Command{
	Use:   "register <user>",
	Short: "Register a user on the platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, true, func(ctx context.Context, svc *admin.Service) error {
			txHash, err := svc.Register(ctx, args[0])
			if errors.Is(err, admin.ErrAlreadyRegistered) {
				slog.Info("Nothing to do", "reason", err)
				return nil
			}
			return printTx(cmd, txHash, err)
		})
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminPendingCmd)
	adminCmd.AddCommand(adminApproveCmd)
	adminCmd.AddCommand(adminRejectCmd)
	adminCmd.AddCommand(adminRegisterCmd)
}

func withAdmin(cmd *cobra.Command, write bool, fn func(ctx context.Context, svc *admin.Service) error) error {
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

	if write {
		if err := a.enableSigner(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, admin.NewService(a.contract))
}

func printTx(cmd *cobra.Command, txHash string, err error) error {
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), txHash)
	return err
}
