// Package snapshot records periodic wallet valuations to the database.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/matrixise/coinledger/internal/ledger"
	"github.com/matrixise/coinledger/internal/portfolio"
	"github.com/matrixise/coinledger/internal/storage"
)

// ViewSource builds wallet read models
type ViewSource interface {
	WalletView(ctx context.Context, wallet common.Address, filter ledger.Filter) (*portfolio.WalletView, error)
}

// Store persists snapshots
type Store interface {
	SaveSnapshot(ctx context.Context, snap storage.Snapshot) error
	LatestSnapshot(ctx context.Context, wallet string) (*storage.Snapshot, error)
}

// Recorder values every tracked wallet and stores the result
type Recorder struct {
	views   ViewSource
	store   Store
	wallets []common.Address
	logger  *slog.Logger
}

// NewRecorder creates a recorder for wallets
func NewRecorder(views ViewSource, store Store, wallets []common.Address) *Recorder {
	return &Recorder{
		views:   views,
		store:   store,
		wallets: wallets,
		logger:  slog.Default(),
	}
}

// Run records one snapshot per wallet under a fresh run id. A failing wallet
// is logged and skipped; Run reports an error only when every wallet failed
// or the context was cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	runID := uuid.New()
	r.logger.Info("Snapshot run started", "run_id", runID, "wallets", len(r.wallets))

	recorded := 0
	for _, wallet := range r.wallets {
		if err := ctx.Err(); err != nil {
			r.logger.Info("Shutdown requested, stopping snapshot run")
			return err
		}

		if err := r.record(ctx, runID, wallet); err != nil {
			r.logger.Error("Snapshot failed", "run_id", runID, "wallet", wallet.Hex(), "error", err)
			continue
		}
		recorded++
	}

	r.logger.Info("Snapshot run completed", "run_id", runID, "recorded", recorded, "failed", len(r.wallets)-recorded)
	if recorded == 0 && len(r.wallets) > 0 {
		return fmt.Errorf("no snapshot recorded for %d wallets", len(r.wallets))
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, runID uuid.UUID, wallet common.Address) error {
	view, err := r.views.WalletView(ctx, wallet, ledger.Filter{})
	if err != nil {
		return fmt.Errorf("wallet view: %w", err)
	}

	snap := storage.NewSnapshot(runID, view)

	previous, err := r.store.LatestSnapshot(ctx, snap.Wallet)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		previous = nil
	case err != nil:
		r.logger.Warn("Previous snapshot unavailable", "wallet", snap.Wallet, "error", err)
		previous = nil
	}

	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	attrs := []any{
		"run_id", runID,
		"wallet", snap.Wallet,
		"holdings", len(snap.Holdings),
		"total_value", snap.TotalValue.StringFixed(2),
		"profit", snap.Profit.StringFixed(2),
		"skipped", snap.SkippedItems,
	}
	if previous != nil {
		attrs = append(attrs, "profit_change", snap.Profit.Sub(previous.Profit).StringFixed(2))
	}
	r.logger.Info("Snapshot recorded", attrs...)
	return nil
}
