package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/matrixise/coinledger/internal/portfolio"
	"github.com/shopspring/decimal"
)

// Snapshot is one recorded valuation of a wallet
type Snapshot struct {
	ID             uuid.UUID
	RunID          uuid.UUID
	TakenAt        time.Time
	Wallet         string
	LatestBlock    uint64
	USDBalance     decimal.Decimal
	BorrowedAmount decimal.Decimal
	TotalValue     decimal.Decimal
	Profit         decimal.Decimal
	LedgerEntries  int
	SkippedItems   int
	Holdings       []HoldingSnapshot
}

// HoldingSnapshot is one priced position inside a snapshot
type HoldingSnapshot struct {
	Symbol          string
	Balance         decimal.Decimal
	AverageBuyPrice decimal.Decimal
	LivePrice       decimal.Decimal
	TotalValue      decimal.Decimal
}

// NewSnapshot converts a wallet view into a snapshot row set
func NewSnapshot(runID uuid.UUID, view *portfolio.WalletView) Snapshot {
	snap := Snapshot{
		ID:             uuid.New(),
		RunID:          runID,
		TakenAt:        view.GeneratedAt,
		Wallet:         view.Wallet,
		LatestBlock:    view.LatestBlock,
		USDBalance:     view.USDBalance,
		BorrowedAmount: view.BorrowedAmount,
		TotalValue:     decimal.Zero,
		Profit:         view.Profit,
		LedgerEntries:  len(view.Ledger),
		SkippedItems:   len(view.Skipped.Chunks) + len(view.Skipped.Rows) + len(view.Skipped.Symbols),
		Holdings:       make([]HoldingSnapshot, 0, len(view.Holdings)),
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	for _, h := range view.Holdings {
		snap.TotalValue = snap.TotalValue.Add(h.TotalValue)
		snap.Holdings = append(snap.Holdings, HoldingSnapshot{
			Symbol:          h.Symbol,
			Balance:         h.Balance,
			AverageBuyPrice: h.AverageBuyPrice,
			LivePrice:       h.LivePrice,
			TotalValue:      h.TotalValue,
		})
	}
	return snap
}
