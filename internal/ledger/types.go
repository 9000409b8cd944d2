package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a ledger entry
type Kind string

const (
	KindBuy  Kind = "buy"
	KindSell Kind = "sell"
)

// ParseKind accepts "buy" or "sell" in any case
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBuy:
		return KindBuy, true
	case KindSell:
		return KindSell, true
	}
	return "", false
}

// Source identifies where a ledger entry came from
type Source int

const (
	SourceContractStorage Source = iota
	SourceBuyEvent
	SourceSellEvent
)

func (s Source) String() string {
	switch s {
	case SourceContractStorage:
		return "contract_storage"
	case SourceBuyEvent:
		return "buy_event"
	case SourceSellEvent:
		return "sell_event"
	}
	return "unknown"
}

// StoredTransaction is one row of the contract's getTransactionHistory array
type StoredTransaction struct {
	TxType    string
	Symbol    string
	Amount    decimal.Decimal
	Timestamp time.Time
}

// Entry is one line of the merged transaction timeline.
// BuyPrice is nil when no price is known for the entry.
type Entry struct {
	Kind      Kind             `json:"type"`
	Symbol    string           `json:"symbol"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Timestamp time.Time        `json:"timestamp"`
	USDValue  decimal.Decimal  `json:"usd_value"`
	BuyPrice  *decimal.Decimal `json:"buy_price"`
	TxHash    string           `json:"tx_hash"`
	Source    Source           `json:"-"`
}

// SkippedRow is a contract row that could not become a ledger entry
type SkippedRow struct {
	Index  int    `json:"index"`
	TxType string `json:"tx_type"`
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Ledger is the merged timeline for one wallet, newest first
type Ledger struct {
	Entries []Entry
	Skipped []SkippedRow
}

// Symbols returns the distinct symbols present in the ledger, in first-seen order
func (l Ledger) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range l.Entries {
		if e.Symbol == "" || seen[e.Symbol] {
			continue
		}
		seen[e.Symbol] = true
		out = append(out, e.Symbol)
	}
	return out
}

// NormalizeSymbol upper-cases and trims a ticker
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
