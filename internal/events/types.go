package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Kind names a contract event
type Kind string

const (
	KindBuy  Kind = "CoinBought"
	KindSell Kind = "CoinSold"
)

// BuyArgs are the decoded arguments of a CoinBought log.
// TotalCost and PricePerToken are in cents and nil when the log does not carry them.
type BuyArgs struct {
	User          common.Address
	Symbol        string
	Quantity      decimal.Decimal
	TotalCost     *decimal.Decimal
	PricePerToken *decimal.Decimal
}

// SellArgs are the decoded arguments of a CoinSold log
type SellArgs struct {
	User     common.Address
	Symbol   string
	Quantity decimal.Decimal
}

// Record is one decoded event log. Exactly one of Buy or Sell is set, matching Kind.
type Record struct {
	Kind        Kind
	BlockNumber uint64
	LogIndex    uint
	TxHash      string
	Timestamp   time.Time
	Buy         *BuyArgs
	Sell        *SellArgs
}

// User returns the wallet the event belongs to
func (r Record) User() common.Address {
	switch {
	case r.Buy != nil:
		return r.Buy.User
	case r.Sell != nil:
		return r.Sell.User
	}
	return common.Address{}
}

// Symbol returns the traded ticker
func (r Record) Symbol() string {
	switch {
	case r.Buy != nil:
		return r.Buy.Symbol
	case r.Sell != nil:
		return r.Sell.Symbol
	}
	return ""
}

// Quantity returns the traded amount in token units
func (r Record) Quantity() decimal.Decimal {
	switch {
	case r.Buy != nil:
		return r.Buy.Quantity
	case r.Sell != nil:
		return r.Sell.Quantity
	}
	return decimal.Zero
}
