package market

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Point is a timestamped value. It serializes as [unix_ms, value].
type Point struct {
	Time  time.Time
	Value decimal.Decimal
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]json.RawMessage{
		json.RawMessage(strconv.FormatInt(p.Time.UnixMilli(), 10)),
		json.RawMessage(p.Value.String()),
	})
}

// Series is a historical chart for one symbol. MarketCaps is always empty.
type Series struct {
	Symbol     string  `json:"symbol"`
	Interval   string  `json:"interval"`
	Prices     []Point `json:"prices"`
	Volumes    []Point `json:"volumes"`
	MarketCaps []Point `json:"market_caps"`
}

// Candle is one OHLC bar reduced to what the chart needs
type Candle struct {
	OpenTime time.Time
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// GlobalStats summarizes the whole crypto market
type GlobalStats struct {
	TotalMarketCapUSD         decimal.Decimal            `json:"total_market_cap"`
	TotalVolumeUSD            decimal.Decimal            `json:"total_volume"`
	MarketCapChangePercent24h decimal.Decimal            `json:"market_cap_change_percentage_24h"`
	MarketCapPercentage       map[string]decimal.Decimal `json:"market_cap_percentage"`
	ActiveCryptocurrencies    int                        `json:"active_cryptocurrencies"`
	Markets                   int                        `json:"markets"`
	UpdatedAt                 time.Time                  `json:"last_updated"`
}

// IntervalForDays picks the candle width for a chart spanning days
func IntervalForDays(days int) string {
	switch {
	case days <= 1:
		return "1m"
	case days <= 7:
		return "15m"
	case days <= 30:
		return "1h"
	case days <= 90:
		return "4h"
	default:
		return "1d"
	}
}
