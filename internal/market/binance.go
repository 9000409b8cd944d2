package market

import (
	"context"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const klinesLimit = 1000

// Binance is the primary price provider
type Binance struct {
	client *binance.Client
}

// NewBinance creates a public-data Binance client. An empty baseURL keeps the library default.
func NewBinance(baseURL string, timeout time.Duration) *Binance {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	if timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Binance{client: client}
}

func (b *Binance) Name() string { return "binance" }

// SpotPrice returns the last traded price of symbol against USDT
func (b *Binance) SpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := BinancePair(symbol)
	prices, err := b.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "binance ticker %s", pair)
	}
	if len(prices) == 0 {
		return decimal.Zero, errors.Errorf("binance ticker %s: empty response", pair)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "binance ticker %s: parse price", pair)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, errors.Errorf("binance ticker %s: non-positive price %s", pair, price)
	}
	return price, nil
}

// Candles returns up to 1000 klines of symbol between start and end
func (b *Binance) Candles(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	pair := symbol + "USDT"
	klines, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(interval).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Limit(klinesLimit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "binance klines %s %s", pair, interval)
	}

	candles := make([]Candle, 0, len(klines))
	for _, k := range klines {
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "binance klines %s: parse close", pair)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "binance klines %s: parse volume", pair)
		}
		candles = append(candles, Candle{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return candles, nil
}
