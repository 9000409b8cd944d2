package market

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoConfig configures the secondary provider
type CoinGeckoConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second
	Burst     int
	Timeout   time.Duration
}

// CoinGecko is the secondary price provider and the source of global market stats
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCoinGecko creates a rate-limited CoinGecko client
func NewCoinGecko(cfg CoinGeckoConfig) *CoinGecko {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCoinGeckoURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 0.5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// request waits for the limiter, performs a GET and decodes a 200 JSON body into out
func (c *CoinGecko) request(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "coingecko %s: rate limiter", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return errors.Wrapf(err, "coingecko %s: build request", endpoint)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "coingecko %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("coingecko %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "coingecko %s: decode", endpoint)
	}
	return nil
}

// SpotPrice returns the USD price of symbol
func (c *CoinGecko) SpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	id := CoinGeckoID(symbol)
	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")

	var body map[string]map[string]decimal.Decimal
	if err := c.request(ctx, "/simple/price", params, &body); err != nil {
		return decimal.Zero, err
	}

	price, ok := body[id]["usd"]
	if !ok {
		return decimal.Zero, errors.Errorf("coingecko price %s: missing usd field", id)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, errors.Errorf("coingecko price %s: non-positive price %s", id, price)
	}
	return price, nil
}

type cgGlobalResponse struct {
	Data struct {
		ActiveCryptocurrencies       int                        `json:"active_cryptocurrencies"`
		Markets                      int                        `json:"markets"`
		TotalMarketCap               map[string]decimal.Decimal `json:"total_market_cap"`
		TotalVolume                  map[string]decimal.Decimal `json:"total_volume"`
		MarketCapPercentage          map[string]decimal.Decimal `json:"market_cap_percentage"`
		MarketCapChangePercentage24h decimal.Decimal            `json:"market_cap_change_percentage_24h_usd"`
		UpdatedAt                    int64                      `json:"updated_at"`
	} `json:"data"`
}

// Global returns aggregate market statistics
func (c *CoinGecko) Global(ctx context.Context) (GlobalStats, error) {
	var body cgGlobalResponse
	if err := c.request(ctx, "/global", nil, &body); err != nil {
		return GlobalStats{}, err
	}
	if body.Data.TotalMarketCap == nil {
		return GlobalStats{}, errors.New("coingecko global: missing data")
	}

	dominance := map[string]decimal.Decimal{
		"btc": body.Data.MarketCapPercentage["btc"],
		"eth": body.Data.MarketCapPercentage["eth"],
	}
	return GlobalStats{
		TotalMarketCapUSD:         body.Data.TotalMarketCap["usd"],
		TotalVolumeUSD:            body.Data.TotalVolume["usd"],
		MarketCapChangePercent24h: body.Data.MarketCapChangePercentage24h,
		MarketCapPercentage:       dominance,
		ActiveCryptocurrencies:    body.Data.ActiveCryptocurrencies,
		Markets:                   body.Data.Markets,
		UpdatedAt:                 time.Unix(body.Data.UpdatedAt, 0).UTC(),
	}, nil
}
