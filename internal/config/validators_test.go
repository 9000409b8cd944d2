package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEthAddressValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		address   string
		wantError bool
	}{
		{name: "valid address with 0x prefix", address: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
		{name: "valid address all lowercase", address: "0x742d35cc6634c0532925a3b844bc9e7595f0beb0"},
		{name: "valid address all uppercase", address: "0x742D35CC6634C0532925A3B844BC9E7595F0BEB0"},
		{name: "zero address is valid", address: "0x0000000000000000000000000000000000000000"},
		{name: "valid address without 0x prefix", address: "742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
		{name: "too short", address: "0x742d35Cc", wantError: true},
		{name: "too long", address: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb123", wantError: true},
		{name: "invalid hex character", address: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEg0", wantError: true},
		{name: "empty string", address: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Wallets = []string{tt.address}

			err := v.Struct(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduleValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		interval  string
		wantError bool
	}{
		{name: "valid duration 5m", interval: "5m"},
		{name: "valid duration 1h", interval: "1h"},
		{name: "valid duration 24h", interval: "24h"},
		{name: "valid cron 5 fields", interval: "*/5 * * * *"},
		{name: "valid cron 6 fields with seconds", interval: "*/30 * * * * *"},
		{name: "empty interval is valid (one-shot mode)", interval: ""},
		{name: "minutes not dividing the hour", interval: "7m", wantError: true},
		{name: "hours not dividing the day", interval: "5h", wantError: true},
		{name: "mixed units", interval: "1h30m", wantError: true},
		{name: "garbage", interval: "every minute", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Interval = tt.interval

			err := v.Struct(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimezoneValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		timezone  string
		wantError bool
	}{
		{name: "UTC", timezone: "UTC"},
		{name: "Europe/Paris", timezone: "Europe/Paris"},
		{name: "America/New_York", timezone: "America/New_York"},
		{name: "empty uses default", timezone: ""},
		{name: "unknown zone", timezone: "Invalid/Zone", wantError: true},
		{name: "offset notation is not a zone name", timezone: "+02:00", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Timezone = tt.timezone

			err := v.Struct(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatorCustomTypes(t *testing.T) {
	v := NewValidator()

	t.Run("validates URLs in RPCUrls", func(t *testing.T) {
		cfg := validConfig()
		cfg.RPCUrls = []string{"https://valid.example.com", "http://another.example.com"}
		assert.NoError(t, v.Struct(cfg))
	})

	t.Run("rejects invalid URLs in RPCUrls", func(t *testing.T) {
		cfg := validConfig()
		cfg.RPCUrls = []string{"not-a-url"}
		assert.Error(t, v.Struct(cfg))
	})

	t.Run("requires at least one RPC URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.RPCUrls = []string{}
		assert.Error(t, v.Struct(cfg))
	})
}

func TestValidatorIntegration(t *testing.T) {
	v := NewValidator()

	cfg := &Config{
		RPCUrls:         []string{"https://rpc1.example.com", "https://rpc2.example.com"},
		ChainID:         11155111,
		ContractAddress: testContract,
		DeployBlock:     5_000_000,
		ChunkSize:       500,
		Wallets:         []string{testWallet, "0x0987654321098765432109876543210987654321"},
		Interval:        "15m",
		LogLevel:        "debug",
		HTTPPort:        8080,
		Timezone:        "America/New_York",
		Binance:         BinanceConfig{BaseURL: "https://api.binance.com"},
		CoinGecko:       CoinGeckoConfig{BaseURL: "https://api.coingecko.com/api/v3", RateLimit: 0.5, Burst: 1},
	}
	assert.NoError(t, v.Struct(cfg))
}
