package config

import (
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/matrixise/coinledger/internal/scheduler"
)

// Config represents the application configuration
type Config struct {
	RPCUrl          string          `mapstructure:"rpc_url" validate:"omitempty,url"`
	RPCUrls         []string        `mapstructure:"rpc_urls" validate:"required,min=1,dive,url"`
	ChainID         int64           `mapstructure:"chain_id" validate:"omitempty,min=1"`
	ContractAddress string          `mapstructure:"contract_address" validate:"required,eth_addr"`
	DeployBlock     uint64          `mapstructure:"deploy_block"`
	ChunkSize       uint64          `mapstructure:"chunk_size" validate:"required,min=1,max=100000"`
	Wallets         []string        `mapstructure:"wallets" validate:"omitempty,dive,eth_addr"`
	Interval        string          `mapstructure:"interval" validate:"omitempty,schedule"`
	Timezone        string          `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately  *bool           `mapstructure:"run_immediately"`
	LogLevel        string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort        int             `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	Binance         BinanceConfig   `mapstructure:"binance"`
	CoinGecko       CoinGeckoConfig `mapstructure:"coingecko"`
}

// BinanceConfig configures the primary price provider
type BinanceConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// CoinGeckoConfig configures the secondary price provider
type CoinGeckoConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey    string        `mapstructure:"api_key"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"min=0"`
	Burst     int           `mapstructure:"burst" validate:"min=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// Normalize folds the single rpc_url into rpc_urls and tidies address lists
func (c *Config) Normalize() error {
	if len(c.RPCUrls) == 0 {
		if c.RPCUrl == "" {
			return errors.New("either rpc_url or rpc_urls must be set")
		}
		c.RPCUrls = []string{c.RPCUrl}
	}
	c.RPCUrl = ""

	for i := range c.RPCUrls {
		c.RPCUrls[i] = strings.TrimSpace(c.RPCUrls[i])
	}
	for i := range c.Wallets {
		c.Wallets[i] = strings.TrimSpace(c.Wallets[i])
	}
	c.ContractAddress = strings.TrimSpace(c.ContractAddress)
	return nil
}

// GetTimezone returns the configured location, UTC when unset or unknown
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately reports whether the first snapshot runs at startup
func (c *Config) ShouldRunImmediately() bool {
	if c.RunImmediately == nil {
		return true
	}
	return *c.RunImmediately
}

// IsCronExpression reports whether Interval is a cron expression rather than a duration
func (c *Config) IsCronExpression() bool {
	return scheduler.IsCronExpression(c.Interval)
}

// RequireWallets checks that the snapshot recorder has something to track
func (c *Config) RequireWallets() error {
	if len(c.Wallets) == 0 {
		return errors.New("at least one wallet is required to record snapshots")
	}
	return nil
}

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// scheduleValidator accepts clock-aligned durations and cron expressions
func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

// timezoneValidator validates IANA timezone names
func timezoneValidator(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("timezone", timezoneValidator)
	return validate
}
