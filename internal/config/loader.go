package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "COINLEDGER"

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "") // one-shot unless scheduled
	v.SetDefault("http_port", 8080)
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("chain_id", 11155111)
	v.SetDefault("deploy_block", 0)
	v.SetDefault("chunk_size", 500)
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.timeout", "5s")
	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.api_key", "")
	v.SetDefault("coingecko.rate_limit", 0.5)
	v.SetDefault("coingecko.burst", 1)
	v.SetDefault("coingecko.timeout", "5s")

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	// COINLEDGER_CONTRACT_ADDRESS -> contract_address
	// COINLEDGER_COINGECKO_API_KEY -> coingecko.api_key
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"rpc_url", "rpc_urls", "contract_address", "deploy_block", "chunk_size",
		"wallets", "log_level", "interval", "http_port", "run_immediately",
		"timezone", "chain_id",
	} {
		v.BindEnv(key)
	}

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated lists coming from env vars
	if list := splitList(v.GetString("wallets")); list != nil {
		cfg.Wallets = list
	}
	if list := splitList(v.GetString("rpc_urls")); list != nil {
		cfg.RPCUrls = list
	}

	// 6. Normalize: convert single rpc_url to rpc_urls array
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// splitList returns nil unless s looks like a comma-separated env value
func splitList(s string) []string {
	if s == "" || !strings.Contains(s, ",") {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadWithDefaults loads config with DATABASE_URL from environment
func LoadWithDefaults(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	databaseURL := DatabaseURL()
	if databaseURL == "" {
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, databaseURL, nil
}

// DatabaseURL returns DATABASE_URL, empty when the snapshot store is not configured
func DatabaseURL() string {
	v := viper.New()
	v.BindEnv("database_url", "DATABASE_URL")
	return v.GetString("database_url")
}

// AdminPrivateKey returns the hex key used to sign admin transactions
func AdminPrivateKey() (string, error) {
	v := viper.New()
	v.BindEnv("admin_private_key", "ADMIN_PRIVATE_KEY")
	key := strings.TrimPrefix(strings.TrimSpace(v.GetString("admin_private_key")), "0x")
	if key == "" {
		return "", fmt.Errorf("ADMIN_PRIVATE_KEY is required")
	}
	return key, nil
}
