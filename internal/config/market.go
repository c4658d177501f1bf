package config

import (
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/shopspring/decimal"
)

type MarketConfig struct {
	BirdeyeURL    string
	BirdeyeAPIKey string

	// CacheTTL applies to prices and token metadata. Default: 24h
	CacheTTL        time.Duration
	CacheMaxEntries int

	// MinTokenValueUSD hides dust balances from the token picker.
	MinTokenValueUSD decimal.Decimal
	// MaxWalletTokens is how many tokens the picker offers.
	MaxWalletTokens int
}

func (c *MarketConfig) Key() string {
	return MARKET_CONFIG_KEY
}

func (c *MarketConfig) Load() error {
	c.BirdeyeURL = common.GetEnvOrDefault("BIRDEYE_API_URL", "https://public-api.birdeye.so")
	c.BirdeyeAPIKey = common.GetEnvOrDefault("BIRDEYE_API_KEY", "")
	c.CacheTTL = time.Duration(common.GetEnvOrDefaultInt("CACHE_TTL_HOURS", 24)) * time.Hour
	c.CacheMaxEntries = common.GetEnvOrDefaultInt("CACHE_MAX_ENTRIES", 10_000)
	c.MaxWalletTokens = common.GetEnvOrDefaultInt("MAX_WALLET_TOKENS", 5)

	minValue, err := decimal.NewFromString(common.GetEnvOrDefault("MIN_TOKEN_VALUE_USD", "0.1"))
	if err != nil {
		minValue = decimal.NewFromFloat(0.1)
	}
	c.MinTokenValueUSD = minValue
	return nil
}

func (c *MarketConfig) Validate() error {
	return nil
}
