package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type AggregatorConfig struct {
	// APIUrl is the base of the quote and swap-instructions endpoints.
	// Default: "https://quote-api.jup.ag/v6"
	APIUrl string

	APIKey string

	// Timeout bounds each quote or instruction request.
	// Default: 10s
	Timeout time.Duration

	// BatchSize is the number of legs packed into one transaction.
	// Default: 3
	BatchSize int
}

func (c *AggregatorConfig) Key() string {
	return AGGREGATOR_CONFIG_KEY
}

func (c *AggregatorConfig) Load() error {
	c.APIUrl = common.GetEnvOrDefault("AGGREGATOR_API_URL", "https://quote-api.jup.ag/v6")
	c.APIKey = common.GetEnvOrDefault("AGGREGATOR_API_KEY", "")
	c.Timeout = time.Duration(common.GetEnvOrDefaultInt("AGGREGATOR_TIMEOUT_SECONDS", 10)) * time.Second
	c.BatchSize = common.GetEnvOrDefaultInt("BATCH_SIZE", 3)
	return c.Validate()
}

func (c *AggregatorConfig) Validate() error {
	if c.APIUrl == "" {
		return errors.New("invalid aggregator config: AGGREGATOR_API_URL is required")
	}
	if c.BatchSize < 1 {
		return errors.New("invalid aggregator config: BATCH_SIZE must be positive")
	}
	return nil
}
