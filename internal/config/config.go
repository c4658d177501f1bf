package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY        = "general-config"
	RPC_CONFIG_KEY            = "rpc-config"
	AGGREGATOR_CONFIG_KEY     = "aggregator-config"
	COMPUTE_BUDGET_CONFIG_KEY = "compute-budget-config"
	FEE_CONFIG_KEY            = "fee-config"
	MARKET_CONFIG_KEY         = "market-config"
	SUBMITTER_CONFIG_KEY      = "submitter-config"
	NATS_CONFIG_KEY           = "nats-config"
	PORTFOLIO_CONFIG_KEY      = "portfolio-config"
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string
	// BaseURL is the public origin used for action icons and links.
	BaseURL string
	// RateLimit is the sustained requests per second allowed per client IP.
	RateLimit float64
	RateBurst int
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "3000")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", "dev")
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.BaseURL = common.GetEnvOrDefault("BASE_URL", "http://localhost:3000")
	gc.RateLimit = float64(common.GetEnvOrDefaultInt("RATE_LIMIT_PER_SECOND", 10))
	gc.RateBurst = common.GetEnvOrDefaultInt("RATE_LIMIT_BURST", 20)
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if gc.RateLimit <= 0 || gc.RateBurst <= 0 {
		return errors.New("invalid server config: RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
