package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/gagliardetto/solana-go"
)

type FeeConfig struct {
	// Collector receives the platform fee. Empty disables fee collection.
	Collector solana.PublicKey
	// Bps is charged on the total swapped amount of the first batch.
	Bps uint16
}

func (c *FeeConfig) Key() string {
	return FEE_CONFIG_KEY
}

func (c *FeeConfig) Load() error {
	if raw := common.GetEnvOrDefault("FEE_COLLECTOR", ""); raw != "" {
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return errors.New("invalid fee config: FEE_COLLECTOR is not a valid address")
		}
		c.Collector = pk
	}
	c.Bps = uint16(common.GetEnvOrDefaultInt("PLATFORM_FEE_BPS", 0))
	return c.Validate()
}

func (c *FeeConfig) Validate() error {
	if c.Bps > 10000 {
		return errors.New("invalid fee config: PLATFORM_FEE_BPS must be <= 10000")
	}
	if c.Bps > 0 && c.Collector.IsZero() {
		return errors.New("invalid fee config: FEE_COLLECTOR is required when PLATFORM_FEE_BPS is set")
	}
	return nil
}

func (c *FeeConfig) Enabled() bool {
	return c.Bps > 0 && !c.Collector.IsZero()
}
