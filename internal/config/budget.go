package config

import (
	"errors"
	"strconv"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ComputeBudgetConfig struct {
	// DefaultUnits is used whenever simulation cannot tell the real consumption.
	DefaultUnits uint32
	// MaxUnits caps the simulated consumption before the margin is applied.
	MaxUnits uint32
	// Margin inflates simulated consumption. Default: 1.1
	Margin float64
	// DefaultPriorityFee is used when the oracle fails (microLamports per unit).
	DefaultPriorityFee uint64
	// MinPriorityFee floors whatever the oracle returns.
	MinPriorityFee uint64
}

func (c *ComputeBudgetConfig) Key() string {
	return COMPUTE_BUDGET_CONFIG_KEY
}

func (c *ComputeBudgetConfig) Load() error {
	c.DefaultUnits = uint32(common.GetEnvOrDefaultInt("DEFAULT_COMPUTE_UNITS", 1_400_000))
	c.MaxUnits = uint32(common.GetEnvOrDefaultInt("MAX_COMPUTE_UNITS", 1_400_000))
	c.DefaultPriorityFee = uint64(common.GetEnvOrDefaultInt("DEFAULT_PRIORITY_FEE", 10_000))
	c.MinPriorityFee = uint64(common.GetEnvOrDefaultInt("MIN_PRIORITY_FEE", 10_000))

	margin, err := strconv.ParseFloat(common.GetEnvOrDefault("COMPUTE_UNIT_MARGIN", "1.1"), 64)
	if err != nil {
		return errors.New("invalid compute budget config: COMPUTE_UNIT_MARGIN must be a number")
	}
	c.Margin = margin
	return c.Validate()
}

func (c *ComputeBudgetConfig) Validate() error {
	if c.DefaultUnits == 0 || c.MaxUnits == 0 {
		return errors.New("invalid compute budget config: unit counts must be positive")
	}
	if c.Margin < 1 {
		return errors.New("invalid compute budget config: margin must be >= 1")
	}
	return nil
}
