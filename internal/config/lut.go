package config

import (
	"os"
	"strings"
	"time"
)

const LUT_CONFIG_KEY = "lut-config"

type LUTConfig struct {
	// Addresses are lookup tables applied to every build on top of the ones the aggregator references.
	Addresses []string

	// RefreshInterval controls how often the static tables are re-fetched from RPC.
	RefreshInterval time.Duration
}

func (c *LUTConfig) Key() string {
	return LUT_CONFIG_KEY
}

func (c *LUTConfig) Load() error {
	c.Addresses = splitList(os.Getenv("LUT_ADDRESSES"))
	c.RefreshInterval = 60 * time.Second
	return nil
}

func (c *LUTConfig) Validate() error {
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
