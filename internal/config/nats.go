package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type NATSConfig struct {
	// URL enables publishing of submission outcomes. Empty disables it.
	URL           string
	SubjectPrefix string
}

func (c *NATSConfig) Key() string {
	return NATS_CONFIG_KEY
}

func (c *NATSConfig) Load() error {
	c.URL = common.GetEnvOrDefault("NATS_URL", "")
	c.SubjectPrefix = common.GetEnvOrDefault("NATS_SUBJECT_PREFIX", "swaps")
	return nil
}

func (c *NATSConfig) Validate() error {
	return nil
}

func (c *NATSConfig) Enabled() bool {
	return c.URL != ""
}
