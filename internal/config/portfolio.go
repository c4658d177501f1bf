package config

import "os"

type PortfolioConfig struct {
	// File is an optional YAML file whose portfolios extend or replace the built-in ones.
	File string
}

func (c *PortfolioConfig) Key() string {
	return PORTFOLIO_CONFIG_KEY
}

func (c *PortfolioConfig) Load() error {
	c.File = os.Getenv("PORTFOLIOS_FILE")
	return nil
}

func (c *PortfolioConfig) Validate() error {
	return nil
}
