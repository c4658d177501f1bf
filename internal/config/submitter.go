package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type SubmitterConfig struct {
	// MaxRetries bounds send-and-confirm attempts per signed transaction. Default: 3
	MaxRetries int

	// ConfirmTimeout bounds the confirmation wait of a single attempt.
	ConfirmTimeout time.Duration

	// DBPath is the BoltDB file holding submission attempts.
	// Default: "./data/submissions.db"
	DBPath string

	PersistenceEnabled bool
}

func (c *SubmitterConfig) Key() string {
	return SUBMITTER_CONFIG_KEY
}

func (c *SubmitterConfig) Load() error {
	c.MaxRetries = common.GetEnvOrDefaultInt("SUBMIT_MAX_RETRIES", 3)
	c.ConfirmTimeout = time.Duration(common.GetEnvOrDefaultInt("CONFIRM_TIMEOUT_SECONDS", 60)) * time.Second
	c.DBPath = common.GetEnvOrDefault("SUBMISSION_DB_PATH", "./data/submissions.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("SUBMISSION_PERSISTENCE_ENABLED", "true") == "true"
	return c.Validate()
}

func (c *SubmitterConfig) Validate() error {
	if c.MaxRetries < 1 {
		return errors.New("invalid submitter config: SUBMIT_MAX_RETRIES must be positive")
	}
	return nil
}
