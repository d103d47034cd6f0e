package engine

import (
	"errors"
	"time"
)

type Config struct {
	// SessionTTL is how long an issued challenge may wait for its answer.
	SessionTTL time.Duration

	// SweepInterval is how often expired sessions are reaped.
	SweepInterval time.Duration

	// ResultTimeout bounds waiting for the result marker after submitting.
	ResultTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:    10 * time.Minute,
		SweepInterval: time.Minute,
		ResultTimeout: 15 * time.Second,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	if c.ResultTimeout <= 0 {
		errs = append(errs, errors.New("result timeout must be positive"))
	}
	return errors.Join(errs...)
}
