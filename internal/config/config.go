package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults for the broadcast dispatcher.
const (
	DefaultMaxPerSecond  = 25.0
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
	DefaultBatchSize     = 50
)

// Validate rejects configs that cannot produce a working bot. Zero
// values with documented defaults are allowed; nonsense values are not.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Broadcast.MaxPerSecond < 0 {
		return errors.New("broadcast.max_per_second must be positive")
	}
	if c.Broadcast.RetryAttempts != nil && *c.Broadcast.RetryAttempts < 0 {
		return errors.New("broadcast.retry_attempts must not be negative")
	}
	if c.Broadcast.BatchSize < 0 {
		return errors.New("broadcast.batch_size must be positive")
	}
	if _, err := ParseDurationField("broadcast.retry_delay", c.Broadcast.RetryDelay); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.send_timeout", c.Telegram.SendTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("affiliate.timeout", c.Affiliate.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("scheduler.inactive_after", c.Scheduler.InactiveAfter); err != nil {
		return err
	}
	return nil
}

// BroadcastValues resolves the broadcast knobs with defaults applied.
func (c *Config) BroadcastValues() (maxPerSecond float64, retryAttempts int, retryDelay time.Duration, batchSize int, err error) {
	maxPerSecond = c.Broadcast.MaxPerSecond
	if maxPerSecond == 0 {
		maxPerSecond = DefaultMaxPerSecond
	}
	retryAttempts = DefaultRetryAttempts
	if c.Broadcast.RetryAttempts != nil {
		retryAttempts = *c.Broadcast.RetryAttempts
	}
	retryDelay, err = ParseDurationOrDefault("broadcast.retry_delay", c.Broadcast.RetryDelay, DefaultRetryDelay)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	batchSize = c.Broadcast.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	if maxPerSecond <= 0 || batchSize <= 0 {
		return 0, 0, 0, 0, fmt.Errorf("broadcast: max_per_second and batch_size must be positive")
	}
	return maxPerSecond, retryAttempts, retryDelay, batchSize, nil
}
