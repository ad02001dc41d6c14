package sessionstate

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout is the session TTL used when a caller does not supply one.
const DefaultTimeout = 20 * time.Minute

// Option is a functional option for configuring a Provider.
type Option func(*providerConfig)

// providerConfig holds configuration for the provider. Immutable after New.
type providerConfig struct {
	applicationName string
	defaultTimeout  time.Duration
	retry           RetryPolicy
	autoCreateIndex bool
	logger          zerolog.Logger
}

// WithApplicationName sets the partition key isolating this application's
// sessions from co-hosted applications sharing the same store.
func WithApplicationName(name string) Option {
	return func(c *providerConfig) {
		c.applicationName = name
	}
}

// WithDefaultTimeout sets the session TTL applied by Release, ResetTimeout
// and saves that carry no timeout of their own.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *providerConfig) {
		c.defaultTimeout = d
	}
}

// WithRetryPolicy sets the retry policy for conditional writes.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *providerConfig) {
		c.retry = p
	}
}

// WithAutoCreateExpiryIndex controls whether New registers the store's
// background expiry sweep. Enabled by default.
func WithAutoCreateExpiryIndex(enabled bool) Option {
	return func(c *providerConfig) {
		c.autoCreateIndex = enabled
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *providerConfig) {
		c.logger = log
	}
}
