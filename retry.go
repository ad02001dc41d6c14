package sessionstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAttempts is the default retry budget for a conditional
	// write.
	DefaultMaxAttempts = 220

	// DefaultRetryDelay is the default pause between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// RetryPolicy wraps a single idempotent conditional write with bounded
// fixed-delay retry, absorbing transient replication and topology failures
// (e.g. a primary re-election) without surfacing them to the caller. This is
// the only place the library sleeps; worst case blocking time is
// MaxAttempts * Delay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// Do executes op until it succeeds, fails with a non-transient error, the
// attempt budget runs out, or ctx is cancelled. Only errors wrapping
// ErrTransient are retried; anything else propagates immediately.
func (p RetryPolicy) Do(ctx context.Context, log zerolog.Logger, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTransient) {
			return err
		}
		if attempt == attempts {
			break
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("transient store failure, retrying write")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrWriteExhausted, attempts, err)
}
