// Package retry is the single retry/backoff utility for outbound network
// calls. Call sites share it instead of growing their own loops.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config bounds a retried operation. Attempts counts total tries, so
// Attempts=3 means one call plus two retries.
type Config struct {
	Attempts        uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig matches the payment-provider guidance: 3 attempts with
// short exponential backoff.
func DefaultConfig() Config {
	return Config{
		Attempts:        3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Do runs op with exponential backoff until it succeeds, the attempts are
// exhausted, or ctx is done. Wrap an error with Permanent to stop early.
func Do(ctx context.Context, cfg Config, op func() error) error {
	if cfg.Attempts == 0 {
		cfg = DefaultConfig()
	}
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, cfg.Attempts-1), ctx))
}

// Permanent marks err as not worth retrying (4xx-style failures).
func Permanent(err error) error { return backoff.Permanent(err) }
