package helper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// RetryConfig bounds the retries around a call to an external service.
// MaxRetries of zero disables retrying.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RetryIf reports whether err is worth another attempt. Nil retries everything.
	RetryIf func(error) bool
}

func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// RetryWithResult runs operation, retrying with exponential backoff until it
// succeeds, the retries are used up or ctx is done.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, name string, operation func() (T, error)) (T, error) {
	if cfg.MaxRetries <= 0 {
		return operation()
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxRetries)), ctx)

	var result T
	err := backoff.RetryNotify(func() error {
		var err error
		result, err = operation()
		if err != nil && cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("operation", name).Dur("wait", wait).Msg("Retrying")
	})
	return result, err
}
