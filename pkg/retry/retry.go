package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Class buckets an error for backoff purposes.
type Class int

const (
	// ClassTransient covers network failures and non-2xx statuses other
	// than 429/401. Retried after a fixed delay.
	ClassTransient Class = iota
	// ClassRateLimited covers HTTP 429. Retried with exponential backoff.
	ClassRateLimited
	// ClassFatal covers errors retrying cannot fix (HTTP 401). Returned
	// immediately.
	ClassFatal
)

// Classifier maps an operation error to a Class. A nil Classifier treats
// every error as transient.
type Classifier func(error) Class

type Config struct {
	MaxAttempts   int
	FixedDelay    time.Duration
	RateLimitBase time.Duration
	RateLimitCap  time.Duration
	Classify      Classifier
	Logger        *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		FixedDelay:    2 * time.Second,
		RateLimitBase: 2 * time.Second,
		RateLimitCap:  15 * time.Second,
		Logger:        zap.NewNop(),
	}
}

// StatusClassifier builds a Classifier from a status extractor. Errors
// without an HTTP status (network level) are treated as transient.
func StatusClassifier(status func(error) (int, bool)) Classifier {
	return func(err error) Class {
		code, ok := status(err)
		if !ok {
			return ClassTransient
		}
		switch code {
		case 429:
			return ClassRateLimited
		case 401:
			return ClassFatal
		default:
			return ClassTransient
		}
	}
}

func Do(ctx context.Context, cfg Config, operation func() error) error {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.FixedDelay == 0 {
		cfg.FixedDelay = 2 * time.Second
	}
	if cfg.RateLimitBase == 0 {
		cfg.RateLimitBase = 2 * time.Second
	}
	if cfg.RateLimitCap == 0 {
		cfg.RateLimitCap = 15 * time.Second
	}

	var lastErr error
	rateLimitDelay := cfg.RateLimitBase

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.Info("Operation succeeded after retry",
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		lastErr = err

		class := ClassTransient
		if cfg.Classify != nil {
			class = cfg.Classify(err)
		}

		if class == ClassFatal {
			if cfg.Logger != nil {
				cfg.Logger.Debug("Error not retryable",
					zap.Error(err),
					zap.Int("attempt", attempt),
				)
			}
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.FixedDelay
		if class == ClassRateLimited {
			delay = rateLimitDelay
			rateLimitDelay *= 2
			if rateLimitDelay > cfg.RateLimitCap {
				rateLimitDelay = cfg.RateLimitCap
			}
		}

		if cfg.Logger != nil {
			cfg.Logger.Warn("Operation failed, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Bool("rate_limited", class == ClassRateLimited),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}
