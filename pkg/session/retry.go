package session

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds ConnectWithRetry. Zero fields select defaults.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}

// ConnectWithRetry calls Connect until it succeeds, the policy is
// exhausted, or the error is permanent. Version mismatches, an already
// active session and an explicit Close are permanent.
func (s *Session) ConnectWithRetry(ctx context.Context, p RetryPolicy) error {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	var err error
	for attempt := 1; ; attempt++ {
		if err = s.Connect(ctx); err == nil {
			return nil
		}
		if permanent(err) || attempt >= p.MaxAttempts || ctx.Err() != nil {
			return err
		}
		sleep := b.NextBackOff()
		if sleep == backoff.Stop {
			return err
		}
		s.logger.Info("connect retry", "attempt", attempt, "wait", sleep, "err", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(sleep):
		}
	}
}

func permanent(err error) bool {
	return errors.Is(err, ErrVersionMismatch) ||
		errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrSessionClosed)
}
