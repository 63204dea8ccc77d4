// Package retry implements a small bounded retry policy with exponential
// backoff. It wraps flaky external effects like storage calls and ffmpeg
// runs so a single hiccup doesn't fail a whole processing task
package retry

import (
	"context"
	"time"
)

type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Do runs fn until it succeeds, the retries are used up or the context
// is cancelled. The last error wins
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := p.InitialBackoff

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Don't sleep after the last attempt
		if attempt < p.MaxRetries {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return lastErr
			}

			backoff *= 2
			if backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}
	}

	return lastErr
}
