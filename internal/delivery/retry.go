package delivery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 5 * time.Second
)

// retry runs fn until it succeeds, the attempts run out, or ctx is done.
// The delay doubles after each failure, up to maxRetryBackoff.
func (r *Recorder) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	maxRetries := r.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := r.cfg.RetryBackoff
	if delay <= 0 {
		delay = defaultRetryBackoff
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return fmt.Errorf("%s after %d attempts: %w", op, attempt+1, err)
		}

		r.logger.Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
}
