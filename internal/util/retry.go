package util

import (
	"context"
	"time"
)

// Retry calls fn up to maxAttempts times, doubling the delay after each
// failure. It returns nil on the first success, otherwise the last error.
// Cancellation of ctx between attempts returns ctx.Err().
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	var err error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		if perr := Pause(ctx, delay); perr != nil {
			return perr
		}
		delay *= 2
	}
	return err
}
