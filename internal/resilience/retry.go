package resilience

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times with exponential backoff between
// failures, doubling the delay each round. The shouldRetry predicate decides
// whether an error is worth another attempt; a nil predicate retries every
// error. Returns the last error when all attempts fail.
func Retry(ctx context.Context, attempts int, backoff time.Duration, shouldRetry func(error) bool, fn func() error) error {
	var err error
	delay := backoff
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
