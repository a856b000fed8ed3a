package fetch

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Transient failures (network errors, 5xx responses) are wrapped with this
// type so that [Retry] knows to attempt the request again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff calls [Retry] with the default policy:
// 3 attempts starting at a 1 second delay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultAttempts, DefaultRetryDelay, fn)
}

// downloadWithRetry downloads rawURL under the fetcher's retry policy.
// The returned error carries its fetch code (NETWORK_ERROR, TIMEOUT, ...)
// without the RetryableError marker.
func (f *Fetcher) downloadWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	err := Retry(ctx, f.attempts, f.delay, func() error {
		var err error
		data, err = f.download(ctx, rawURL)
		if IsRetryable(err) {
			f.logger.Debug("retrying fetch", "source", rawURL, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, unwrapRetryable(err)
	}
	return data, nil
}

// unwrapRetryable strips the outermost RetryableError from err.
func unwrapRetryable(err error) error {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}

// IsRetryable reports whether err is marked as retryable.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
