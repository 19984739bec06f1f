package practicum

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// retryWithBackoff runs fn until it succeeds, fails permanently, or maxRetries
// extra attempts have been spent. The delay doubles after every attempt.
func retryWithBackoff(ctx context.Context, logger *zap.Logger, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying API request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxRetries+1),
				zap.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				logger.Debug("API request succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isRetryableError(lastErr) {
			return lastErr
		}

		if attempt < maxRetries {
			logger.Warn("retryable API error",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}
	}

	return lastErr
}

// isRetryableError reports whether err is a transient transport or server failure.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrConnection) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return false
}
