package database

import (
	"context"
	"fmt"
	"time"

	"financing-workers/internal/common/logger"
)

// Retry calls op up to attempts times, doubling the delay after each
// failure. It gives up early when ctx is done.
func Retry(ctx context.Context, name string, attempts int, delay time.Duration, log logger.Logger, op func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = op(ctx); err == nil {
			if i > 1 {
				log.Info("connected after retry", map[string]interface{}{"operation": name, "attempt": i})
			}
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn("operation failed, retrying", map[string]interface{}{
			"operation": name,
			"attempt":   i,
			"delay":     delay.String(),
			"error":     err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}
