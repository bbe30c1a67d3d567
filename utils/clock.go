package utils

import (
	"context"
	"time"
)

// SleepWithContext waits for d or until ctx is done, returning ctx.Err() in
// the latter case. Background loops use it so shutdown is not stuck behind a
// poll interval.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
