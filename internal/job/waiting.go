package job

import (
	"context"
	"time"
)

// SleepWork returns a runnable that simulates execution by blocking for d.
// Cancelling ctx cuts the wait short and reports ctx.Err().
func SleepWork(d time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		if d <= 0 {
			return nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// RunToCompletion runs work detached from ctx's cancellation, so a started
// unit of work always finishes. Values carried by ctx are kept.
func RunToCompletion(ctx context.Context, work func(context.Context) error) error {
	return work(context.WithoutCancel(ctx))
}
