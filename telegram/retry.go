package telegram

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FloodRetry runs fn and, on a flood-wait error, sleeps the server-specified
// duration and runs it exactly once more.
func FloodRetry(ctx context.Context, fn func() error) error {
	err := fn()
	wait := RetryAfter(err)
	if wait <= 0 {
		return err
	}
	logrus.Warnf("flood_wait=%v retry once", wait)
	if err := sleep(ctx, wait); err != nil {
		return err
	}
	return fn()
}
