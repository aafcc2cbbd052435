// Package waitfor polls a probe until it reports a value or a deadline passes.
package waitfor

import (
	"context"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 16 * time.Millisecond
)

// Poll calls probe, which reports the awaited value and whether it is present yet, every
// interval until it succeeds, timeout elapses or ctx is done.
// Running out of time is not an error: the zero value and false are returned and the
// caller decides how to degrade.
func Poll[T any](ctx context.Context, timeout, interval time.Duration, probe func() (T, bool)) (T, bool) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if v, ok := probe(); ok {
		return v, true
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-ticker.C:
			if v, ok := probe(); ok {
				return v, true
			}
		}
	}
}
