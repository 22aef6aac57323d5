package clock

import (
	"context"
	"time"
)

// Clock abstracts time so schedulers and timers can run on mock time in tests
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// Wait blocks for d or until ctx is done, whichever comes first.
	// It returns ctx.Err() when the context ended the wait.
	Wait(ctx context.Context, d time.Duration) error
}

// Real is the wall clock
type Real struct{}

// New returns the wall clock
func New() Clock {
	return Real{}
}

// Now returns time.Now()
func (Real) Now() time.Time {
	return time.Now()
}

// Wait sleeps on a timer that is released as soon as the wait ends
func (Real) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
