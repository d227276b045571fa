// Package clockutil supplies the Clock and Sleeper capability
// interfaces the scheduler loop and lock acquisition use in place of
// calling time.Now/time.Sleep directly, so tests can control time.
package clockutil

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Sleeper suspends the calling goroutine for d. It takes no context, so
// a sleep is not cut short by cancellation.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Real is the production Clock and Sleeper, backed by the time package.
type Real struct{}

func (Real) Now() time.Time     { return time.Now() }
func (Real) Sleep(d time.Duration) { time.Sleep(d) }
