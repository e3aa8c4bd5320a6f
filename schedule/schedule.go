// Package schedule abstracts deferred execution so delays can be driven by a
// manual clock in tests.
package schedule

import (
	"time"
)

// Timer is a pending deferred call.
type Timer interface {
	// Stop prevents the call from running. It reports whether the call was still pending.
	Stop() bool
}

// Scheduler runs functions after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type wall struct{}

// Real returns a Scheduler backed by the runtime timers.
func Real() Scheduler {
	return wall{}
}

func (wall) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (wall) Now() time.Time {
	return time.Now()
}
