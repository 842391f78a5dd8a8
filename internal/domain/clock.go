package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the package-level time source for processing timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock, in UTC.
func Now() time.Time {
	return clock.Now().UTC()
}
