package clock

import "time"

// System is the wall clock. Everything time-dependent in the core takes a
// Clock so tests can pin the current instant.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now()
}
