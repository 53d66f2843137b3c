// Package clock supplies the wall-clock time used to stamp task lifecycle
// events. Times are reported in a configured IANA time zone so that every
// timestamp on a task record shares the same location.
package clock

import (
	"fmt"
	"time"
)

// DefaultTimezone is the zone used when none is configured.
const DefaultTimezone = "Europe/Amsterdam"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Zoned is a Clock that reports time.Now in a fixed location.
type Zoned struct {
	loc *time.Location
}

// NewZoned loads the named time zone and returns a clock bound to it.
func NewZoned(name string) (*Zoned, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return &Zoned{loc: loc}, nil
}

// Now returns the current time in the clock's location.
func (z *Zoned) Now() time.Time {
	return time.Now().In(z.loc)
}

// Location returns the clock's time zone.
func (z *Zoned) Location() *time.Location {
	return z.loc
}

// System is a Clock backed by time.Now in the local zone.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts an ordinary function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}
