// Package clock is the process-wide time source. Production code reads
// through Now/UTC so tests can pin time without sleeping.
package clock

import (
	"sync/atomic"
	"time"
)

var source atomic.Pointer[func() time.Time]

func init() {
	real := time.Now
	source.Store(&real)
}

func Now() time.Time {
	return (*source.Load())()
}

func UTC() time.Time {
	return Now().UTC()
}

// Freeze pins the clock to a fixed instant and returns a restore func.
// Intended for tests: defer clock.Freeze(t0)().
func Freeze(at time.Time) func() {
	fixed := func() time.Time { return at }
	source.Store(&fixed)
	return Restore
}

// Restore puts the clock back on real time.
func Restore() {
	real := time.Now
	source.Store(&real)
}
