package timers

import "time"

// Clock provides time for frame loops that turn wall time into Advance
// deltas. Tests inject a fake clock to control timing deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the Clock backed by time.Now.
var SystemClock Clock = systemClock{}

// Stopwatch converts successive clock readings into elapsed deltas.
type Stopwatch struct {
	clock Clock
	last  time.Time
}

// NewStopwatch starts a stopwatch at the clock's current time.
// A nil clock means SystemClock.
func NewStopwatch(c Clock) *Stopwatch {
	if c == nil {
		c = SystemClock
	}
	return &Stopwatch{clock: c, last: c.Now()}
}

// Lap returns the time elapsed since the previous Lap (or construction).
// A clock that moves backwards yields zero.
func (w *Stopwatch) Lap() time.Duration {
	now := w.clock.Now()
	dt := now.Sub(w.last)
	w.last = now
	if dt < 0 {
		return 0
	}
	return dt
}
