// Package timers provides the one-shot deferred callback scheduler each
// presented node owns.
//
// A [Scheduler] does not read a clock. Time only moves when its owner calls
// [Scheduler.Advance] with an elapsed delta, so whoever drives Advance
// decides when accumulation pauses:
//
//	var s timers.Scheduler
//	s.Schedule(func() { fmt.Println("fired") }, 2*time.Second)
//	s.Advance(time.Second) // nothing
//	s.Advance(time.Second) // prints "fired"
//
// Callback panics are recovered and returned from Advance; the remaining due
// callbacks still run.
package timers

import (
	"time"

	"go.uber.org/multierr"

	"github.com/go-drift/present/pkg/errors"
)

// ID identifies a scheduled callback within one Scheduler.
type ID uint64

type entry struct {
	id        ID
	remaining time.Duration
	fn        func()
	done      bool
}

// Scheduler holds one-shot callbacks. The zero value is ready to use.
// It is not safe for concurrent use.
type Scheduler struct {
	entries []*entry
	nextID  ID
}

// Schedule registers fn to run once timeout has accumulated.
// A timeout <= 0 fires on the next Advance.
func (s *Scheduler) Schedule(fn func(), timeout time.Duration) ID {
	s.nextID++
	s.entries = append(s.entries, &entry{id: s.nextID, remaining: timeout, fn: fn})
	return s.nextID
}

// Cancel removes a pending callback. It returns false if the id is unknown,
// already fired, or already cancelled.
func (s *Scheduler) Cancel(id ID) bool {
	for _, e := range s.entries {
		if e.id == id && !e.done {
			e.done = true
			return true
		}
	}
	return false
}

// Len returns the number of pending callbacks.
func (s *Scheduler) Len() int {
	n := 0
	for _, e := range s.entries {
		if !e.done {
			n++
		}
	}
	return n
}

// Remaining returns the time left before id fires.
func (s *Scheduler) Remaining(id ID) (time.Duration, bool) {
	for _, e := range s.entries {
		if e.id == id && !e.done {
			return e.remaining, true
		}
	}
	return 0, false
}

// Clear drops every pending callback without running it.
func (s *Scheduler) Clear() {
	for _, e := range s.entries {
		e.done = true
	}
	s.entries = nil
}

// Advance accumulates dt on every pending callback and fires those that are
// due, in scheduling order. Callbacks scheduled while firing are not advanced
// until the next call. Negative deltas count as zero.
func (s *Scheduler) Advance(dt time.Duration) error {
	if dt < 0 {
		dt = 0
	}
	pending := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.done {
			continue
		}
		e.remaining -= dt
		pending = append(pending, e)
	}

	var errs error
	for _, e := range pending {
		// An earlier callback may have cancelled this one.
		if e.done || e.remaining > 0 {
			continue
		}
		e.done = true
		if e.fn == nil {
			continue
		}
		errs = multierr.Append(errs, fire(e.fn))
	}

	s.compact()
	return errs
}

func (s *Scheduler) compact() {
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.done {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = live
}

func fire(fn func()) error {
	return errors.Guard("timers.fire", func() error {
		fn()
		return nil
	})
}
