package presentation

import (
	"context"
	"time"

	"github.com/go-drift/present/pkg/timers"
)

// Run makes the calling goroutine the presenter's driver. It applies queued
// callbacks as they arrive and calls Tick every interval with the time
// measured on clock (nil means timers.SystemClock). Other goroutines reach
// the presenter through Post. Run returns when ctx is done.
func Run(ctx context.Context, p *Presenter, interval time.Duration, clock timers.Clock) error {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	watch := timers.NewStopwatch(clock)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-p.queue:
			fn()
		case <-ticker.C:
			p.Tick(watch.Lap())
		}
	}
}
