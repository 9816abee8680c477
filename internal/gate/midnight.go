package gate

import (
	"sync"

	"github.com/robalobadob/wordripple/internal/clock"
	"github.com/robalobadob/wordripple/internal/puzzle"
)

// WatchMidnight calls fn with the new date at every local midnight until the
// returned stop func is called.
func WatchMidnight(cal puzzle.Calendar, sched clock.Scheduler, fn func(puzzle.Date)) (stop func()) {
	var (
		mu      sync.Mutex
		cancel  func()
		stopped bool
	)
	var arm func()
	arm = func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		cancel = sched.After(cal.UntilMidnight(), func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			mu.Unlock()
			fn(cal.Today())
			arm()
		})
	}
	arm()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if cancel != nil {
			cancel()
		}
	}
}
