package clock

import (
	"sync"
	"time"
)

// Scheduler runs callbacks later. Cancel funcs are idempotent. A callback that
// is already running when cancel is called may still finish, so callers
// re-check their own state inside fn.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
	After(d time.Duration, fn func()) (cancel func())
}

// Real is the wall-clock Scheduler.
type Real struct{}

// Every runs fn every d on its own goroutine until cancelled.
func (Real) Every(d time.Duration, fn func()) func() {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// After runs fn once after d unless cancelled first.
func (Real) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
