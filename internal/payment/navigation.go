package payment

import (
	"sync"
	"time"
)

// Navigator moves the shopper to another view.
type Navigator interface {
	Navigate(target string)
}

type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// Deferred is a single pending navigation.
type Deferred struct {
	mu      sync.Mutex
	timer   *time.Timer
	target  string
	fired   bool
	stopped bool
}

// Schedule navigates to target once after delay unless stopped first.
func Schedule(nav Navigator, target string, delay time.Duration) *Deferred {
	d := &Deferred{target: target}
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.fired = true
		d.mu.Unlock()
		nav.Navigate(target)
	})
	return d
}

// Stop cancels the navigation. It reports whether it was still pending.
func (d *Deferred) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fired || d.stopped {
		return false
	}
	d.stopped = true
	d.timer.Stop()
	return true
}

func (d *Deferred) Target() string { return d.target }

// Fired reports whether the navigation has happened.
func (d *Deferred) Fired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}
