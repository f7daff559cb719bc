// Package wake provides level-triggered wakeup primitives for backends.
//
// Every Waker coalesces: any number of Wake calls made while no Wait is in
// progress cause exactly one subsequent Wait to return immediately.
package wake

import (
	"time"
)

// Waker is a coalescing wakeup primitive.
type Waker interface {
	// Wake is safe to call from any goroutine.
	Wake()

	// Wait blocks until a wake is pending, consuming it, or until deadline.
	// A zero deadline waits indefinitely. It returns true if a wake was
	// consumed, false on timeout or after Close.
	Wait(deadline time.Time) bool

	Close() error
}

// New returns the preferred Waker for the platform, an eventfd on Linux and a
// Signal elsewhere or if the eventfd cannot be created.
func New() Waker {
	if w, err := newPlatform(); err == nil {
		return w
	}
	return NewSignal()
}
