package wake

import (
	"sync"
	"time"
)

// Signal is a channel-backed Waker. The pending wake is a single buffered
// token, so concurrent Wake calls collapse into one.
type Signal struct {
	ch     chan struct{}
	done   chan struct{}
	closer sync.Once
}

// NewSignal returns an idle Signal.
func NewSignal() *Signal {
	return &Signal{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *Signal) Wake() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *Signal) Wait(deadline time.Time) bool {
	if deadline.IsZero() {
		select {
		case <-s.ch:
			return true
		case <-s.done:
			return false
		}
	}

	d := time.Until(deadline)
	if d <= 0 {
		select {
		case <-s.ch:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	case <-s.done:
		return false
	}
}

// C exposes the token channel, for backends that select over it together
// with their own event sources. A receive consumes the pending wake.
func (s *Signal) C() <-chan struct{} { return s.ch }

// Done is closed by Close.
func (s *Signal) Done() <-chan struct{} { return s.done }

// Pending reports whether a wake is waiting to be consumed.
func (s *Signal) Pending() bool { return len(s.ch) != 0 }

func (s *Signal) Close() error {
	s.closer.Do(func() { close(s.done) })
	return nil
}
